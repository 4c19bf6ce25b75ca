package compiler

import "github.com/roach88/wodrun/internal/ir"

// GroupChildren partitions child ids into execution groups. A child whose
// lap fragment is "+" joins the group before it; every other child starts
// a new group. Unknown ids get a group of their own so the failure shows
// up when that group is compiled.
func GroupChildren(script *ir.Script, ids []int) [][]int {
	var groups [][]int
	for _, id := range ids {
		if script != nil && len(groups) > 0 {
			if st, ok := script.Get(id); ok && composes(st) {
				last := len(groups) - 1
				groups[last] = append(groups[last], id)
				continue
			}
		}
		groups = append(groups, []int{id})
	}
	return groups
}

func composes(st *ir.Statement) bool {
	f, ok := st.Fragment(ir.FragmentLap)
	return ok && f.String() == ir.LapCompose
}
