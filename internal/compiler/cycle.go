package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/wodrun/internal/ir"
)

// CycleWarning reports statements that reach themselves through children.
// A cycle would make ChildRunner compile the same group forever.
type CycleWarning struct {
	Path    []int  `json:"path"`
	Message string `json:"message"`
}

// AnalyzeCycles finds cycles in the children graph with Tarjan's algorithm.
// An acyclic script returns an empty list.
func AnalyzeCycles(script *ir.Script) []CycleWarning {
	warnings := []CycleWarning{}
	if script == nil || script.Len() == 0 {
		return warnings
	}

	graph := childGraph(script)
	for _, scc := range tarjanSCC(graph, script.IDs()) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path[0] < warnings[j].Path[0]
	})
	return warnings
}

type childEdges map[int][]int

func childGraph(script *ir.Script) childEdges {
	g := make(childEdges, script.Len())
	for _, st := range script.Statements() {
		g[st.ID] = append([]int(nil), st.Children...)
	}
	return g
}

func hasSelfLoop(id int, g childEdges) bool {
	for _, c := range g[id] {
		if c == id {
			return true
		}
	}
	return false
}

// tarjanSCC visits nodes in the given order so results are stable.
func tarjanSCC(g childEdges, order []int) [][]int {
	var (
		index   int
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)

	var connect func(v int)
	connect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, seen := indices[w]; !seen {
				connect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, id := range order {
		if _, seen := indices[id]; !seen {
			connect(id)
		}
	}
	return sccs
}

// sccToWarning walks the component from its smallest id back to itself.
func sccToWarning(scc []int, g childEdges) CycleWarning {
	members := make(map[int]bool, len(scc))
	start := scc[0]
	for _, id := range scc {
		members[id] = true
		start = min(start, id)
	}

	path := []int{start}
	visited := map[int]bool{start: true}
	current := start
	for {
		next, found := 0, false
		for _, w := range g[current] {
			if members[w] && (w == start || !visited[w]) {
				next, found = w, true
				break
			}
		}
		if !found {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}

	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("statement cycle: %s", joinIDs(path, " → ")),
	}
}

func joinIDs(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}
