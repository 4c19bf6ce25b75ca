package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
	"github.com/roach88/wodrun/internal/testutil"
)

// countingJIT records the statement ids of every Compile call.
type countingJIT struct {
	*JIT
	calls [][]int
}

func (c *countingJIT) Compile(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	ids := make([]int, len(statements))
	for i, st := range statements {
		ids[i] = st.ID
	}
	c.calls = append(c.calls, ids)
	return c.JIT.Compile(ctx, statements)
}

func (c *countingJIT) firstIDs() []int {
	out := make([]int, len(c.calls))
	for i, ids := range c.calls {
		out[i] = ids[0]
	}
	return out
}

type harness struct {
	rt    *runtime.Runtime
	clock *testutil.ManualClock
	log   *runtime.MemoryLog
	jit   *countingJIT
}

func newHarness(t *testing.T, statements ...*ir.Statement) *harness {
	t.Helper()
	script, err := ir.NewScript(statements)
	require.NoError(t, err)

	h := &harness{
		clock: testutil.NewManualClock(testutil.Epoch),
		log:   runtime.NewMemoryLog(),
		jit:   &countingJIT{JIT: New()},
	}
	h.rt = runtime.New(script, h.jit,
		runtime.WithClock(h.clock),
		runtime.WithKeys(testutil.NewSequentialKeys("b")),
		runtime.WithHistory(h.log),
	)
	return h
}

// block returns the stack entry at depth i (0 is the root).
func (h *harness) block(t *testing.T, i int) *runtime.Block {
	t.Helper()
	blocks := h.rt.Stack().Blocks()
	require.Greater(t, len(blocks), i, "stack depth")
	return blocks[i]
}

func stmt(id int, frags ...ir.Fragment) *ir.Statement {
	return &ir.Statement{ID: id, Fragments: frags}
}

func child(id, parent int, label string, frags ...ir.Fragment) *ir.Statement {
	st := stmt(id, append([]ir.Fragment{effortFrag(label)}, frags...)...)
	st.Parent = parent
	return st
}

func effortFrag(label string) ir.Fragment {
	return ir.Fragment{Type: ir.FragmentEffort, Value: label}
}

func timerFrag(ms int64) ir.Fragment {
	return ir.Fragment{Type: ir.FragmentTimer, Value: ms}
}

func roundsFrag(v any) ir.Fragment {
	return ir.Fragment{Type: ir.FragmentRounds, Value: v}
}

func lapFrag(marker string) ir.Fragment {
	return ir.Fragment{Type: ir.FragmentLap, Value: marker}
}
