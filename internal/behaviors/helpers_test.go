package behaviors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/memory"
	"github.com/roach88/wodrun/internal/runtime"
	"github.com/roach88/wodrun/internal/testutil"
)

// leafCompiler compiles every group into an effort-style leaf and records
// which statement ids were compiled.
type leafCompiler struct {
	calls [][]int
	root  func(ctx *runtime.ExecutionContext) *runtime.Block
}

func (c *leafCompiler) Compile(ctx *runtime.ExecutionContext, statements []*ir.Statement) *runtime.Block {
	ids := make([]int, len(statements))
	for i, st := range statements {
		ids[i] = st.ID
	}
	c.calls = append(c.calls, ids)

	b := runtime.NewBlock(ctx.NewKey(), runtime.KindEffort, statements[0].Label(), ids,
		HistoryRecord{}, NewStopwatch(ir.SpanWork), NextOnEvent{})
	b.Fragments = statements[0].Fragments
	return b
}

func (c *leafCompiler) Root(ctx *runtime.ExecutionContext) *runtime.Block {
	return c.root(ctx)
}

func (c *leafCompiler) firstIDs() []int {
	out := make([]int, len(c.calls))
	for i, ids := range c.calls {
		out[i] = ids[0]
	}
	return out
}

type fixture struct {
	rt       *runtime.Runtime
	clock    *testutil.ManualClock
	log      *runtime.MemoryLog
	trace    *runtime.Trace
	compiler *leafCompiler
}

func effort(id int, label string, frags ...ir.Fragment) *ir.Statement {
	return &ir.Statement{
		ID:        id,
		Fragments: append([]ir.Fragment{{Type: ir.FragmentEffort, Value: label}}, frags...),
	}
}

func defaultScript() *ir.Script {
	return ir.MustScript(effort(1, "Pushups"), effort(2, "Situps"), effort(3, "Squats"))
}

func newFixture(t *testing.T, script *ir.Script, root func(ctx *runtime.ExecutionContext) *runtime.Block) *fixture {
	t.Helper()
	f := &fixture{
		clock:    testutil.NewManualClock(testutil.Epoch),
		log:      runtime.NewMemoryLog(),
		trace:    runtime.NewTrace(),
		compiler: &leafCompiler{root: root},
	}
	f.rt = runtime.New(script, f.compiler,
		runtime.WithClock(f.clock),
		runtime.WithKeys(testutil.NewSequentialKeys("b")),
		runtime.WithHistory(f.log),
		runtime.WithObserver(f.trace),
	)
	return f
}

// rootBlock builds the root from behaviors with the given child groups.
func rootBlock(groups [][]int, behaviors ...runtime.Behavior) func(ctx *runtime.ExecutionContext) *runtime.Block {
	return func(ctx *runtime.ExecutionContext) *runtime.Block {
		b := runtime.NewBlock(ctx.NewKey(), runtime.KindRoot, "Workout", nil, behaviors...)
		b.ChildGroups = groups
		return b
	}
}

func read[T any](t *testing.T, f *fixture, typ, owner string) T {
	t.Helper()
	ref, ok := memory.Lookup[T](f.rt.Memory(), typ, owner)
	require.True(t, ok, "%s not allocated for %s", typ, owner)
	v, err := ref.Get()
	require.NoError(t, err)
	return v
}

func count(names []string, name string) int {
	n := 0
	for _, s := range names {
		if s == name {
			n++
		}
	}
	return n
}
