package runtime

import (
	"testing"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/testutil"
)

// hookBehavior implements every capability; nil funcs are no-ops.
type hookBehavior struct {
	name    string
	log     *[]string
	mount   func(ctx *ExecutionContext, b *Block) ([]Action, error)
	next    func(ctx *ExecutionContext, b *Block) ([]Action, error)
	unmount func(ctx *ExecutionContext, b *Block) ([]Action, error)
	dispose func(ctx *ExecutionContext, b *Block) error
	events  []string
	event   func(ctx *ExecutionContext, b *Block, ev eventbus.Event) ([]Action, error)
}

func (h *hookBehavior) Name() string { return h.name }

func (h *hookBehavior) note(s string) {
	if h.log != nil {
		*h.log = append(*h.log, s+":"+h.name)
	}
}

func (h *hookBehavior) OnMount(ctx *ExecutionContext, b *Block) ([]Action, error) {
	h.note("mount")
	if h.mount == nil {
		return nil, nil
	}
	return h.mount(ctx, b)
}

func (h *hookBehavior) OnNext(ctx *ExecutionContext, b *Block) ([]Action, error) {
	h.note("next")
	if h.next == nil {
		return nil, nil
	}
	return h.next(ctx, b)
}

func (h *hookBehavior) OnUnmount(ctx *ExecutionContext, b *Block) ([]Action, error) {
	h.note("unmount")
	if h.unmount == nil {
		return nil, nil
	}
	return h.unmount(ctx, b)
}

func (h *hookBehavior) OnDispose(ctx *ExecutionContext, b *Block) error {
	h.note("dispose")
	if h.dispose == nil {
		return nil
	}
	return h.dispose(ctx, b)
}

func (h *hookBehavior) Events() []string { return h.events }

func (h *hookBehavior) OnEvent(ctx *ExecutionContext, b *Block, ev eventbus.Event) ([]Action, error) {
	h.note("event:" + ev.Name)
	if h.event == nil {
		return nil, nil
	}
	return h.event(ctx, b, ev)
}

// completeOnNext completes its block when block:next reaches it.
func completeOnNext() *hookBehavior {
	return &hookBehavior{
		name:   "complete-on-next",
		events: []string{EventBlockNext},
		event: func(ctx *ExecutionContext, b *Block, _ eventbus.Event) ([]Action, error) {
			if ctx.Stack().Current() != b {
				return nil, nil
			}
			return []Action{CompleteBlock{Key: b.Key}}, nil
		},
	}
}

// fakeCompiler records compile calls and builds leaf blocks that complete on
// block:next. root, when set, builds the root block.
type fakeCompiler struct {
	calls [][]int
	root  func(ctx *ExecutionContext) *Block
	build func(ctx *ExecutionContext, statements []*ir.Statement) *Block
}

func (c *fakeCompiler) Compile(ctx *ExecutionContext, statements []*ir.Statement) *Block {
	ids := make([]int, len(statements))
	for i, st := range statements {
		ids[i] = st.ID
	}
	c.calls = append(c.calls, ids)
	if c.build != nil {
		return c.build(ctx, statements)
	}
	return NewBlock(ctx.NewKey(), KindEffort, statements[0].Label(), ids, completeOnNext())
}

func (c *fakeCompiler) Root(ctx *ExecutionContext) *Block {
	if c.root != nil {
		return c.root(ctx)
	}
	return NewBlock(ctx.NewKey(), KindRoot, "root", nil)
}

func testScript() *ir.Script {
	return ir.MustScript(
		&ir.Statement{ID: 1, Fragments: []ir.Fragment{{Type: ir.FragmentEffort, Value: "Run"}}},
		&ir.Statement{ID: 2, Fragments: []ir.Fragment{{Type: ir.FragmentEffort, Value: "Row"}}},
		&ir.Statement{ID: 3, Fragments: []ir.Fragment{{Type: ir.FragmentEffort, Value: "Bike"}}},
	)
}

func newTestRuntime(t *testing.T, compiler Compiler, opts ...Option) (*Runtime, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock(testutil.Epoch)
	base := []Option{
		WithClock(clock),
		WithKeys(testutil.NewSequentialKeys("b")),
	}
	return New(testScript(), compiler, append(base, opts...)...), clock
}
