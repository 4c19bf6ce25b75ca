package runtime

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/memory"
	"github.com/roach88/wodrun/internal/testutil"
)

func chain(n int) Action {
	return NewAction("chain", func(ctx *ExecutionContext) error {
		if n <= 1 {
			return nil
		}
		return ctx.Execute(chain(n - 1))
	})
}

func TestRuntime_ClockFrozenWithinTurn(t *testing.T) {
	trace := NewTrace()
	rt, clock := newTestRuntime(t, &fakeCompiler{}, WithObserver(trace))

	var seen []time.Time
	leaf := NewAction("leaf", func(ctx *ExecutionContext) error {
		seen = append(seen, ctx.Now())
		return ctx.Dispatch("probe", nil)
	})
	advance := NewAction("advance", func(ctx *ExecutionContext) error {
		seen = append(seen, ctx.Now())
		clock.Advance(5 * time.Second)
		return ctx.Execute(leaf, leaf)
	})

	require.NoError(t, rt.Submit(advance))
	require.Len(t, seen, 3)
	for _, ts := range seen {
		assert.Equal(t, testutil.Epoch, ts)
	}
	for _, a := range trace.Actions {
		assert.Equal(t, testutil.Epoch, a.Timestamp)
	}
	for _, e := range trace.Events {
		assert.Equal(t, testutil.Epoch, e.Timestamp)
	}
	assert.Equal(t, 1, clock.Reads(), "clock must be read once per turn")

	require.NoError(t, rt.Submit(leaf))
	assert.Equal(t, testutil.Epoch.Add(5*time.Second), seen[3])
	assert.Equal(t, 2, clock.Reads())
}

func TestRuntime_HandlersSeeDispatchingTurn(t *testing.T) {
	var nows []time.Time
	var turns []int
	watcher := &hookBehavior{
		name:   "watcher",
		events: []string{"probe"},
		event: func(ctx *ExecutionContext, _ *Block, _ eventbus.Event) ([]Action, error) {
			nows = append(nows, ctx.Now())
			turns = append(turns, ctx.Turn())
			return nil, nil
		},
	}
	rt, clock := newTestRuntime(t, &fakeCompiler{
		root: func(ctx *ExecutionContext) *Block {
			return NewBlock(ctx.NewKey(), KindRoot, "root", nil, watcher)
		},
	})

	require.NoError(t, rt.Start())
	clock.Advance(time.Minute)
	require.NoError(t, rt.Dispatch("probe", nil))
	clock.Advance(30 * time.Second)
	require.NoError(t, rt.Dispatch("probe", nil))

	assert.Equal(t, []time.Time{
		testutil.Epoch.Add(time.Minute),
		testutil.Epoch.Add(90 * time.Second),
	}, nows)
	assert.Equal(t, []int{2, 3}, turns)
}

func TestRuntime_RecursionLimitAtExactlyMax(t *testing.T) {
	trace := NewTrace()
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithMaxIterations(5), WithObserver(trace))

	var loop Action
	loop = NewAction("loop", func(ctx *ExecutionContext) error {
		return ctx.Execute(loop)
	})

	err := rt.Submit(loop)
	require.Error(t, err)
	assert.True(t, IsRecursionLimit(err))

	var rl *RecursionLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 6, rl.Iterations)
	assert.Equal(t, 5, rl.Limit)
	assert.Equal(t, "loop", rl.ActionType)

	assert.Len(t, trace.Actions, 5, "exactly max actions execute")
	require.Len(t, trace.Turns, 1)
	assert.Equal(t, 6, trace.Turns[0].Iterations)
	assert.Error(t, trace.Turns[0].Err)
	assert.Equal(t, StatusHalted, rt.Status())
}

func TestRuntime_DefaultLimitAllowsTwentyActions(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeCompiler{})
	require.NoError(t, rt.Submit(chain(DefaultMaxIterations)))

	rt2, _ := newTestRuntime(t, &fakeCompiler{})
	err := rt2.Submit(chain(DefaultMaxIterations + 1))
	assert.True(t, IsRecursionLimit(err))
}

func TestRuntime_IterationsResetPerTurn(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithMaxIterations(3))
	for i := 0; i < 4; i++ {
		require.NoError(t, rt.Submit(chain(3)), "turn %d", i+1)
	}
	assert.Equal(t, 4, rt.Turn())
}

func TestRuntime_SubmitDuringTurn(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeCompiler{})

	var inner error
	err := rt.Submit(NewAction("reenter", func(*ExecutionContext) error {
		inner = rt.Submit(NewAction("nested", nil))
		return nil
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrTurnInProgress)
	assert.Equal(t, 1, rt.Turn())
}

func TestRuntime_HaltsUntilReset(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeCompiler{})
	boom := errors.New("boom")

	err := rt.Submit(NewAction("fail", func(*ExecutionContext) error { return boom }))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "turn 1")
	assert.Equal(t, StatusHalted, rt.Status())
	assert.ErrorIs(t, rt.Err(), boom)

	err = rt.Submit(NewAction("after", nil))
	assert.ErrorIs(t, err, ErrHalted)

	rt.Reset()
	assert.Equal(t, StatusIdle, rt.Status())
	assert.NoError(t, rt.Err())
	assert.NoError(t, rt.Submit(NewAction("after", nil)))
}

func TestRuntime_LifecycleOrder(t *testing.T) {
	var log []string
	a := &hookBehavior{name: "a", log: &log}
	b := &hookBehavior{name: "b", log: &log}
	compiler := &fakeCompiler{root: func(ctx *ExecutionContext) *Block {
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, a, b)
	}}
	rt, _ := newTestRuntime(t, compiler)

	require.NoError(t, rt.Start())
	assert.Equal(t, StatusRunning, rt.Status())
	assert.Equal(t, []string{"mount:a", "mount:b"}, log)

	root := rt.Stack().Current()
	require.NotNil(t, root)
	assert.Equal(t, "b-1", root.Key)

	require.NoError(t, rt.Submit(CompleteBlock{Key: root.Key}))
	assert.Equal(t, []string{
		"mount:a", "mount:b",
		"unmount:b", "unmount:a",
		"dispose:b", "dispose:a",
	}, log)
	assert.Equal(t, 0, rt.Stack().Depth())
	assert.Equal(t, StatusComplete, rt.Status())
}

func TestRuntime_PopLeavesNoResources(t *testing.T) {
	var ref *memory.Ref[int]
	owner := &hookBehavior{
		name:   "owner",
		events: []string{"custom", "timer:*"},
		mount: func(ctx *ExecutionContext, b *Block) ([]Action, error) {
			var err error
			ref, err = memory.Allocate(ctx.Memory(), "counter", b.Key, 1)
			if err != nil {
				return nil, err
			}
			_, err = ref.Subscribe(func(next, prev int) {})
			return nil, err
		},
	}
	compiler := &fakeCompiler{root: func(ctx *ExecutionContext) *Block {
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, owner)
	}}
	trace := NewTrace()
	rt, _ := newTestRuntime(t, compiler, WithObserver(trace))

	require.NoError(t, rt.Start())
	key := rt.Stack().Current().Key
	assert.Equal(t, 1, rt.Memory().Count(key))
	assert.Equal(t, 2, rt.Bus().Count(key))
	assert.Equal(t, 1, rt.Memory().Subscribers(key))

	require.NoError(t, rt.Submit(CompleteBlock{Key: key}))

	assert.Equal(t, 0, rt.Memory().Count(key))
	assert.Equal(t, 0, rt.Memory().Subscribers(key))
	assert.Equal(t, 0, rt.Bus().Count(key))
	assert.Empty(t, memory.Search[int](rt.Memory(), memory.Criteria{Type: "counter"}, []string{key}))
	assert.False(t, ref.Valid())
	_, err := ref.Get()
	assert.ErrorIs(t, err, memory.ErrReleased)

	// The system stop handler is the only registration left.
	assert.Equal(t, 1, rt.Bus().Len())
	assert.Equal(t, 0, rt.Bus().Matching("custom"))
}

func TestRuntime_LeakDetected(t *testing.T) {
	leaky := &hookBehavior{
		name: "leaky",
		unmount: func(ctx *ExecutionContext, b *Block) ([]Action, error) {
			return []Action{NewAction("late-alloc", func(ctx *ExecutionContext) error {
				_, err := memory.Allocate(ctx.Memory(), "late", b.Key, true)
				return err
			})}, nil
		},
	}
	compiler := &fakeCompiler{root: func(ctx *ExecutionContext) *Block {
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, leaky)
	}}
	rt, _ := newTestRuntime(t, compiler)
	require.NoError(t, rt.Start())

	err := rt.Submit(CompleteBlock{Key: rt.Stack().Current().Key})
	require.Error(t, err)
	assert.True(t, IsLeak(err))
	assert.Equal(t, StatusHalted, rt.Status())
}

func TestRuntime_PushGroupCompilesOnDemand(t *testing.T) {
	var log []string
	compiler := &fakeCompiler{}
	compiler.root = func(ctx *ExecutionContext) *Block {
		runner := &hookBehavior{
			name: "runner",
			log:  &log,
			mount: func(ctx *ExecutionContext, b *Block) ([]Action, error) {
				return []Action{PushGroup{Parent: b.Key, IDs: []int{1}}}, nil
			},
		}
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, runner)
	}
	rt, _ := newTestRuntime(t, compiler)

	require.NoError(t, rt.Start())
	assert.Equal(t, [][]int{{1}}, compiler.calls)
	assert.Equal(t, 2, rt.Stack().Depth())
	assert.Equal(t, "Run", rt.Stack().Current().Label)
	assert.Equal(t, 1, rt.Compiles())

	require.NoError(t, rt.Next())
	assert.Equal(t, 1, rt.Stack().Depth())
	assert.Equal(t, []string{"mount:runner", "next:runner"}, log)
}

func TestRuntime_PushGroupUnknownIDsSkips(t *testing.T) {
	var log []string
	compiler := &fakeCompiler{}
	compiler.root = func(ctx *ExecutionContext) *Block {
		runner := &hookBehavior{
			name: "runner",
			log:  &log,
			mount: func(ctx *ExecutionContext, b *Block) ([]Action, error) {
				return []Action{PushGroup{Parent: b.Key, IDs: []int{99}}}, nil
			},
		}
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, runner)
	}
	trace := NewTrace()
	rt, _ := newTestRuntime(t, compiler, WithObserver(trace))

	require.NoError(t, rt.Start())
	assert.Empty(t, compiler.calls)
	assert.Equal(t, 1, rt.Stack().Depth())
	assert.Contains(t, trace.EventNames(), EventRuntimeError)
	assert.Equal(t, []string{"mount:runner", "next:runner"}, log)
	assert.Equal(t, StatusRunning, rt.Status())
}

func TestRuntime_NilCompileIsFatal(t *testing.T) {
	compiler := &fakeCompiler{
		build: func(*ExecutionContext, []*ir.Statement) *Block { return nil },
	}
	compiler.root = func(ctx *ExecutionContext) *Block {
		runner := &hookBehavior{
			name: "runner",
			mount: func(ctx *ExecutionContext, b *Block) ([]Action, error) {
				return []Action{PushGroup{Parent: b.Key, IDs: []int{2}}}, nil
			},
		}
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, runner)
	}
	rt, _ := newTestRuntime(t, compiler)

	err := rt.Start()
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
	assert.Equal(t, StatusHalted, rt.Status())
}

func TestRuntime_DispatchWithoutHandlersIsIdempotent(t *testing.T) {
	trace := NewTrace()
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithObserver(trace))
	require.NoError(t, rt.Start())

	memBefore := rt.Memory().Len()
	busBefore := rt.Bus().Len()
	depthBefore := rt.Stack().Depth()

	require.NoError(t, rt.Dispatch("nobody:listens", map[string]any{"x": 1}))

	turn := rt.Turn()
	actions := trace.ActionsInTurn(turn)
	require.Len(t, actions, 1)
	assert.Equal(t, "emit:nobody:listens", actions[0].Type)

	last := trace.Events[len(trace.Events)-1]
	assert.Equal(t, "nobody:listens", last.Name)
	assert.Equal(t, 0, last.Handlers)

	assert.Equal(t, memBefore, rt.Memory().Len())
	assert.Equal(t, busBefore, rt.Bus().Len())
	assert.Equal(t, depthBefore, rt.Stack().Depth())
	assert.Equal(t, StatusRunning, rt.Status())
}

func TestRuntime_StopUnmountsEverything(t *testing.T) {
	var log []string
	compiler := &fakeCompiler{}
	compiler.build = func(ctx *ExecutionContext, statements []*ir.Statement) *Block {
		return NewBlock(ctx.NewKey(), KindEffort, statements[0].Label(), []int{statements[0].ID},
			&hookBehavior{name: "child", log: &log})
	}
	compiler.root = func(ctx *ExecutionContext) *Block {
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, &hookBehavior{
			name: "root",
			log:  &log,
			mount: func(ctx *ExecutionContext, b *Block) ([]Action, error) {
				return []Action{PushGroup{Parent: b.Key, IDs: []int{1}}}, nil
			},
		})
	}
	trace := NewTrace()
	rt, _ := newTestRuntime(t, compiler, WithObserver(trace))

	require.NoError(t, rt.Start())
	require.Equal(t, 2, rt.Stack().Depth())

	require.NoError(t, rt.Stop())
	assert.Equal(t, 0, rt.Stack().Depth())
	assert.Equal(t, StatusStopped, rt.Status())
	assert.Equal(t, []string{
		"mount:root", "mount:child",
		"unmount:child", "dispose:child",
		"unmount:root", "dispose:root",
	}, log)
	assert.Contains(t, trace.EventNames(), EventWorkoutStopped)
	assert.Equal(t, 0, rt.Memory().Len())
}

func TestRuntime_TickIgnoredWhenNotRunning(t *testing.T) {
	trace := NewTrace()
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithObserver(trace))

	require.NoError(t, rt.Tick())
	assert.Empty(t, trace.EventNames())

	require.NoError(t, rt.Start())
	require.NoError(t, rt.Tick())
	assert.Equal(t, []string{EventTick}, trace.EventNames())
}

func TestRuntime_StartTwiceFails(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeCompiler{})
	require.NoError(t, rt.Start())
	err := rt.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotIdle)
	assert.Equal(t, StatusRunning, rt.Status(), "a rejected start does not halt")
}

func TestRuntime_StartAfterStopNeedsReset(t *testing.T) {
	compiler := &fakeCompiler{}
	rt, _ := newTestRuntime(t, compiler)
	require.NoError(t, rt.Start())
	require.NoError(t, rt.Stop())
	require.Equal(t, StatusStopped, rt.Status())
	require.Equal(t, 0, rt.Stack().Depth())

	turns := rt.Turn()
	assert.ErrorIs(t, rt.Start(), ErrNotIdle)
	assert.Equal(t, turns, rt.Turn(), "no turn is submitted")
	assert.Equal(t, 0, rt.Stack().Depth())

	rt.Reset()
	require.NoError(t, rt.Start())
	assert.Equal(t, StatusRunning, rt.Status())
}

func TestRuntime_EventHandlerErrorFailsTurn(t *testing.T) {
	bad := &hookBehavior{
		name:   "bad",
		events: []string{"explode"},
		event: func(*ExecutionContext, *Block, eventbus.Event) ([]Action, error) {
			return nil, errors.New("kaboom")
		},
	}
	compiler := &fakeCompiler{root: func(ctx *ExecutionContext) *Block {
		return NewBlock(ctx.NewKey(), KindRoot, "root", nil, bad)
	}}
	rt, _ := newTestRuntime(t, compiler)
	require.NoError(t, rt.Start())

	err := rt.Dispatch("explode", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, StatusHalted, rt.Status())
}

type failingSink struct{}

func (failingSink) Record(ir.ExecutionRecord) error { return errors.New("disk full") }

func TestRuntime_HistoryFailureIsBoundaryError(t *testing.T) {
	trace := NewTrace()
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithObserver(trace), WithHistory(failingSink{}))

	require.NoError(t, rt.Submit(RecordHistory{Record: ir.ExecutionRecord{ID: "b-9", Label: "Run"}}))
	assert.Equal(t, []string{EventRuntimeError}, trace.EventNames())
	assert.Equal(t, StatusIdle, rt.Status())
}

func TestRuntime_MemoryLogReceivesRecords(t *testing.T) {
	log := NewMemoryLog()
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithHistory(log))

	require.NoError(t, rt.Submit(RecordHistory{Record: ir.ExecutionRecord{ID: "b-1", Label: "Run"}}))
	require.NoError(t, rt.Submit(RecordHistory{Record: ir.ExecutionRecord{ID: "b-2", Label: "Row"}}))

	assert.Equal(t, 2, log.Len())
	assert.Len(t, log.ByLabel("Row"), 1)
	assert.Equal(t, "b-1", log.Records()[0].ID)
}

func TestTrace_Lines(t *testing.T) {
	trace := NewTrace()
	rt, _ := newTestRuntime(t, &fakeCompiler{}, WithObserver(trace))
	require.NoError(t, rt.Start())
	require.NoError(t, rt.Dispatch("ping", nil))

	assert.Equal(t, []string{
		"turn=1 iter=1 action start",
		"turn=2 iter=1 action emit:ping",
		"turn=2 iter=1 event ping handlers=0",
	}, trace.Lines())
	assert.True(t, strings.HasPrefix(trace.String(), "turn=1 iter=1 action start\n"))
}
