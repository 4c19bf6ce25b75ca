package behaviors

import (
	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/runtime"
)

// Completion completes an orchestrating block once its children have all
// run. When the block also counts rounds, the final round must be done too.
// A block with no children completes as soon as it is mounted.
type Completion struct{}

func (Completion) Name() string { return "completion" }

func (c Completion) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	return c.check(ctx, b)
}

func (c Completion) OnNext(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	return c.check(ctx, b)
}

func (Completion) check(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	done, err := get[bool](ctx, b, MemChildrenDone)
	if err != nil || !done {
		return nil, err
	}
	roundsDone, counted, err := lookup[bool](ctx, b, MemRoundsComplete)
	if err != nil {
		return nil, err
	}
	if counted && !roundsDone {
		return nil, nil
	}
	return []runtime.Action{runtime.CompleteBlock{Key: b.Key}}, nil
}

// TimerCompletion completes the block when its own timer expires.
type TimerCompletion struct{}

func (TimerCompletion) Name() string { return "timer-completion" }

func (TimerCompletion) Events() []string { return []string{EventTimerComplete} }

func (TimerCompletion) OnEvent(ctx *runtime.ExecutionContext, b *runtime.Block, ev eventbus.Event) ([]runtime.Action, error) {
	if !forBlock(ev, b) {
		return nil, nil
	}
	return []runtime.Action{runtime.CompleteBlock{Key: b.Key}}, nil
}

// NextOnEvent completes the block on block:next, but only while it is the
// innermost block, so one press advances one level.
type NextOnEvent struct{}

func (NextOnEvent) Name() string { return "next-on-event" }

func (NextOnEvent) Events() []string { return []string{runtime.EventBlockNext} }

func (NextOnEvent) OnEvent(ctx *runtime.ExecutionContext, b *runtime.Block, _ eventbus.Event) ([]runtime.Action, error) {
	if ctx.Stack().Current() != b {
		return nil, nil
	}
	return []runtime.Action{runtime.CompleteBlock{Key: b.Key}}, nil
}
