package behaviors

import (
	"time"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/runtime"
)

// Interval drives EMOM-style blocks. Each time the block's own timer
// expires it abandons unfinished children, closes the round, and either
// completes the block after the last round or extends the timer by one
// more interval and starts the children over.
//
// The timer keeps its spans across intervals; its duration grows by Every
// per round, so late ticks shorten the next interval instead of drifting.
type Interval struct {
	Every time.Duration
}

func (i *Interval) Name() string { return "interval" }

func (i *Interval) Events() []string { return []string{EventTimerComplete} }

func (i *Interval) OnEvent(ctx *runtime.ExecutionContext, b *runtime.Block, ev eventbus.Event) ([]runtime.Action, error) {
	if !forBlock(ev, b) {
		return nil, nil
	}
	current, err := get[int](ctx, b, MemRoundsCurrent)
	if err != nil {
		return nil, err
	}
	total, err := get[int](ctx, b, MemRoundsTotal)
	if err != nil {
		return nil, err
	}
	if err := completeRound(ctx, b); err != nil {
		return nil, err
	}

	actions := []runtime.Action{
		popAbove(b),
		emit(EventRoundCompleted, b, map[string]any{"round": current}),
	}
	if total > 0 && current >= total {
		return append(actions, runtime.CompleteBlock{Key: b.Key}), nil
	}

	next := current + 1
	if err := beginRound(ctx, b, next); err != nil {
		return nil, err
	}
	if err := i.restart(ctx, b, next); err != nil {
		return nil, err
	}
	actions = append(actions, emit(EventRoundStarted, b, map[string]any{"round": next}))
	if len(b.ChildGroups) > 0 {
		actions = append(actions, runtime.PushGroup{Parent: b.Key, IDs: b.ChildGroups[0]})
	}
	return actions, nil
}

func (i *Interval) restart(ctx *runtime.ExecutionContext, b *runtime.Block, round int) error {
	if err := set(ctx, b, MemTimerDuration, time.Duration(round)*i.Every); err != nil {
		return err
	}
	if err := set(ctx, b, MemTimerComplete, false); err != nil {
		return err
	}
	return startTimer(ctx, b, ir.SpanWork)
}

// popAbove pops every block stacked on top of b.
func popAbove(b *runtime.Block) runtime.Action {
	return runtime.NewAction("pop-children", func(ctx *runtime.ExecutionContext) error {
		for {
			top := ctx.Stack().Current()
			if top == nil || top.Key == b.Key || !ctx.Stack().Contains(b.Key) {
				return nil
			}
			if _, err := ctx.Pop(); err != nil {
				return err
			}
		}
	})
}
