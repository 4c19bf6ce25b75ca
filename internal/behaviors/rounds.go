package behaviors

import (
	"fmt"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/runtime"
)

// RoundsInit allocates round state and announces round 1. Total 0 means
// unbounded (AMRAP). A rep scheme such as 21-15-9 implies its own total
// and publishes the current round's reps as metric:reps for children.
type RoundsInit struct {
	Total int
	Reps  []int64
}

func (r *RoundsInit) Name() string { return "rounds-init" }

func (r *RoundsInit) total() int {
	if r.Total == 0 && len(r.Reps) > 1 {
		return len(r.Reps)
	}
	return r.Total
}

func (r *RoundsInit) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	reps := append([]int64(nil), r.Reps...)
	if err := allocate(ctx, b, MemRoundsCurrent, 1); err != nil {
		return nil, err
	}
	if err := allocate(ctx, b, MemRoundsTotal, r.total()); err != nil {
		return nil, err
	}
	if err := allocate(ctx, b, MemRoundsCompleted, 0); err != nil {
		return nil, err
	}
	if err := allocate(ctx, b, MemRoundsReps, reps); err != nil {
		return nil, err
	}
	if len(reps) > 0 {
		if err := allocate(ctx, b, MemMetricReps, reps[0]); err != nil {
			return nil, err
		}
	}
	return []runtime.Action{emit(EventRoundStarted, b, map[string]any{"round": 1})}, nil
}

// RoundsAdvance moves to the next round once the child runner reports
// every child executed. It resets the child index, refreshes metric:reps
// and pushes the first child group again. On the final round it only
// announces round:completed and leaves completion to other behaviors.
type RoundsAdvance struct{}

func (RoundsAdvance) Name() string { return "rounds-advance" }

func (RoundsAdvance) OnNext(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	done, err := get[bool](ctx, b, MemChildrenDone)
	if err != nil || !done {
		return nil, err
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

	actions := []runtime.Action{emit(EventRoundCompleted, b, map[string]any{"round": current})}
	if total > 0 && current >= total {
		return actions, nil
	}

	next := current + 1
	if err := beginRound(ctx, b, next); err != nil {
		return nil, err
	}
	actions = append(actions, emit(EventRoundStarted, b, map[string]any{"round": next}))
	if len(b.ChildGroups) > 0 {
		actions = append(actions, runtime.PushGroup{Parent: b.Key, IDs: b.ChildGroups[0]})
	}
	return actions, nil
}

// RoundsCompletion flags rounds:complete once the last bounded round has
// run all of its children.
type RoundsCompletion struct{}

func (RoundsCompletion) Name() string { return "rounds-completion" }

func (RoundsCompletion) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	return nil, allocate(ctx, b, MemRoundsComplete, false)
}

func (RoundsCompletion) OnNext(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	done, err := get[bool](ctx, b, MemChildrenDone)
	if err != nil || !done {
		return nil, err
	}
	current, err := get[int](ctx, b, MemRoundsCurrent)
	if err != nil {
		return nil, err
	}
	total, err := get[int](ctx, b, MemRoundsTotal)
	if err != nil {
		return nil, err
	}
	if total > 0 && current >= total {
		return nil, set(ctx, b, MemRoundsComplete, true)
	}
	return nil, nil
}

// RoundsDisplay keeps display:round in step with round:started.
type RoundsDisplay struct{}

func (RoundsDisplay) Name() string { return "rounds-display" }

func (RoundsDisplay) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	total, err := get[int](ctx, b, MemRoundsTotal)
	if err != nil {
		return nil, err
	}
	return nil, allocate(ctx, b, MemDisplayRound, RoundLabel(1, total))
}

func (RoundsDisplay) Events() []string { return []string{EventRoundStarted} }

func (RoundsDisplay) OnEvent(ctx *runtime.ExecutionContext, b *runtime.Block, ev eventbus.Event) ([]runtime.Action, error) {
	if !forBlock(ev, b) {
		return nil, nil
	}
	round, _ := ev.Data["round"].(int)
	total, err := get[int](ctx, b, MemRoundsTotal)
	if err != nil {
		return nil, err
	}
	return nil, set(ctx, b, MemDisplayRound, RoundLabel(round, total))
}

// RoundLabel renders "Round 2 of 5", or "Round 2" when unbounded.
func RoundLabel(round, total int) string {
	if total > 0 {
		return fmt.Sprintf("Round %d of %d", round, total)
	}
	return fmt.Sprintf("Round %d", round)
}

func completeRound(ctx *runtime.ExecutionContext, b *runtime.Block) error {
	ref, err := own[int](ctx, b, MemRoundsCompleted)
	if err != nil {
		return err
	}
	return ref.Update(func(n int) int { return n + 1 })
}

// beginRound sets the current round, rewinds the child runner and updates
// the per-round rep count.
func beginRound(ctx *runtime.ExecutionContext, b *runtime.Block, round int) error {
	if err := set(ctx, b, MemRoundsCurrent, round); err != nil {
		return err
	}
	if err := resetChildren(ctx, b); err != nil {
		return err
	}
	reps, err := get[[]int64](ctx, b, MemRoundsReps)
	if err != nil || len(reps) == 0 {
		return err
	}
	return set(ctx, b, MemMetricReps, reps[(round-1)%len(reps)])
}
