package behaviors

import (
	"fmt"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/memory"
	"github.com/roach88/wodrun/internal/runtime"
)

// Memory types allocated by behaviors.
const (
	MemTimerSpans    = "timer:spans"    // []ir.TimeSpan
	MemTimerRunning  = "timer:running"  // bool
	MemTimerComplete = "timer:complete" // bool
	MemTimerDuration = "timer:duration" // time.Duration, 0 for count-up

	MemRoundsCurrent   = "rounds:current"   // int, 1-based
	MemRoundsTotal     = "rounds:total"     // int, 0 when unbounded
	MemRoundsReps      = "rounds:reps"      // []int64 rep scheme
	MemRoundsCompleted = "rounds:completed" // int
	MemRoundsComplete  = "rounds:complete"  // bool
	MemMetricReps      = "metric:reps"      // int64, reps for the current round

	MemChildIndex   = "children:index"        // int
	MemChildrenDone = "children:all-executed" // bool

	MemHistoryStart  = "history:start"  // time.Time
	MemHistoryParent = "history:parent" // string

	MemDisplayLabel = "display:label" // string
	MemDisplayRound = "display:round" // string

	MemButtons = "buttons" // []Button
)

// Events emitted by behaviors.
const (
	EventTimerComplete  = "timer:complete"
	EventTimerPaused    = "timer:paused"
	EventTimerStarted   = "timer:started"
	EventRoundStarted   = "round:started"
	EventRoundCompleted = "round:completed"
)

func allocate[T any](ctx *runtime.ExecutionContext, b *runtime.Block, typ string, v T) error {
	_, err := memory.Allocate(ctx.Memory(), typ, b.Key, v)
	return err
}

func own[T any](ctx *runtime.ExecutionContext, b *runtime.Block, typ string) (*memory.Ref[T], error) {
	ref, ok := memory.Lookup[T](ctx.Memory(), typ, b.Key)
	if !ok {
		return nil, fmt.Errorf("%s: %s not allocated", b.Key, typ)
	}
	return ref, nil
}

func get[T any](ctx *runtime.ExecutionContext, b *runtime.Block, typ string) (T, error) {
	ref, err := own[T](ctx, b, typ)
	if err != nil {
		var zero T
		return zero, err
	}
	return ref.Get()
}

func set[T any](ctx *runtime.ExecutionContext, b *runtime.Block, typ string, v T) error {
	ref, err := own[T](ctx, b, typ)
	if err != nil {
		return err
	}
	return ref.Set(v)
}

// lookup reads an optional reference; ok is false when b never allocated it.
func lookup[T any](ctx *runtime.ExecutionContext, b *runtime.Block, typ string) (T, bool, error) {
	var zero T
	ref, ok := memory.Lookup[T](ctx.Memory(), typ, b.Key)
	if !ok {
		return zero, false, nil
	}
	v, err := ref.Get()
	return v, true, err
}

// nearest returns the innermost value of typ on the live stack.
func nearest[T any](ctx *runtime.ExecutionContext, typ string) (T, bool) {
	var zero T
	refs := memory.Search[T](ctx.Memory(), memory.Criteria{Type: typ}, ctx.Owners())
	if len(refs) == 0 {
		return zero, false
	}
	v, err := refs[0].Get()
	if err != nil {
		return zero, false
	}
	return v, true
}

func forBlock(ev eventbus.Event, b *runtime.Block) bool {
	return ev.String("block") == b.Key
}

func emit(name string, b *runtime.Block, extra map[string]any) runtime.Action {
	data := map[string]any{"block": b.Key}
	for k, v := range extra {
		data[k] = v
	}
	return runtime.EmitEvent{Name: name, Data: data}
}
