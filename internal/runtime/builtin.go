package runtime

import (
	"fmt"

	"github.com/roach88/wodrun/internal/ir"
)

// PushBlock pushes an already compiled block.
type PushBlock struct {
	Block *Block
}

func (a PushBlock) Type() string { return "push-block" }

func (a PushBlock) Do(ctx *ExecutionContext) error {
	return ctx.Push(a.Block)
}

// PushGroup compiles a statement group and pushes the result on top of
// Parent. Unknown ids or an empty group are skipped after reporting
// runtime:error, and the parent is advanced as if the child had run.
// A valid group no strategy can compile is fatal.
type PushGroup struct {
	Parent string
	IDs    []int
}

func (a PushGroup) Type() string { return "push-group" }

func (a PushGroup) Do(ctx *ExecutionContext) error {
	b, err := ctx.Compile(a.IDs)
	if err != nil {
		ctx.Logger().Warn("skipping statement group",
			"turn", ctx.Turn(),
			"parent", a.Parent,
			"ids", a.IDs,
			"error", err)
		if derr := ctx.Dispatch(EventRuntimeError, map[string]any{
			"block": a.Parent,
			"ids":   append([]int(nil), a.IDs...),
			"error": err.Error(),
		}); derr != nil {
			return derr
		}
		return ctx.Next(a.Parent)
	}
	if b == nil {
		return NewCompileError(ctx.Turn(), a.Parent, a.IDs)
	}
	ctx.rt.compiles++
	return ctx.Push(b)
}

// CompleteBlock pops Key and every block above it, then advances the new
// top. When the stack empties the workout is complete. Completing a key that
// is no longer on the stack does nothing.
type CompleteBlock struct {
	Key string
}

func (a CompleteBlock) Type() string { return "complete-block" }

func (a CompleteBlock) Do(ctx *ExecutionContext) error {
	if !ctx.Stack().Contains(a.Key) {
		return nil
	}
	for {
		popped, err := ctx.Pop()
		if err != nil {
			return err
		}
		if popped == nil || popped.Key == a.Key {
			break
		}
	}

	parent := ctx.Stack().Current()
	if parent == nil {
		ctx.rt.setStatus(StatusComplete)
		return ctx.Dispatch(EventWorkoutComplete, nil)
	}
	return ctx.Next(parent.Key)
}

// NextBlock runs the Next hooks of Key.
type NextBlock struct {
	Key string
}

func (a NextBlock) Type() string { return "next" }

func (a NextBlock) Do(ctx *ExecutionContext) error {
	return ctx.Next(a.Key)
}

// EmitEvent dispatches an event within the current turn.
type EmitEvent struct {
	Name string
	Data map[string]any
}

func (a EmitEvent) Type() string { return "emit:" + a.Name }

func (a EmitEvent) Do(ctx *ExecutionContext) error {
	return ctx.Dispatch(a.Name, a.Data)
}

// Tick is the driver's periodic action. It dispatches timer:tick.
type Tick struct{}

func (Tick) Type() string { return "tick" }

func (Tick) Do(ctx *ExecutionContext) error {
	if ctx.rt.status != StatusRunning {
		return nil
	}
	return ctx.Dispatch(EventTick, nil)
}

// Start compiles the root block and pushes it.
type Start struct{}

func (Start) Type() string { return "start" }

func (Start) Do(ctx *ExecutionContext) error {
	if ctx.Stack().Depth() > 0 || ctx.rt.status != StatusIdle {
		return fmt.Errorf("%w: status %s", ErrNotIdle, ctx.rt.status)
	}
	root := ctx.rt.compiler.Root(ctx)
	if root == nil {
		return NewCompileError(ctx.Turn(), "", ctx.Script().Roots())
	}
	ctx.rt.setStatus(StatusRunning)
	return ctx.Push(root)
}

// Stop pops every block, innermost first, and marks the workout stopped.
type Stop struct{}

func (Stop) Type() string { return "stop" }

func (Stop) Do(ctx *ExecutionContext) error {
	for ctx.Stack().Depth() > 0 {
		if _, err := ctx.Pop(); err != nil {
			return err
		}
	}
	ctx.rt.setStatus(StatusStopped)
	return ctx.Dispatch(EventWorkoutStopped, nil)
}

// RecordHistory hands a finished record to the history sink.
type RecordHistory struct {
	Record ir.ExecutionRecord
}

func (a RecordHistory) Type() string { return "record" }

func (a RecordHistory) Do(ctx *ExecutionContext) error {
	return ctx.Record(a.Record)
}
