package behaviors

import (
	"github.com/roach88/wodrun/internal/runtime"
)

// ChildRunner pushes the block's child groups one at a time. Mount pushes
// the first group; each Next pushes the following one. When the groups are
// exhausted it sets children:all-executed and stops. It never completes the
// block itself.
type ChildRunner struct{}

func (ChildRunner) Name() string { return "child-runner" }

func (ChildRunner) OnMount(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	if err := allocate(ctx, b, MemChildIndex, 0); err != nil {
		return nil, err
	}
	if len(b.ChildGroups) == 0 {
		return nil, allocate(ctx, b, MemChildrenDone, true)
	}
	if err := allocate(ctx, b, MemChildrenDone, false); err != nil {
		return nil, err
	}
	return []runtime.Action{runtime.PushGroup{Parent: b.Key, IDs: b.ChildGroups[0]}}, nil
}

func (ChildRunner) OnNext(ctx *runtime.ExecutionContext, b *runtime.Block) ([]runtime.Action, error) {
	done, err := get[bool](ctx, b, MemChildrenDone)
	if err != nil || done {
		return nil, err
	}
	index, err := get[int](ctx, b, MemChildIndex)
	if err != nil {
		return nil, err
	}

	index++
	if index >= len(b.ChildGroups) {
		if err := set(ctx, b, MemChildIndex, len(b.ChildGroups)); err != nil {
			return nil, err
		}
		return nil, set(ctx, b, MemChildrenDone, true)
	}
	if err := set(ctx, b, MemChildIndex, index); err != nil {
		return nil, err
	}
	return []runtime.Action{runtime.PushGroup{Parent: b.Key, IDs: b.ChildGroups[index]}}, nil
}

// ChildrenExecuted reports whether b's child runner has run every group.
func ChildrenExecuted(ctx *runtime.ExecutionContext, b *runtime.Block) (bool, error) {
	return get[bool](ctx, b, MemChildrenDone)
}

func resetChildren(ctx *runtime.ExecutionContext, b *runtime.Block) error {
	if err := set(ctx, b, MemChildIndex, 0); err != nil {
		return err
	}
	return set(ctx, b, MemChildrenDone, len(b.ChildGroups) == 0)
}
