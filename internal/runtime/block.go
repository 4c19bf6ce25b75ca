package runtime

import (
	"fmt"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
)

// Behavior is one capability composed into a block. A behavior implements
// any subset of Mounter, Nexter, Unmounter, Disposer and EventHandler.
// Behaviors keep no state of their own outside memory.
type Behavior interface {
	Name() string
}

// Mounter runs when the block is pushed.
type Mounter interface {
	OnMount(ctx *ExecutionContext, b *Block) ([]Action, error)
}

// Nexter runs when the block's current child has completed.
type Nexter interface {
	OnNext(ctx *ExecutionContext, b *Block) ([]Action, error)
}

// Unmounter runs when the block is popped, before disposal.
type Unmounter interface {
	OnUnmount(ctx *ExecutionContext, b *Block) ([]Action, error)
}

// Disposer runs after unmount, right before the block's memory is released.
type Disposer interface {
	OnDispose(ctx *ExecutionContext, b *Block) error
}

// EventHandler receives bus events while the block is on the stack.
type EventHandler interface {
	Events() []string
	OnEvent(ctx *ExecutionContext, b *Block, ev eventbus.Event) ([]Action, error)
}

// Block kinds produced by the compiler.
const (
	KindRoot            = "root"
	KindTimeBoundRounds = "time-bound-rounds"
	KindInterval        = "interval"
	KindTimer           = "timer"
	KindRounds          = "rounds"
	KindGroup           = "group"
	KindEffort          = "effort"
)

// Block is an ordered set of behaviors plus identity. A block does not know
// its position; the stack owns ordering. Children are referenced only by
// statement-id groups and compiled when pushed.
type Block struct {
	Key         string
	Kind        string
	Label       string
	SourceIDs   []int
	ChildGroups [][]int
	Fragments   []ir.Fragment
	Behaviors   []Behavior
}

// NewBlock creates a block with the given behaviors in hook order.
func NewBlock(key, kind, label string, sourceIDs []int, behaviors ...Behavior) *Block {
	return &Block{
		Key:       key,
		Kind:      kind,
		Label:     label,
		SourceIDs: append([]int(nil), sourceIDs...),
		Behaviors: behaviors,
	}
}

// String implements fmt.Stringer.
func (b *Block) String() string {
	return fmt.Sprintf("%s[%s %q]", b.Kind, b.Key, b.Label)
}

// Behavior returns the first behavior with the given name.
func (b *Block) Behavior(name string) (Behavior, bool) {
	for _, bh := range b.Behaviors {
		if bh.Name() == name {
			return bh, true
		}
	}
	return nil, false
}

// BehaviorNames lists behavior names in hook order.
func (b *Block) BehaviorNames() []string {
	names := make([]string, len(b.Behaviors))
	for i, bh := range b.Behaviors {
		names[i] = bh.Name()
	}
	return names
}

// FindBehavior returns the first behavior of type T composed into b.
func FindBehavior[T Behavior](b *Block) (T, bool) {
	for _, bh := range b.Behaviors {
		if t, ok := bh.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Mount runs OnMount hooks in list order and collects their actions.
func (b *Block) Mount(ctx *ExecutionContext) ([]Action, error) {
	var out []Action
	for _, bh := range b.Behaviors {
		m, ok := bh.(Mounter)
		if !ok {
			continue
		}
		acts, err := m.OnMount(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("%s mount %s: %w", b.Key, bh.Name(), err)
		}
		out = append(out, acts...)
	}
	return out, nil
}

// Next runs OnNext hooks in list order and collects their actions.
func (b *Block) Next(ctx *ExecutionContext) ([]Action, error) {
	var out []Action
	for _, bh := range b.Behaviors {
		n, ok := bh.(Nexter)
		if !ok {
			continue
		}
		acts, err := n.OnNext(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("%s next %s: %w", b.Key, bh.Name(), err)
		}
		out = append(out, acts...)
	}
	return out, nil
}

// Unmount runs OnUnmount hooks in reverse order so later-mounted state is
// torn down first.
func (b *Block) Unmount(ctx *ExecutionContext) ([]Action, error) {
	var out []Action
	for i := len(b.Behaviors) - 1; i >= 0; i-- {
		u, ok := b.Behaviors[i].(Unmounter)
		if !ok {
			continue
		}
		acts, err := u.OnUnmount(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("%s unmount %s: %w", b.Key, b.Behaviors[i].Name(), err)
		}
		out = append(out, acts...)
	}
	return out, nil
}

// Dispose runs OnDispose hooks in reverse order.
func (b *Block) Dispose(ctx *ExecutionContext) error {
	for i := len(b.Behaviors) - 1; i >= 0; i-- {
		d, ok := b.Behaviors[i].(Disposer)
		if !ok {
			continue
		}
		if err := d.OnDispose(ctx, b); err != nil {
			return fmt.Errorf("%s dispose %s: %w", b.Key, b.Behaviors[i].Name(), err)
		}
	}
	return nil
}

// register wires every EventHandler behavior into the bus under the block key.
// Handlers run against the context of the dispatching turn, not the one
// that pushed the block.
func (b *Block) register(ctx *ExecutionContext) {
	rt := ctx.rt
	for _, bh := range b.Behaviors {
		h, ok := bh.(EventHandler)
		if !ok {
			continue
		}
		for _, name := range h.Events() {
			h, bh := h, bh
			ctx.bus().Register(name, b.Key, func(ev eventbus.Event) []Action {
				live := rt.cur
				if live == nil {
					live = ctx
				}
				acts, err := h.OnEvent(live, b, ev)
				if err != nil {
					return []Action{failAction(bh.Name(), fmt.Errorf("%s event %s: %w", b.Key, ev.Name, err))}
				}
				return acts
			})
		}
	}
}
