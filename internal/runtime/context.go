package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/wodrun/internal/eventbus"
	"github.com/roach88/wodrun/internal/ir"
	"github.com/roach88/wodrun/internal/memory"
)

// ExecutionContext is the view of the runtime handed to actions and
// behavior hooks during one turn. Now() is frozen for the whole turn.
//
// Nested work re-enters through Execute and Dispatch, never through
// Runtime.Submit.
type ExecutionContext struct {
	rt    *Runtime
	turn  int
	now   time.Time
	depth int
}

// Now returns the clock reading taken at the start of the turn.
func (c *ExecutionContext) Now() time.Time { return c.now }

// Turn returns the 1-based turn number.
func (c *ExecutionContext) Turn() int { return c.turn }

// Depth returns the current nesting depth of action execution.
func (c *ExecutionContext) Depth() int { return c.depth }

// Stack returns the runtime stack.
func (c *ExecutionContext) Stack() *Stack { return c.rt.stack }

// Memory returns the block-scoped memory store.
func (c *ExecutionContext) Memory() *memory.Store { return c.rt.memory }

// Script returns the script being executed.
func (c *ExecutionContext) Script() *ir.Script { return c.rt.script }

// Logger returns the runtime logger.
func (c *ExecutionContext) Logger() *slog.Logger { return c.rt.logger }

// Owners returns the live block keys, innermost first. Memory searches are
// scoped to this list.
func (c *ExecutionContext) Owners() []string { return c.rt.stack.Keys() }

// NewKey returns a fresh block key.
func (c *ExecutionContext) NewKey() string { return c.rt.keys.Next() }

func (c *ExecutionContext) bus() *eventbus.Bus[Action] { return c.rt.bus }

// Execute runs actions depth-first in order. Every execution counts toward
// the turn's iteration limit.
func (c *ExecutionContext) Execute(actions ...Action) error {
	for _, a := range actions {
		if a == nil {
			continue
		}
		if err := c.rt.limiter.Check(c.turn, a.Type()); err != nil {
			return err
		}
		c.rt.observe(func(o Observer) {
			o.ActionExecuted(ActionExecution{
				Turn:      c.turn,
				Iteration: c.rt.limiter.Current(),
				Depth:     c.depth,
				Type:      a.Type(),
				Timestamp: c.now,
			})
		})

		c.depth++
		err := a.Do(c)
		c.depth--
		if err != nil {
			return err
		}
	}
	return nil
}

// Dispatch sends an event through the bus and executes the returned actions
// within the current turn. An event with no handlers does nothing.
func (c *ExecutionContext) Dispatch(name string, data map[string]any) error {
	ev := eventbus.Event{Name: name, Timestamp: c.now, Data: data}
	handlers := c.rt.bus.Matching(name)
	c.rt.observe(func(o Observer) {
		o.EventDispatched(EventDispatch{
			Turn:      c.turn,
			Iteration: c.rt.limiter.Current(),
			Name:      name,
			Timestamp: c.now,
			Handlers:  handlers,
		})
	})
	if handlers == 0 {
		return nil
	}
	return c.Execute(c.rt.bus.Dispatch(ev)...)
}

// Compile resolves ids and asks the compiler for a block. It returns
// (nil, nil) when no strategy matched and an error when the ids are not
// part of the script.
func (c *ExecutionContext) Compile(ids []int) (*Block, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty statement group")
	}
	statements, err := c.rt.script.Resolve(ids)
	if err != nil {
		return nil, err
	}
	return c.rt.compiler.Compile(c, statements), nil
}

// Push places b on the stack, wires its handlers, mounts it, and executes
// the collected mount actions.
func (c *ExecutionContext) Push(b *Block) error {
	c.rt.stack.Push(b)
	b.register(c)
	c.rt.logger.Debug("block pushed",
		"turn", c.turn,
		"block", b.Key,
		"kind", b.Kind,
		"label", b.Label,
		"depth", c.rt.stack.Depth())

	actions, err := b.Mount(c)
	if err != nil {
		return err
	}
	return c.Execute(actions...)
}

// Pop unmounts and disposes the top block, releases everything it owns,
// removes it from the stack, and then executes the unmount actions.
// A popped block that owns memory or handlers once those actions have run
// is a leak.
func (c *ExecutionContext) Pop() (*Block, error) {
	b := c.rt.stack.Current()
	if b == nil {
		return nil, nil
	}

	actions, err := b.Unmount(c)
	if err != nil {
		return nil, err
	}
	if err := b.Dispose(c); err != nil {
		return nil, err
	}

	refs := c.rt.memory.Release(b.Key)
	handlers := c.rt.bus.UnregisterAllFor(b.Key)
	c.rt.stack.Pop()
	c.rt.logger.Debug("block popped",
		"turn", c.turn,
		"block", b.Key,
		"released_refs", refs,
		"released_handlers", handlers,
		"depth", c.rt.stack.Depth())

	if err := c.Execute(actions...); err != nil {
		return b, err
	}
	if n, h := c.rt.memory.Count(b.Key), c.rt.bus.Count(b.Key); n != 0 || h != 0 {
		return b, NewLeakError(c.turn, b.Key, n, h)
	}
	return b, nil
}

// Next runs the Next hooks of the block with key and executes the actions.
// It is a no-op when the block is no longer on the stack.
func (c *ExecutionContext) Next(key string) error {
	b := c.find(key)
	if b == nil {
		return nil
	}
	actions, err := b.Next(c)
	if err != nil {
		return err
	}
	return c.Execute(actions...)
}

// Record hands a completed execution record to the history sink. A sink
// failure is a boundary error: it is logged and reported as runtime:error.
func (c *ExecutionContext) Record(rec ir.ExecutionRecord) error {
	if c.rt.history == nil {
		return nil
	}
	if err := c.rt.history.Record(rec); err != nil {
		c.rt.logger.Warn("history record failed",
			"turn", c.turn,
			"record", rec.ID,
			"error", err)
		return c.Dispatch(EventRuntimeError, map[string]any{
			"block": rec.ID,
			"error": err.Error(),
		})
	}
	return nil
}

func (c *ExecutionContext) find(key string) *Block {
	for _, b := range c.rt.stack.blocks {
		if b.Key == key {
			return b
		}
	}
	return nil
}
