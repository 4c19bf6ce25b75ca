// Package eventbus routes named events to handlers registered by blocks.
//
// Handlers never mutate state themselves: they return values of the bus's
// action type, which the caller executes through its single mutation path.
// Handlers are grouped by owner so a block's registrations can be dropped in
// one call when the block leaves the stack.
//
// Dispatch is single-threaded. Multiple handlers may register for the same
// name; they run in registration order.
package eventbus
