// Package runtime executes compiled workout blocks.
//
// A Runtime owns the block stack, block-scoped memory and the event bus.
// External input enters as an Action passed to Submit; each Submit is one
// turn. The clock is read once per turn and every action, hook and event in
// the turn sees that reading through ExecutionContext.Now. Actions produced
// during the turn run depth-first through ExecutionContext.Execute, bounded
// by an iteration limit.
//
// Blocks are ordered lists of behaviors. Pushing a block registers its
// event handlers and runs its mount hooks; popping it runs unmount and
// dispose hooks, releases everything the block owns, and verifies nothing
// was left behind.
//
// Fatal errors halt the runtime. Submit returns ErrHalted until Reset.
package runtime
