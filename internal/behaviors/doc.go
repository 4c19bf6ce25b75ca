// Package behaviors provides the capability units composed into runtime
// blocks: timers, round counting, child sequencing, completion rules,
// history records, display state and the control button bar.
//
// Behaviors hold configuration only. Everything that changes while a block
// runs lives in block-scoped memory under the type names declared in this
// package, so presentation layers can subscribe to it and the runtime can
// release it when the block is popped.
package behaviors
