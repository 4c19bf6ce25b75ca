// Package memory implements block-scoped typed storage.
//
// Every reference is allocated by exactly one owner (a block key) and is
// released together with that owner. There is no global namespace: lookups
// go through Search with an explicit list of live owners, which the runtime
// fills from the current stack.
//
// Writes notify subscribers synchronously, in subscription order, before Set
// returns. A released reference rejects every operation with ErrReleased.
//
// The store is not safe for concurrent use; the runtime drives it from a
// single goroutine.
package memory
