// Package ir holds the workout intermediate representation: statements and
// fragments produced by the upstream parser, the Script index over them, and
// the execution records the runtime emits.
//
// ir imports nothing internal; every other package depends on it.
//
// Key constraints:
//   - statements are read-only once built; annotation passes return copies
//   - numeric fragment values are int64 (or []int64 for rep schemes), never float
//   - durations are integer milliseconds on the wire
//   - JSON tags use snake_case
package ir
