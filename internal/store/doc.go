// Package store provides SQLite-backed storage for workout history.
//
// A session is one run of a workout. Each block that leaves the stack
// produces an ir.ExecutionRecord, which Sink appends to the session with an
// increasing seq.
//
// # Ordering
//
// Queries order by seq ASC, id ASC COLLATE BINARY. Records written in the
// same turn share a frozen timestamp, so wall time cannot order them.
//
// # Encoding
//
// Spans, metrics and source ids are stored as canonical JSON
// (ir.MarshalCanonical) so identical runs produce identical rows.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
