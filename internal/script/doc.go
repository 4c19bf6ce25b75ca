// Package script loads statement documents into an ir.Script.
//
// A statement document is the parser's output written down: a flat list of
// statements with ids, parent/child links and typed fragments. Documents
// can be YAML (or JSON) or CUE; CUE documents are checked against the
// embedded schema.cue before decoding.
//
// Loaders normalize values so the engine only ever sees int64, string and
// []int64 fragment values. Timers may be written as milliseconds, "m:ss"
// or a Go duration ("20m"); rounds may be a count or a rep scheme
// ("21-15-9").
package script
