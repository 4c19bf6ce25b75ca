// Package compiler turns statement groups into runtime blocks.
//
// JIT tries a fixed, ordered list of strategies and builds a block from
// the first one whose Match accepts the group. Matching looks only at
// fragment types and hints; hints are attached beforehand by analyzers
// run through Annotate, so new vocabulary means a new analyzer rather
// than a strategy change.
//
// Compilation is lazy. A block references its children as statement-id
// groups and each group is compiled only when it is pushed.
package compiler
