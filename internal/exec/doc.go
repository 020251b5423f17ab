// Package exec runs decomposed chains over in-memory element slices.
//
// Run is the fused backend: every piece of a plan executes as one loop, and
// the output of each piece is materialized into the buffer the next piece
// reads. Reference is the naive backend: it runs each operator as its own
// full pass with the standard library's stable sort. The two must agree on
// every chain and every input, which the package tests check over random
// chains.
//
// EXECUTION:
//
// A piece runs in one of three ways, chosen by its LoopType:
//   - forward: visit the input front to back, pushing each element through
//     the fused operators
//   - backward: visit an indexed input back to front; only ever chosen for a
//     final piece feeding last/last_or_default, which stops at the first hit
//   - sort: run the fused prefix into a buffer, extract one dense key buffer
//     per ordering node, sort an index map, then permute the elements
//
// A sort piece whose operators kept the element type permutes its own buffer
// in place. Otherwise the permutation is applied into a fresh buffer.
//
// Functions named by operators and terminals are resolved through a
// Registry. Builtins returns the integer registry used by the CLI, the
// scenario harness and the tests.
package exec
