// Package chain provides the chain model consumed by the piece planner.
//
// A chain is an ordered list of lazy sequence operators applied to a source
// collection and closed by exactly one terminal:
//
//	source → Filter → Map → SortBy → RefineSortBy → First
//
// This package contains descriptor types only. Operators never carry
// executable logic: Fn names a predicate, selector or key selector that is
// bound by whichever backend executes the chain. All other internal packages
// import chain; chain imports nothing internal.
//
// # Arena
//
// Chains discovered across many call sites share prefixes. The Arena interns
// every distinct operator once (keyed by its canonical encoding) and stores
// chains as paths of interned references in a prefix trie, so equality of
// operators is an index comparison instead of a structural walk.
//
// # Contract violations
//
// Malformed chains (unknown kinds, a RefineSortBy with no sort to refine)
// are reported by Validate as *ContractError. Consumers that skip validation
// and hit such a chain panic with the same error type.
package chain
