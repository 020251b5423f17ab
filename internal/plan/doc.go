// Package plan decomposes a chain into pieces of work: the minimum number of
// single-pass loops needed to run every operator of the chain.
//
// Decompose walks the chain once, keeping one open piece and a sameSize flag
// seeded from the source's static count:
//
//	Map, TypeCast, Identity            close the piece if it ends in a sort
//	Filter, TakeWhile, SkipWhile,
//	FlattenMap, TypeFilter             same, then the count becomes unknown
//	SortBy                             close the piece unless the count is known
//	                                   and it does not already end in a sort
//	RefineSortBy                       always joins the open piece
//
// Every closure materializes its output, so the next piece starts with a
// known count. A sort piece is therefore only ever asked to sort a buffer of
// fixed size, and the sort engine can allocate exact key and index buffers.
//
// Pieces come out in chain order. Concatenating their operators reproduces
// the chain exactly, and the output of piece i is the input of piece i+1.
package plan
