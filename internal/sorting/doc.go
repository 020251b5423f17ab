// Package sorting implements the stable multi-key index sort used by sort
// pieces.
//
// The engine never moves element data. It permutes an index map so that
// reading source[index[k]] for k = 0..N-1 yields the elements ordered by the
// first key, ties broken by the second key and so on. Ties that survive every
// key are broken by original position, which makes an otherwise unstable
// introsort stable:
//
//	compare(i, j) = key0(i, j), else key1(i, j), ..., else i - j
//
// Algorithm: introspective sort. Quicksort with median-of-three pivots,
// heapsort once recursion depth exceeds 2*(log2(N)+1), insertion sort for
// partitions of at most 16 elements and direct compare-and-swap for three or
// fewer.
//
// Key buffers are dense per-element arrays aligned with the source. Ordered
// covers any constraints.Ordered key without interface dispatch inside the
// comparison; Func carries an explicit comparator for everything else.
//
// Mismatched buffer lengths are contract violations and panic with
// *LengthError; nothing here fails for data-dependent reasons.
package sorting
