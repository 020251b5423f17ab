package sorting

import "golang.org/x/exp/constraints"

// Apply materializes a sorted permutation: dst[k] = src[index[k]].
// dst must not alias src.
func Apply[T any](dst, src []T, index []int) {
	if len(dst) != len(index) {
		panic(&LengthError{Buffer: "destination", Want: len(index), Got: len(dst)})
	}
	if len(src) != len(index) {
		panic(&LengthError{Buffer: "source", Want: len(index), Got: len(src)})
	}
	for k, i := range index {
		dst[k] = src[i]
	}
}

// ApplyInPlace reorders buf so that buf[k] holds what buf[index[k]] held
// before the call, following permutation cycles instead of allocating a
// second element buffer. index is left unchanged on return.
func ApplyInPlace[T any](buf []T, index []int) {
	if len(buf) != len(index) {
		panic(&LengthError{Buffer: "element buffer", Want: len(index), Got: len(buf)})
	}
	// Visited slots are marked by complementing their index entry.
	for start := range index {
		if index[start] < 0 {
			continue
		}
		saved := buf[start]
		cur := start
		for {
			next := index[cur]
			index[cur] = ^next
			if next == start {
				buf[cur] = saved
				break
			}
			buf[cur] = buf[next]
			cur = next
		}
	}
	for i := range index {
		index[i] = ^index[i]
	}
}

// SortBy returns src ordered by key in a freshly allocated slice. The
// index map is rented from the scratch pool and returned on every path.
func SortBy[T any, K constraints.Ordered](src []T, key func(T) K, dir Direction) []T {
	out := make([]T, len(src))
	if len(src) <= 1 {
		copy(out, src)
		return out
	}

	keys := make([]K, len(src))
	for i, v := range src {
		keys[i] = key(v)
	}

	scratch := RentIndex(len(src))
	defer scratch.Release()

	SortOrdered(scratch.Index, keys, dir)
	Apply(out, src, scratch.Index)
	return out
}

// SortInPlace orders buf by the given key buffers without allocating a
// second element buffer. Used when the sort piece kept its element type.
func SortInPlace[T any](buf []T, keys ...Keys) {
	if len(buf) <= 1 {
		return
	}
	scratch := RentIndex(len(buf))
	defer scratch.Release()

	Sort(len(buf), scratch.Index, keys...)
	ApplyInPlace(buf, scratch.Index)
}
