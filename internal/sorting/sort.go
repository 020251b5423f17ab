package sorting

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// insertionThreshold is the largest partition finished by insertion sort.
const insertionThreshold = 16

// LengthError reports a buffer whose length does not match the declared
// element count.
type LengthError struct {
	Buffer string
	Want   int
	Got    int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("sorting: %s has length %d, want %d", e.Buffer, e.Got, e.Want)
}

// Sort permutes index so that the source positions it holds are ordered by
// keys, outermost first, ties broken by position. index normally starts as
// 0..n-1 (see Identity); every key buffer must have length n.
//
// n <= 1 returns immediately without touching index.
func Sort(n int, index []int, keys ...Keys) {
	if len(index) != n {
		panic(&LengthError{Buffer: "index map", Want: n, Got: len(index)})
	}
	for i, k := range keys {
		if k.Len() != n {
			panic(&LengthError{Buffer: fmt.Sprintf("key buffer %d", i), Want: n, Got: k.Len()})
		}
	}
	if n <= 1 {
		return
	}
	introSort(multiKey(keys), index)
}

// SortOrdered is the single-key fast path: the comparison is instantiated
// for K instead of going through the Keys interface.
func SortOrdered[K constraints.Ordered](index []int, values []K, dir Direction) {
	if len(index) != len(values) {
		panic(&LengthError{Buffer: "index map", Want: len(values), Got: len(index)})
	}
	if len(index) <= 1 {
		return
	}
	introSort(orderedKey[K]{values: values, desc: dir == Descending}, index)
}

// Identity returns the index map 0..n-1.
func Identity(n int) []int {
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}
	return index
}

// depthLimit returns 2*(floor(log2(n))+1).
func depthLimit(n int) int {
	return 2 * bits.Len(uint(n))
}

func introSort[C comparer](c C, index []int) {
	introSortRange(c, index, 0, len(index)-1, depthLimit(len(index)))
}

func introSortRange[C comparer](c C, index []int, lo, hi, depth int) {
	for hi > lo {
		size := hi - lo + 1
		if size <= insertionThreshold {
			switch size {
			case 2:
				swapIfGreater(c, index, lo, hi)
			case 3:
				swapIfGreater(c, index, lo, hi-1)
				swapIfGreater(c, index, lo, hi)
				swapIfGreater(c, index, hi-1, hi)
			default:
				insertionSort(c, index, lo, hi)
			}
			return
		}
		if depth == 0 {
			heapSort(c, index, lo, hi)
			return
		}
		depth--

		p := partition(c, index, lo, hi)
		introSortRange(c, index, p+1, hi, depth)
		hi = p - 1
	}
}

func swapIfGreater[C comparer](c C, index []int, a, b int) {
	if a != b && c.compare(index[a], index[b]) > 0 {
		index[a], index[b] = index[b], index[a]
	}
}

// partition orders lo, mid and hi, parks the median at hi-1 and partitions
// the range around it. lo and hi act as sentinels for the inner scans.
func partition[C comparer](c C, index []int, lo, hi int) int {
	mid := lo + (hi-lo)/2
	swapIfGreater(c, index, lo, mid)
	swapIfGreater(c, index, lo, hi)
	swapIfGreater(c, index, mid, hi)

	pivot := index[mid]
	index[mid], index[hi-1] = index[hi-1], index[mid]

	left, right := lo, hi-1
	for left < right {
		left++
		for c.compare(index[left], pivot) < 0 {
			left++
		}
		right--
		for c.compare(pivot, index[right]) < 0 {
			right--
		}
		if left >= right {
			break
		}
		index[left], index[right] = index[right], index[left]
	}
	if left != hi-1 {
		index[left], index[hi-1] = index[hi-1], index[left]
	}
	return left
}

func insertionSort[C comparer](c C, index []int, lo, hi int) {
	for i := lo; i < hi; i++ {
		t := index[i+1]
		j := i
		for j >= lo && c.compare(t, index[j]) < 0 {
			index[j+1] = index[j]
			j--
		}
		index[j+1] = t
	}
}

func heapSort[C comparer](c C, index []int, lo, hi int) {
	n := hi - lo + 1
	for i := n / 2; i >= 1; i-- {
		downHeap(c, index, i, n, lo)
	}
	for i := n; i > 1; i-- {
		index[lo], index[lo+i-1] = index[lo+i-1], index[lo]
		downHeap(c, index, 1, i-1, lo)
	}
}

// downHeap sifts the 1-based heap slot i down within a heap of n slots
// rooted at lo.
func downHeap[C comparer](c C, index []int, i, n, lo int) {
	d := index[lo+i-1]
	for i <= n/2 {
		child := 2 * i
		if child < n && c.compare(index[lo+child-1], index[lo+child]) < 0 {
			child++
		}
		if c.compare(d, index[lo+child-1]) >= 0 {
			break
		}
		index[lo+i-1] = index[lo+child-1]
		i = child
	}
	index[lo+i-1] = d
}
