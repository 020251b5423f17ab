package sorting

import "sync"

var indexPool = sync.Pool{
	New: func() any {
		buf := make([]int, 0, 64)
		return &buf
	},
}

// Scratch is an index map rented from the shared pool. Index holds the
// identity permutation 0..n-1 when rented.
type Scratch struct {
	Index []int
	buf   *[]int
}

// RentIndex rents an identity index map of length n. Callers must call
// Release exactly once, typically via defer right after renting.
func RentIndex(n int) *Scratch {
	buf := indexPool.Get().(*[]int)
	if cap(*buf) < n {
		*buf = make([]int, n)
	}
	index := (*buf)[:n]
	for i := range index {
		index[i] = i
	}
	return &Scratch{Index: index, buf: buf}
}

// Release returns the index map to the pool. The Scratch must not be used
// afterwards; a second Release is a no-op.
func (s *Scratch) Release() {
	if s.buf == nil {
		return
	}
	*s.buf = (*s.buf)[:0]
	indexPool.Put(s.buf)
	s.buf = nil
	s.Index = nil
}
