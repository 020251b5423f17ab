// Package buffer provides the accumulation buffer used by pieces whose
// output size is not statically known.
package buffer

import "slices"

// Growable accumulates elements of unknown count. Add is amortized O(1);
// Count and ToArray are valid after any sequence of adds. A Growable that
// is never finalized can simply be dropped.
type Growable[T any] struct {
	items []T
}

// New returns an empty buffer.
func New[T any]() *Growable[T] {
	return &Growable[T]{}
}

// NewSized returns a buffer pre-sized for n elements. Pieces whose size is
// known use it so that adds never reallocate.
func NewSized[T any](n int) *Growable[T] {
	return &Growable[T]{items: make([]T, 0, n)}
}

// Add appends one element.
func (g *Growable[T]) Add(v T) {
	g.items = append(g.items, v)
}

// Count returns the number of elements added so far.
func (g *Growable[T]) Count() int {
	return len(g.items)
}

// At returns the element at position i.
func (g *Growable[T]) At(i int) T {
	return g.items[i]
}

// ToArray returns the elements as an exactly sized slice owned by the
// caller and resets the buffer.
func (g *Growable[T]) ToArray() []T {
	out := slices.Clip(g.items)
	g.items = nil
	if out == nil {
		out = []T{}
	}
	return out
}

// Reset discards all elements.
func (g *Growable[T]) Reset() {
	clear(g.items)
	g.items = g.items[:0]
}
