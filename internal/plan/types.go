package plan

import (
	"fmt"
	"strings"

	"github.com/roach88/chainfuse/internal/chain"
)

// LoopType is how a piece visits its input.
type LoopType int

const (
	LoopForward LoopType = iota
	LoopBackward
	LoopSort
)

var loopNames = [...]string{"forward", "backward", "sort"}

func (l LoopType) String() string {
	if int(l) < len(loopNames) {
		return loopNames[l]
	}
	return fmt.Sprintf("loop(%d)", int(l))
}

// MarshalText encodes the loop type by name.
func (l LoopType) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a loop type name.
func (l *LoopType) UnmarshalText(b []byte) error {
	for i, name := range loopNames {
		if name == string(b) {
			*l = LoopType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown loop type %q", string(b))
}

// Piece is one single-pass loop of a decomposed chain.
type Piece struct {
	// Ops is the fused operator run, possibly empty. An empty piece only
	// materializes its input (identity).
	Ops []chain.Op `json:"ops"`

	// KnownSize reports whether the piece's output count is statically
	// derivable from its input count.
	KnownSize bool `json:"known_size"`

	// KnownType reports whether no operator in the piece changes the element
	// type, so a sort piece can reorder the buffer it already holds.
	KnownType bool `json:"known_type"`

	Loop LoopType `json:"loop"`

	// IndexedInput reports whether the piece's input supports a counted
	// loop. Only the first piece can read a non-indexed source; every later
	// piece reads the buffer its predecessor materialized.
	IndexedInput bool `json:"indexed_input"`

	// Folded marks a piece that absorbed an empty leading materialization:
	// it gathers its own input into an accumulation buffer first.
	Folded bool `json:"folded,omitempty"`
}

// SortKey is one key of a sort piece's comparer chain.
type SortKey struct {
	Fn      string          `json:"fn"`
	KeyType string          `json:"key_type"`
	Dir     chain.Direction `json:"dir"`
}

// IsSort reports whether the piece ends in an ordering run.
func (p Piece) IsSort() bool {
	return len(p.Ops) > 0 && p.Ops[len(p.Ops)-1].Kind.IsOrdering()
}

// SortStart returns the position of the piece's SortBy, or len(p.Ops) if the
// piece does not sort.
func (p Piece) SortStart() int {
	for i, op := range p.Ops {
		if op.Kind == chain.OpSortBy {
			return i
		}
	}
	return len(p.Ops)
}

// Pipeline returns the operators fused before the ordering run.
func (p Piece) Pipeline() []chain.Op {
	return p.Ops[:p.SortStart()]
}

// SortKeys returns the ordering keys of a sort piece, outermost first.
func (p Piece) SortKeys() []SortKey {
	var keys []SortKey
	for _, op := range p.Ops[p.SortStart():] {
		keys = append(keys, SortKey{Fn: op.Fn, KeyType: op.KeyType, Dir: op.Dir})
	}
	return keys
}

func (p Piece) String() string {
	var b strings.Builder
	b.WriteByte('[')
	if len(p.Ops) == 0 {
		b.WriteString(chain.OpIdentity.String())
	}
	for i, op := range p.Ops {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(op.String())
	}
	b.WriteString("] loop=")
	b.WriteString(p.Loop.String())
	fmt.Fprintf(&b, " known_size=%t known_type=%t indexed=%t", p.KnownSize, p.KnownType, p.IndexedInput)
	if p.Folded {
		b.WriteString(" folded")
	}
	return b.String()
}

// Flatten concatenates the operators of every piece in order.
func Flatten(pieces []Piece) []chain.Op {
	var ops []chain.Op
	for _, p := range pieces {
		ops = append(ops, p.Ops...)
	}
	return ops
}
