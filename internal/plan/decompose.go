package plan

import (
	"fmt"

	"github.com/roach88/chainfuse/internal/chain"
)

// Option adjusts decomposition.
type Option func(*config)

type config struct {
	foldLeading bool
}

// WithoutLeadingFold keeps the empty leading materialization piece that
// locate-first terminals would otherwise fold into the next piece. Output is
// the same either way; the fold only saves a pass.
func WithoutLeadingFold() Option {
	return func(c *config) { c.foldLeading = false }
}

// decomposer is the single-pass accumulator. Each Decompose call owns one.
type decomposer struct {
	pieces   []Piece
	cur      []chain.Op
	sameSize bool
	indexed  bool
}

func (d *decomposer) endsInSort() bool {
	return len(d.cur) > 0 && d.cur[len(d.cur)-1].Kind.IsOrdering()
}

// close finishes the open piece. Its output is materialized, so whatever
// follows starts from a known count and an indexed buffer.
func (d *decomposer) close() {
	knownType := true
	for _, op := range d.cur {
		if op.Kind.ChangesType() {
			knownType = false
			break
		}
	}
	d.pieces = append(d.pieces, Piece{
		Ops:          d.cur,
		KnownSize:    d.sameSize,
		KnownType:    knownType,
		IndexedInput: d.indexed,
	})
	d.cur = nil
	d.sameSize = true
	d.indexed = true
}

func (d *decomposer) closeIfSorted() {
	if d.endsInSort() {
		d.close()
	}
}

// Decompose partitions c into pieces of work. It is a pure function of c and
// opts: the same chain always yields the same pieces.
//
// Decompose assumes c was validated. An unknown operator kind or a
// RefineSortBy with nothing to refine panics with *chain.ContractError.
func Decompose(c chain.Chain, opts ...Option) []Piece {
	cfg := config{foldLeading: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &decomposer{
		sameSize: c.Source.HasStaticCount,
		indexed:  c.Source.HasIndexedAccess,
	}

	for i, op := range c.Ops {
		switch op.Kind {
		case chain.OpMap, chain.OpTypeCast, chain.OpIdentity:
			d.closeIfSorted()
		case chain.OpFilter, chain.OpTakeWhile, chain.OpSkipWhile, chain.OpFlattenMap, chain.OpTypeFilter:
			d.closeIfSorted()
			d.sameSize = false
		case chain.OpSortBy:
			// A new sort discards any ordering before it, and a piece holds
			// at most one ordering run.
			if !d.sameSize || d.endsInSort() {
				d.close()
			}
		case chain.OpRefineSortBy:
			if !d.endsInSort() {
				panic(&chain.ContractError{Code: chain.ErrCodeOrphanRefine, Index: i, Message: "refine_sort_by must follow sort_by or refine_sort_by"})
			}
		default:
			panic(&chain.ContractError{Code: chain.ErrCodeUnknownOp, Index: i, Message: fmt.Sprintf("unknown operator kind %d", int(op.Kind))})
		}
		d.cur = append(d.cur, op)
	}
	d.close()

	pieces := d.pieces
	if cfg.foldLeading && c.Terminal.Kind.IsLocateFirst() && len(pieces) > 1 && len(pieces[0].Ops) == 0 {
		pieces = pieces[1:]
		pieces[0].KnownSize = false
		pieces[0].IndexedInput = c.Source.HasIndexedAccess
		pieces[0].Folded = true
	}

	last := len(pieces) - 1
	for i := range pieces {
		switch {
		case pieces[i].IsSort():
			pieces[i].Loop = LoopSort
		case i == last && canScanBackward(c.Terminal, pieces[i]):
			pieces[i].Loop = LoopBackward
		default:
			pieces[i].Loop = LoopForward
		}
	}
	return pieces
}

// canScanBackward reports whether the final piece can run from the end and
// stop at the first match: the terminal wants the last element, the input
// is indexed, and every operator handles elements independently of order.
func canScanBackward(t chain.Terminal, p Piece) bool {
	if t.Kind.Direction() != chain.Backward || !p.IndexedInput {
		return false
	}
	for _, op := range p.Ops {
		if op.Kind.IsOrderSensitive() {
			return false
		}
	}
	return true
}
