package exec

import (
	"context"
	"log/slog"

	"github.com/roach88/chainfuse/internal/buffer"
	"github.com/roach88/chainfuse/internal/plan"
	"github.com/roach88/chainfuse/internal/sorting"
)

// Run executes p over src and returns the terminal's result. src is never
// modified.
//
// Result types by terminal:
//   - to_array, to_list, to_set: []any (never nil)
//   - to_map: map[any]any
//   - any, all: bool
//   - count: int
//   - sum: int, or float64 once a float is summed
//   - average: float64
//   - everything else: the element (nil for an *_or_default miss)
func Run(ctx context.Context, p *plan.Plan, src []any, reg *Registry) (any, error) {
	in := src
	last := len(p.Pieces) - 1
	for i, piece := range p.Pieces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if i < last {
			out, err := materializePiece(ctx, piece, in, reg)
			if err != nil {
				return nil, err
			}
			slog.Debug("piece executed", "piece", i, "loop", piece.Loop.String(), "in", len(in), "out", len(out))
			in = out
			continue
		}

		col, err := newCollector(p.Chain.Terminal, reg, piece.Loop == plan.LoopBackward)
		if err != nil {
			return nil, err
		}
		if err := runPiece(ctx, piece, in, reg, col.add); err != nil {
			return nil, err
		}
		slog.Debug("piece executed", "piece", i, "loop", piece.Loop.String(), "in", len(in), "terminal", p.Chain.Terminal.Kind.String())
		return col.result()
	}
	return nil, nil
}

// materializePiece runs a non-final piece into the buffer the next piece
// reads.
func materializePiece(ctx context.Context, piece plan.Piece, in []any, reg *Registry) ([]any, error) {
	pl, err := compilePipeline(piece.Pipeline(), reg)
	if err != nil {
		return nil, err
	}
	if piece.Loop == plan.LoopSort {
		return sortPiece(ctx, piece, pl, in, reg)
	}

	buf := newBuffer(piece, len(in))
	err = forward(pl, in, func(v any) (bool, error) {
		buf.Add(v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return buf.ToArray(), nil
}

// runPiece runs the final piece straight into the terminal.
func runPiece(ctx context.Context, piece plan.Piece, in []any, reg *Registry, out sink) error {
	pl, err := compilePipeline(piece.Pipeline(), reg)
	if err != nil {
		return err
	}

	switch piece.Loop {
	case plan.LoopBackward:
		for i := len(in) - 1; i >= 0; i-- {
			more, err := pl.push(0, in[i], out)
			if err != nil {
				return err
			}
			if !more {
				break
			}
		}
		return nil
	case plan.LoopSort:
		sorted, err := sortPiece(ctx, piece, pl, in, reg)
		if err != nil {
			return err
		}
		for _, v := range sorted {
			more, err := out(v)
			if err != nil {
				return err
			}
			if !more {
				break
			}
		}
		return nil
	}
	return forward(pl, in, out)
}

func forward(pl *pipeline, in []any, out sink) error {
	for _, v := range in {
		more, err := pl.push(0, v, out)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}

// newBuffer sizes the output buffer exactly when the piece's count is known.
func newBuffer(piece plan.Piece, n int) *buffer.Growable[any] {
	if piece.KnownSize {
		return buffer.NewSized[any](n)
	}
	return buffer.New[any]()
}

// sortPiece gathers the piece's fused prefix into a buffer and orders it by
// the piece's keys, outermost first, stable on ties.
func sortPiece(ctx context.Context, piece plan.Piece, pl *pipeline, in []any, reg *Registry) ([]any, error) {
	buf := newBuffer(piece, len(in))
	err := forward(pl, in, func(v any) (bool, error) {
		buf.Add(v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	elems := buf.ToArray()

	keys, err := extractAll(piece.SortKeys(), elems, reg)
	if err != nil {
		return nil, err
	}
	n := len(elems)
	if n <= 1 {
		return elems, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scratch := sorting.RentIndex(n)
	defer scratch.Release()

	if k, ok := keys[0].(sorting.Ordered[int]); ok && len(keys) == 1 {
		sorting.SortOrdered(scratch.Index, k.Values, k.Dir)
	} else {
		sorting.Sort(n, scratch.Index, keys...)
	}

	if piece.KnownType {
		sorting.ApplyInPlace(elems, scratch.Index)
		return elems, nil
	}
	out := make([]any, n)
	sorting.Apply(out, elems, scratch.Index)
	return out, nil
}
