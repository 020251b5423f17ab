package exec

import (
	"slices"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/plan"
	"github.com/roach88/chainfuse/internal/sorting"
)

// Reference evaluates c one operator at a time, materializing after every
// step and sorting with slices.SortStableFunc. It is the oracle Run is
// checked against: slow, obvious, and independent of the planner.
//
// Reference sees every element, so a data error that Run never reaches
// because its terminal stopped early is still reported here.
func Reference(c chain.Chain, src []any, reg *Registry) (any, error) {
	seq := slices.Clone(src)
	for i := 0; i < len(c.Ops); i++ {
		op := c.Ops[i]
		var err error
		switch op.Kind {
		case chain.OpSortBy:
			j := i + 1
			for j < len(c.Ops) && c.Ops[j].Kind == chain.OpRefineSortBy {
				j++
			}
			seq, err = referenceSort(plan.Piece{Ops: c.Ops[i:j]}.SortKeys(), seq, reg)
			i = j - 1
		case chain.OpRefineSortBy:
			return nil, &chain.ContractError{Code: chain.ErrCodeOrphanRefine, Index: i, Message: "refine_sort_by must follow sort_by or refine_sort_by"}
		default:
			seq, err = referenceStep(op, seq, reg)
		}
		if err != nil {
			return nil, err
		}
	}

	col, err := newCollector(c.Terminal, reg, false)
	if err != nil {
		return nil, err
	}
	for _, v := range seq {
		more, err := col.add(v)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	return col.result()
}

func referenceStep(op chain.Op, seq []any, reg *Registry) ([]any, error) {
	// A one-stage pipeline has the same per-element semantics; running it
	// over the whole sequence keeps this a separate full pass.
	pl, err := compilePipeline([]chain.Op{op}, reg)
	if err != nil {
		return nil, err
	}
	var out []any
	err = forward(pl, seq, func(v any) (bool, error) {
		out = append(out, v)
		return true, nil
	})
	return out, err
}

func referenceSort(keys []plan.SortKey, seq []any, reg *Registry) ([]any, error) {
	buffers, err := extractAll(keys, seq, reg)
	if err != nil {
		return nil, err
	}
	pos := make([]int, len(seq))
	for i := range pos {
		pos[i] = i
	}
	slices.SortStableFunc(pos, func(a, b int) int {
		for _, k := range buffers {
			if c := k.Compare(a, b); c != 0 {
				return c
			}
		}
		return 0
	})
	out := make([]any, len(seq))
	sorting.Apply(out, seq, pos)
	return out, nil
}
