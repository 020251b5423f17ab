package exec

import (
	"fmt"

	"github.com/roach88/chainfuse/internal/chain"
)

// sink receives each element leaving a pipeline.
type sink func(v any) (bool, error)

type stage struct {
	kind     chain.OpKind
	target   string
	pred     Predicate
	sel      Selector
	flat     Flattener
	typ      TypeTest
	skipping bool
}

// pipeline is the fused, non-ordering prefix of a piece. Stages keep their
// own state (take_while, skip_while), so a pipeline runs exactly once.
type pipeline struct {
	stages []stage
}

func compilePipeline(ops []chain.Op, reg *Registry) (*pipeline, error) {
	p := &pipeline{stages: make([]stage, len(ops))}
	for i, op := range ops {
		s := stage{kind: op.Kind, target: op.Target}
		var err error
		switch op.Kind {
		case chain.OpIdentity:
		case chain.OpFilter, chain.OpTakeWhile:
			s.pred, err = reg.predicate(op.Fn)
		case chain.OpSkipWhile:
			s.pred, err = reg.predicate(op.Fn)
			s.skipping = true
		case chain.OpMap:
			s.sel, err = reg.selector(op.Fn)
		case chain.OpFlattenMap:
			s.flat, err = reg.flattener(op.Fn)
		case chain.OpTypeFilter, chain.OpTypeCast:
			s.typ, err = reg.typeTest(op.Target)
		default:
			return nil, &chain.ContractError{Code: chain.ErrCodeUnknownOp, Index: i, Message: fmt.Sprintf("%s cannot run in a pipeline", op.Kind)}
		}
		if err != nil {
			return nil, err
		}
		p.stages[i] = s
	}
	return p, nil
}

// push sends v through stages k.. and into out. It returns false when no
// further input should be pushed: a take_while stopped, or out is done.
func (p *pipeline) push(k int, v any, out sink) (bool, error) {
	for ; k < len(p.stages); k++ {
		s := &p.stages[k]
		switch s.kind {
		case chain.OpFilter:
			if !s.pred(v) {
				return true, nil
			}
		case chain.OpTakeWhile:
			if !s.pred(v) {
				return false, nil
			}
		case chain.OpSkipWhile:
			if s.skipping {
				if s.pred(v) {
					return true, nil
				}
				s.skipping = false
			}
		case chain.OpMap:
			v = s.sel(v)
		case chain.OpFlattenMap:
			for _, x := range s.flat(v) {
				if more, err := p.push(k+1, x, out); err != nil || !more {
					return more, err
				}
			}
			return true, nil
		case chain.OpTypeFilter:
			if !s.typ(v) {
				return true, nil
			}
		case chain.OpTypeCast:
			if !s.typ(v) {
				return false, &RuntimeError{Code: ErrCodeInvalidCast, Message: fmt.Sprintf("cannot cast %T to %s", v, s.target)}
			}
		}
	}
	return out(v)
}
