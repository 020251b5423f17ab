package chain

import (
	"errors"
	"fmt"
)

// ContractErrorCode categorizes chain contract violations.
type ContractErrorCode string

const (
	// ErrCodeUnknownOp indicates an operator kind outside the known set.
	ErrCodeUnknownOp ContractErrorCode = "UNKNOWN_OP"

	// ErrCodeUnknownTerminal indicates a missing or unknown terminal kind.
	ErrCodeUnknownTerminal ContractErrorCode = "UNKNOWN_TERMINAL"

	// ErrCodeOrphanRefine indicates a RefineSortBy that does not directly
	// follow a SortBy or another RefineSortBy.
	ErrCodeOrphanRefine ContractErrorCode = "ORPHAN_REFINE"

	// ErrCodeMissingKey indicates an ordering node without a key selector.
	ErrCodeMissingKey ContractErrorCode = "MISSING_KEY"

	// ErrCodeMissingFn indicates an operator or terminal that needs a
	// predicate or selector but names none.
	ErrCodeMissingFn ContractErrorCode = "MISSING_FN"
)

// ContractError reports a malformed chain. These are bugs in whatever built
// the chain, never data problems, and are not retried.
type ContractError struct {
	Code ContractErrorCode

	// Index is the operator position, or -1 for the terminal.
	Index int

	Message string
}

func (e *ContractError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s (terminal)", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (op %d)", e.Code, e.Message, e.Index)
}

// IsContractError reports whether err wraps a *ContractError.
func IsContractError(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}

// Validate checks c against the chain contract and returns the first
// violation as a *ContractError.
//
// Validate is a pure function with no side effects.
func Validate(c Chain) error {
	inSort := false
	for i, op := range c.Ops {
		if !op.Kind.Valid() {
			return &ContractError{Code: ErrCodeUnknownOp, Index: i, Message: fmt.Sprintf("unknown operator kind %d", int(op.Kind))}
		}
		if op.Kind == OpRefineSortBy && !inSort {
			return &ContractError{Code: ErrCodeOrphanRefine, Index: i, Message: "refine_sort_by must follow sort_by or refine_sort_by"}
		}
		if op.Kind.IsOrdering() && op.Fn == "" {
			return &ContractError{Code: ErrCodeMissingKey, Index: i, Message: fmt.Sprintf("%s requires a key selector", op.Kind)}
		}
		if needsFn(op.Kind) && op.Fn == "" {
			return &ContractError{Code: ErrCodeMissingFn, Index: i, Message: fmt.Sprintf("%s requires a function", op.Kind)}
		}
		if (op.Kind == OpTypeFilter || op.Kind == OpTypeCast) && op.Target == "" {
			return &ContractError{Code: ErrCodeMissingFn, Index: i, Message: fmt.Sprintf("%s requires a target type", op.Kind)}
		}
		inSort = op.Kind.IsOrdering()
	}

	t := c.Terminal
	if !t.Kind.Valid() {
		return &ContractError{Code: ErrCodeUnknownTerminal, Index: -1, Message: fmt.Sprintf("unknown terminal kind %d", int(t.Kind))}
	}
	if (t.Kind == All || t.Kind == Aggregate || t.Kind == ToMap) && t.Fn == "" {
		return &ContractError{Code: ErrCodeMissingFn, Index: -1, Message: fmt.Sprintf("%s requires a function", t.Kind)}
	}
	return nil
}

func needsFn(k OpKind) bool {
	switch k {
	case OpFilter, OpTakeWhile, OpSkipWhile, OpMap, OpFlattenMap:
		return true
	}
	return false
}
