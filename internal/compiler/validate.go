package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/exec"
)

// Validation error codes (E120-E129)
const (
	ErrEmptyName       = "E120" // chain name is required
	ErrOrphanRefine    = "E121" // refine_sort_by without a preceding sort
	ErrMissingFunction = "E122" // operator or terminal needs a function
	ErrMissingTarget   = "E123" // type operator needs a target type
	ErrUnknownKeyType  = "E124" // key type outside int, float, string, any
	ErrUnknownFunction = "E125" // function name not in the registry
	ErrDuplicateChain  = "E126" // two chains share a name
)

var keyTypes = []string{exec.KeyInt, exec.KeyFloat, exec.KeyString, exec.KeyAny}

// ValidationError represents a chain validation error.
type ValidationError struct {
	Chain   string `json:"chain"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Chain, e.Field, e.Message)
}

// Validate checks a compiled chain and returns every problem found, not
// just the first. With a non-nil reg, function names are also resolved
// against it.
func Validate(spec *Spec, reg *exec.Registry) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Chain:   spec.Name,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
		})
	}

	if strings.TrimSpace(spec.Name) == "" {
		add("name", ErrEmptyName, "chain name is required")
	}

	inSort := false
	for i, op := range spec.Chain.Ops {
		field := fmt.Sprintf("ops[%d]", i)

		if op.Kind == chain.OpRefineSortBy && !inSort {
			add(field, ErrOrphanRefine, "refine_sort_by must follow sort_by or refine_sort_by")
		}
		inSort = op.Kind.IsOrdering()

		switch op.Kind {
		case chain.OpTypeFilter, chain.OpTypeCast:
			if op.Target == "" {
				add(field, ErrMissingTarget, "%s requires a target type", op.Kind)
			} else if reg != nil && reg.Types[op.Target] == nil {
				add(field, ErrUnknownFunction, "unknown type %q", op.Target)
			}
		case chain.OpIdentity:
		default:
			if op.Fn == "" {
				add(field, ErrMissingFunction, "%s requires a function", op.Kind)
			} else if reg != nil && !opFnKnown(reg, op) {
				add(field, ErrUnknownFunction, "unknown function %q for %s", op.Fn, op.Kind)
			}
		}

		if op.Kind.IsOrdering() && !slices.Contains(keyTypes, op.KeyType) {
			add(field+".key_type", ErrUnknownKeyType, "unknown key type %q, must be one of %s", op.KeyType, strings.Join(keyTypes, ", "))
		}
	}

	t := spec.Chain.Terminal
	switch t.Kind {
	case chain.All, chain.Aggregate, chain.ToMap:
		if t.Fn == "" {
			add("terminal.fn", ErrMissingFunction, "%s requires a function", t.Kind)
		}
	}
	if reg != nil && t.Fn != "" && !terminalFnKnown(reg, t) {
		add("terminal.fn", ErrUnknownFunction, "unknown function %q for %s", t.Fn, t.Kind)
	}
	if reg != nil && t.Seed != "" {
		if _, ok := reg.Seeds[t.Seed]; !ok {
			add("terminal.seed", ErrUnknownFunction, "unknown seed %q", t.Seed)
		}
	}

	return errs
}

// ValidateAll validates every spec and also reports duplicate names.
func ValidateAll(specs []*Spec, reg *exec.Registry) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, s := range specs {
		if seen[s.Name] {
			errs = append(errs, ValidationError{
				Chain:   s.Name,
				Field:   "name",
				Message: fmt.Sprintf("duplicate chain name: %q", s.Name),
				Code:    ErrDuplicateChain,
			})
		}
		seen[s.Name] = true
		errs = append(errs, Validate(s, reg)...)
	}
	return errs
}

func opFnKnown(reg *exec.Registry, op chain.Op) bool {
	switch op.Kind {
	case chain.OpFilter, chain.OpTakeWhile, chain.OpSkipWhile:
		return reg.Predicates[op.Fn] != nil
	case chain.OpMap:
		return reg.Selectors[op.Fn] != nil
	case chain.OpFlattenMap:
		return reg.Flatteners[op.Fn] != nil
	case chain.OpSortBy, chain.OpRefineSortBy:
		return reg.Keys[op.Fn] != nil
	}
	return true
}

func terminalFnKnown(reg *exec.Registry, t chain.Terminal) bool {
	switch t.Kind {
	case chain.Sum, chain.Min, chain.Max, chain.Average, chain.ToMap:
		return reg.Selectors[t.Fn] != nil
	case chain.Aggregate:
		return reg.Folds[t.Fn] != nil
	}
	return reg.Predicates[t.Fn] != nil
}
