package compiler

import (
	"fmt"

	"github.com/roach88/chainfuse/internal/chain"
)

// Warning is a lint finding on a chain that compiles and plans fine but
// probably does not do what its author meant.
//
// Warnings are not errors because the chain is still well formed:
//   - An ordering discarded by the sort_by right after it
//   - An ordering that cannot affect an order-free terminal (count, sum)
//   - Two names for the same chain
type Warning struct {
	Chain   string `json:"chain"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Level   string `json:"level"` // "warning" or "info"
}

// orderFree reports terminals whose result does not depend on element order.
func orderFree(k chain.TerminalKind) bool {
	switch k {
	case chain.ToSet, chain.Any, chain.All, chain.Count, chain.Sum, chain.Min, chain.Max, chain.Average:
		return true
	}
	return false
}

// Analyze lints specs in order. A clean set returns an empty slice.
func Analyze(specs []*Spec) []Warning {
	warnings := []Warning{}
	byHash := make(map[string]string)

	for _, s := range specs {
		ops := s.Chain.Ops
		for i := 1; i < len(ops); i++ {
			if ops[i].Kind == chain.OpSortBy && ops[i-1].Kind.IsOrdering() {
				warnings = append(warnings, Warning{
					Chain:   s.Name,
					Field:   fmt.Sprintf("ops[%d]", i),
					Message: fmt.Sprintf("%s discards the ordering established just before it", ops[i]),
					Level:   "warning",
				})
			}
		}

		if orderFree(s.Chain.Terminal.Kind) {
			if i, ok := lastIgnoredSort(ops); ok {
				warnings = append(warnings, Warning{
					Chain:   s.Name,
					Field:   fmt.Sprintf("ops[%d]", i),
					Message: fmt.Sprintf("ordering cannot affect %s", s.Chain.Terminal.Kind),
					Level:   "info",
				})
			}
		}

		h := chain.ChainHash(s.Chain)
		if first, dup := byHash[h]; dup {
			warnings = append(warnings, Warning{
				Chain:   s.Name,
				Message: fmt.Sprintf("identical to chain %q", first),
				Level:   "info",
			})
			continue
		}
		byHash[h] = s.Name
	}
	return warnings
}

// lastIgnoredSort finds the last sort_by that is followed only by
// order-insensitive operators.
func lastIgnoredSort(ops []chain.Op) (int, bool) {
	for i := len(ops) - 1; i >= 0; i-- {
		switch {
		case ops[i].Kind == chain.OpSortBy:
			return i, true
		case ops[i].Kind == chain.OpRefineSortBy:
		case ops[i].Kind.IsOrderSensitive():
			return 0, false
		}
	}
	return 0, false
}
