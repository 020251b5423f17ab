package chain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidChain(t *testing.T) {
	c := Chain{
		Source: Source{HasStaticCount: true, HasIndexedAccess: true},
		Ops: []Op{
			{Kind: OpFilter, Fn: "even"},
			{Kind: OpSortBy, Fn: "identity", KeyType: "int"},
			{Kind: OpRefineSortBy, Fn: "mod3", KeyType: "int", Dir: Descending},
			{Kind: OpMap, Fn: "double"},
		},
		Terminal: Terminal{Kind: ToArray},
	}

	assert.NoError(t, Validate(c))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name  string
		chain Chain
		code  ContractErrorCode
		index int
	}{
		{
			name:  "unknown op kind",
			chain: Chain{Ops: []Op{{Kind: OpKind(99), Fn: "x"}}, Terminal: Terminal{Kind: First}},
			code:  ErrCodeUnknownOp,
			index: 0,
		},
		{
			name:  "zero op kind",
			chain: Chain{Ops: []Op{{Fn: "x"}}, Terminal: Terminal{Kind: First}},
			code:  ErrCodeUnknownOp,
			index: 0,
		},
		{
			name:  "refine at start",
			chain: Chain{Ops: []Op{{Kind: OpRefineSortBy, Fn: "k", KeyType: "int"}}, Terminal: Terminal{Kind: ToArray}},
			code:  ErrCodeOrphanRefine,
			index: 0,
		},
		{
			name: "refine after filter",
			chain: Chain{Ops: []Op{
				{Kind: OpSortBy, Fn: "k", KeyType: "int"},
				{Kind: OpFilter, Fn: "even"},
				{Kind: OpRefineSortBy, Fn: "k", KeyType: "int"},
			}, Terminal: Terminal{Kind: ToArray}},
			code:  ErrCodeOrphanRefine,
			index: 2,
		},
		{
			name:  "sort without key",
			chain: Chain{Ops: []Op{{Kind: OpSortBy, KeyType: "int"}}, Terminal: Terminal{Kind: ToArray}},
			code:  ErrCodeMissingKey,
			index: 0,
		},
		{
			name:  "filter without predicate",
			chain: Chain{Ops: []Op{{Kind: OpFilter}}, Terminal: Terminal{Kind: ToArray}},
			code:  ErrCodeMissingFn,
			index: 0,
		},
		{
			name:  "type filter without target",
			chain: Chain{Ops: []Op{{Kind: OpTypeFilter}}, Terminal: Terminal{Kind: ToArray}},
			code:  ErrCodeMissingFn,
			index: 0,
		},
		{
			name:  "missing terminal",
			chain: Chain{Ops: []Op{{Kind: OpMap, Fn: "double"}}},
			code:  ErrCodeUnknownTerminal,
			index: -1,
		},
		{
			name:  "all without predicate",
			chain: Chain{Terminal: Terminal{Kind: All}},
			code:  ErrCodeMissingFn,
			index: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.chain)
			require.Error(t, err)

			var ce *ContractError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.index, ce.Index)
		})
	}
}

func TestValidate_RefineAfterRefine(t *testing.T) {
	c := Chain{
		Ops: []Op{
			{Kind: OpSortBy, Fn: "a", KeyType: "int"},
			{Kind: OpRefineSortBy, Fn: "b", KeyType: "int"},
			{Kind: OpRefineSortBy, Fn: "c", KeyType: "string"},
		},
		Terminal: Terminal{Kind: ToList},
	}
	assert.NoError(t, Validate(c))
}

func TestIsContractError_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", &ContractError{Code: ErrCodeUnknownOp, Index: 3, Message: "bad"})
	assert.True(t, IsContractError(err))
	assert.False(t, IsContractError(fmt.Errorf("plain")))
	assert.Contains(t, err.Error(), "UNKNOWN_OP")
	assert.Contains(t, err.Error(), "op 3")
}
