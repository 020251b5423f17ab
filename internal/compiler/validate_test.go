package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/exec"
)

func codes(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValid(t *testing.T) {
	spec := &Spec{
		Name: "ok",
		Chain: chain.Chain{
			Ops: []chain.Op{
				{Kind: chain.OpFilter, Fn: "even"},
				{Kind: chain.OpSortBy, Fn: "self", KeyType: "int"},
				{Kind: chain.OpRefineSortBy, Fn: "text", KeyType: "string"},
			},
			Terminal: chain.Terminal{Kind: chain.Aggregate, Fn: "add", Seed: "zero"},
		},
	}
	assert.Empty(t, Validate(spec, exec.Builtins()))
}

func TestValidateCollectsAll(t *testing.T) {
	spec := &Spec{
		Name: "bad",
		Chain: chain.Chain{
			Ops: []chain.Op{
				{Kind: chain.OpRefineSortBy, Fn: "self", KeyType: "int"},
				{Kind: chain.OpMap},
				{Kind: chain.OpTypeFilter},
				{Kind: chain.OpSortBy, Fn: "self", KeyType: "decimal"},
			},
			Terminal: chain.Terminal{Kind: chain.All},
		},
	}
	errs := Validate(spec, nil)
	assert.Equal(t, []string{ErrOrphanRefine, ErrMissingFunction, ErrMissingTarget, ErrUnknownKeyType, ErrMissingFunction}, codes(errs))
	assert.Equal(t, "ops[3].key_type", errs[3].Field)
	assert.Equal(t, "terminal.fn", errs[4].Field)
}

func TestValidateUnknownNames(t *testing.T) {
	spec := &Spec{
		Name: "names",
		Chain: chain.Chain{
			Ops: []chain.Op{
				{Kind: chain.OpFilter, Fn: "prime"},
				{Kind: chain.OpTypeCast, Target: "decimal"},
				{Kind: chain.OpSortBy, Fn: "score", KeyType: "int"},
			},
			Terminal: chain.Terminal{Kind: chain.Aggregate, Fn: "multiply", Seed: "ten"},
		},
	}

	errs := Validate(spec, exec.Builtins())
	assert.Equal(t, []string{ErrUnknownFunction, ErrUnknownFunction, ErrUnknownFunction, ErrUnknownFunction, ErrUnknownFunction}, codes(errs))

	assert.Empty(t, Validate(&Spec{Name: "names", Chain: chain.Chain{Ops: spec.Chain.Ops[:1], Terminal: chain.Terminal{Kind: chain.Count}}}, nil),
		"names are not checked without a registry")
}

func TestValidateEmptyName(t *testing.T) {
	errs := Validate(&Spec{Chain: chain.Chain{Terminal: chain.Terminal{Kind: chain.Count}}}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyName, errs[0].Code)
}

func TestValidateAllDuplicates(t *testing.T) {
	c := chain.Chain{Terminal: chain.Terminal{Kind: chain.Count}}
	errs := ValidateAll([]*Spec{{Name: "a", Chain: c}, {Name: "b", Chain: c}, {Name: "a", Chain: c}}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateChain, errs[0].Code)
	assert.Equal(t, `[E126] a: name: duplicate chain name: "a"`, errs[0].Error())
}
