package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/sorting"
)

func TestSortDirection(t *testing.T) {
	assert.Equal(t, sorting.Ascending, SortDirection(chain.Ascending))
	assert.Equal(t, sorting.Descending, SortDirection(chain.Descending))
	assert.Equal(t, sorting.Ascending, SortDirection(chain.Direction(7)))

	for _, name := range []string{"asc", "desc"} {
		d, err := chain.ParseDirection(name)
		require.NoError(t, err)
		assert.Equal(t, d.String(), SortDirection(d).String())
	}
}

func TestRun_NonIntElementsFailKeys(t *testing.T) {
	src := []any{3, "three", 1}
	tests := []struct {
		name string
		op   chain.Op
	}{
		{"text", chain.Op{Kind: chain.OpSortBy, Fn: "text", KeyType: KeyString}},
		{"ratio", chain.Op{Kind: chain.OpSortBy, Fn: "ratio", KeyType: KeyFloat}},
		{"text any", chain.Op{Kind: chain.OpSortBy, Fn: "text", KeyType: KeyAny}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := toArray(tt.op)

			_, err := run(t, c, src)
			require.Error(t, err)
			assert.Equal(t, ErrCodeKeyType, ErrorCode(err))
			assert.Contains(t, err.Error(), "fn="+tt.op.Fn)

			_, err = Reference(c, src, Builtins())
			assert.Equal(t, ErrCodeKeyType, ErrorCode(err))
		})
	}
}

func TestRun_NonIntElementsFailFolds(t *testing.T) {
	tests := []struct {
		name string
		term chain.Terminal
		src  []any
	}{
		{"add element", chain.Terminal{Kind: chain.Aggregate, Fn: "add"}, []any{1, "two", 3}},
		{"max element", chain.Terminal{Kind: chain.Aggregate, Fn: "max"}, []any{1, 2.5}},
		{"add seeded", chain.Terminal{Kind: chain.Aggregate, Fn: "add", Seed: "zero"}, []any{"one"}},
		{"string start", chain.Terminal{Kind: chain.Aggregate, Fn: "add"}, []any{"one", 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chain.Chain{Source: indexed, Terminal: tt.term}

			_, err := run(t, c, tt.src)
			require.Error(t, err)
			assert.Equal(t, ErrCodeNotNumeric, ErrorCode(err))
			assert.Contains(t, err.Error(), "fn="+tt.term.Fn)

			_, err = Reference(c, tt.src, Builtins())
			assert.Equal(t, ErrCodeNotNumeric, ErrorCode(err))
		})
	}
}

func TestRun_IntFoldsUnchanged(t *testing.T) {
	got, err := run(t, chain.Chain{Source: indexed, Terminal: chain.Terminal{Kind: chain.Aggregate, Fn: "max", Seed: "zero"}}, ints(-4, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
