package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chainfuse/internal/chain"
)

func TestChainGen_Deterministic(t *testing.T) {
	a := NewChainGen(42)
	b := NewChainGen(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Chain(8), b.Chain(8))
	}
	assert.Equal(t, a.Ints(50, 100), b.Ints(50, 100))
}

func TestChainGen_ChainsAreValid(t *testing.T) {
	gen := NewChainGen(7)
	for i := 0; i < 500; i++ {
		c := gen.Chain(10)
		require.NoError(t, chain.Validate(c), "chain %d: %s", i, c)
		assert.LessOrEqual(t, len(c.Ops), 10)
	}
}

func TestChainGen_IntsInRange(t *testing.T) {
	for _, v := range NewChainGen(1).Ints(1000, 5) {
		n := v.(int)
		assert.GreaterOrEqual(t, n, -5)
		assert.LessOrEqual(t, n, 5)
	}
}

func TestChainGen_Pairs(t *testing.T) {
	pairs := NewChainGen(3).Pairs(100, 4)
	for i, p := range pairs {
		assert.Less(t, p[0], 4)
		assert.Equal(t, i, p[1])
	}
}
