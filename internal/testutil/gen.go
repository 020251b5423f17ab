package testutil

import (
	"math/rand/v2"

	"github.com/roach88/chainfuse/internal/chain"
)

// Function names understood by exec.Builtins. Kept here as plain strings so
// that generated chains can be used from any package's tests.
var (
	Predicates = []string{"even", "odd", "positive", "small", "nonzero"}
	Selectors  = []string{"identity", "double", "negate", "mod3", "inc"}
	Flatteners = []string{"pair", "digits"}
	IntKeys    = []string{"self", "mod3", "mod10", "neg"}
	Folds      = []string{"add", "max"}
)

// ChainGen produces random well-formed chains and int data. The same seed
// always produces the same sequence.
type ChainGen struct {
	r *rand.Rand
}

// NewChainGen returns a generator seeded with seed.
func NewChainGen(seed uint64) *ChainGen {
	return &ChainGen{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *ChainGen) pick(names []string) string {
	return names[g.r.IntN(len(names))]
}

func (g *ChainGen) dir() chain.Direction {
	if g.r.IntN(2) == 0 {
		return chain.Ascending
	}
	return chain.Descending
}

// sortKey returns an ordering op of kind k with a random key of any key type.
func (g *ChainGen) sortKey(k chain.OpKind) chain.Op {
	switch g.r.IntN(6) {
	case 0:
		return chain.Op{Kind: k, Fn: "text", KeyType: "string", Dir: g.dir()}
	case 1:
		return chain.Op{Kind: k, Fn: "ratio", KeyType: "float", Dir: g.dir()}
	}
	return chain.Op{Kind: k, Fn: g.pick(IntKeys), KeyType: "int", Dir: g.dir()}
}

// Op returns a random operator that may legally follow prev.
func (g *ChainGen) Op(prev chain.OpKind) chain.Op {
	for {
		switch g.r.IntN(11) {
		case 0:
			return chain.Op{Kind: chain.OpIdentity}
		case 1, 2:
			return chain.Op{Kind: chain.OpFilter, Fn: g.pick(Predicates)}
		case 3:
			return chain.Op{Kind: chain.OpTakeWhile, Fn: g.pick(Predicates)}
		case 4:
			return chain.Op{Kind: chain.OpSkipWhile, Fn: g.pick(Predicates)}
		case 5:
			return chain.Op{Kind: chain.OpMap, Fn: g.pick(Selectors)}
		case 6:
			return chain.Op{Kind: chain.OpFlattenMap, Fn: g.pick(Flatteners)}
		case 7:
			return chain.Op{Kind: chain.OpTypeFilter, Target: g.pick([]string{"int", "int", "any", "string"})}
		case 8:
			return chain.Op{Kind: chain.OpTypeCast, Target: g.pick([]string{"int", "any"})}
		case 9:
			return g.sortKey(chain.OpSortBy)
		case 10:
			if prev.IsOrdering() {
				return g.sortKey(chain.OpRefineSortBy)
			}
		}
	}
}

// Terminal returns a random terminal with the functions its kind needs.
func (g *ChainGen) Terminal() chain.Terminal {
	kind := chain.TerminalKind(1 + g.r.IntN(int(chain.Aggregate)))
	t := chain.Terminal{Kind: kind}
	optional := g.r.IntN(2) == 0
	switch kind {
	case chain.First, chain.FirstOrDefault, chain.Last, chain.LastOrDefault,
		chain.Single, chain.SingleOrDefault, chain.Any, chain.Count:
		if optional {
			t.Fn = g.pick(Predicates)
		}
	case chain.All:
		t.Fn = g.pick(Predicates)
	case chain.Sum, chain.Min, chain.Max, chain.Average:
		if optional {
			t.Fn = g.pick(Selectors)
		}
	case chain.ToMap:
		t.Fn = g.pick(Selectors)
	case chain.Aggregate:
		t.Fn = g.pick(Folds)
		if optional {
			t.Seed = "zero"
		}
	}
	return t
}

// Chain returns a random valid chain with up to maxOps operators.
func (g *ChainGen) Chain(maxOps int) chain.Chain {
	c := chain.Chain{
		Source: chain.Source{
			HasStaticCount:   g.r.IntN(2) == 0,
			HasIndexedAccess: g.r.IntN(2) == 0,
		},
		Terminal: g.Terminal(),
	}
	n := g.r.IntN(maxOps + 1)
	var prev chain.OpKind
	for i := 0; i < n; i++ {
		op := g.Op(prev)
		c.Ops = append(c.Ops, op)
		prev = op.Kind
	}
	return c
}

// Ints returns n random ints in [-limit, limit] as elements.
func (g *ChainGen) Ints(n, limit int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = g.r.IntN(2*limit+1) - limit
	}
	return out
}

// Pairs returns n (key, tag) pairs where key repeats often, for checking
// that equal keys keep their input order.
func (g *ChainGen) Pairs(n, distinct int) [][2]int {
	out := make([][2]int, n)
	for i := range out {
		out[i] = [2]int{g.r.IntN(distinct), i}
	}
	return out
}
