package plan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/chainfuse/internal/chain"
)

// Plan is a validated chain together with its decomposition.
type Plan struct {
	Chain  chain.Chain `json:"chain"`
	Hash   string      `json:"hash"`
	Pieces []Piece     `json:"pieces"`
}

// Build validates c and decomposes it. Contract violations come back as a
// wrapped *chain.ContractError instead of a panic.
func Build(c chain.Chain, opts ...Option) (*Plan, error) {
	if err := chain.Validate(c); err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	p := &Plan{
		Chain:  c,
		Hash:   chain.ChainHash(c),
		Pieces: Decompose(c, opts...),
	}

	slog.Debug("chain decomposed",
		"hash", p.Hash[:12],
		"ops", len(c.Ops),
		"pieces", len(p.Pieces),
		"terminal", c.Terminal.Kind.String(),
	)
	return p, nil
}

// Final returns the last piece, the one feeding the terminal.
func (p *Plan) Final() Piece {
	return p.Pieces[len(p.Pieces)-1]
}

// LeadingFolded reports whether the first piece absorbed the leading
// materialization. A chain has at most two decompositions, told apart by
// this flag; Hash alone names the chain, not the decomposition.
func (p *Plan) LeadingFolded() bool {
	return len(p.Pieces) > 0 && p.Pieces[0].Folded
}

// SortPieces counts the pieces that run the sort engine.
func (p *Plan) SortPieces() int {
	n := 0
	for _, piece := range p.Pieces {
		if piece.Loop == LoopSort {
			n++
		}
	}
	return n
}

// Describe renders the plan as stable, line-oriented text.
func (p *Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chain %s\n", p.Hash[:12])
	fmt.Fprintf(&b, "  %s\n", p.Chain.Source)
	for i, piece := range p.Pieces {
		fmt.Fprintf(&b, "  piece %d: %s\n", i, piece)
		for _, k := range piece.SortKeys() {
			fmt.Fprintf(&b, "    key %s:%s %s\n", k.Fn, k.KeyType, k.Dir)
		}
	}
	fmt.Fprintf(&b, "  terminal %s\n", p.Chain.Terminal)
	return b.String()
}
