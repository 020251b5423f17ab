package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chainfuse/internal/chain"
	"github.com/roach88/chainfuse/internal/plan"
)

// ErrNotFound is returned when no chain is stored under a hash.
var ErrNotFound = errors.New("chain not found")

// ChainRecord is a stored chain with its bookkeeping columns.
type ChainRecord struct {
	Hash  string
	Name  string
	RunID string
	Chain chain.Chain
}

// ChainSummary is one row of ListChains: one stored decomposition.
type ChainSummary struct {
	Hash          string `json:"hash"`
	Name          string `json:"name"`
	RunID         string `json:"run_id"` // run that saved this decomposition
	Terminal      string `json:"terminal"`
	LeadingFolded bool   `json:"leading_folded"`
	Ops           int    `json:"ops"`
	Pieces        int    `json:"pieces"`
	SortPieces    int    `json:"sort_pieces"`
}

// LoadChain reads the chain stored under hash.
func (s *Store) LoadChain(ctx context.Context, hash string) (*ChainRecord, error) {
	rec := &ChainRecord{Hash: hash}
	var static, indexed int
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, source_static, source_indexed, terminal_kind, terminal_fn, terminal_seed, run_id
		FROM chains WHERE hash = ?
	`, hash).Scan(&rec.Name, &static, &indexed, &kind, &rec.Chain.Terminal.Fn, &rec.Chain.Terminal.Seed, &rec.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load chain %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load chain %s: %w", hash, err)
	}
	rec.Chain.Source = chain.Source{HasStaticCount: static != 0, HasIndexedAccess: indexed != 0}
	if rec.Chain.Terminal.Kind, err = chain.ParseTerminalKind(kind); err != nil {
		return nil, fmt.Errorf("load chain %s: %w", hash, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT o.kind, o.fn, o.key_type, o.dir, o.target
		FROM chain_ops co
		JOIN ops o ON o.hash = co.op_hash
		WHERE co.chain_hash = ?
		ORDER BY co.pos
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("load chain %s: ops: %w", hash, err)
	}
	defer rows.Close()

	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, fmt.Errorf("load chain %s: %w", hash, err)
		}
		rec.Chain.Ops = append(rec.Chain.Ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load chain %s: ops: %w", hash, err)
	}
	return rec, nil
}

// LoadPieces rebuilds the stored decomposition of c with the given leading
// fold. c must be the chain stored under hash; each piece's operators are
// sliced out of it. It returns ErrNotFound if that decomposition was never
// saved.
func (s *Store) LoadPieces(ctx context.Context, hash string, leadingFold bool, c chain.Chain) ([]plan.Piece, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT first_op, op_count, known_size, known_type, loop, indexed, folded
		FROM pieces
		WHERE chain_hash = ? AND leading_fold = ?
		ORDER BY pos
	`, hash, boolInt(leadingFold))
	if err != nil {
		return nil, fmt.Errorf("load pieces %s: %w", hash, err)
	}
	defer rows.Close()

	var pieces []plan.Piece
	for rows.Next() {
		var first, count, knownSize, knownType, indexed, folded int
		var loop string
		if err := rows.Scan(&first, &count, &knownSize, &knownType, &loop, &indexed, &folded); err != nil {
			return nil, fmt.Errorf("load pieces %s: scan: %w", hash, err)
		}
		if first < 0 || count < 0 || first+count > len(c.Ops) {
			return nil, fmt.Errorf("load pieces %s: range [%d, %d) outside %d ops", hash, first, first+count, len(c.Ops))
		}
		p := plan.Piece{
			KnownSize:    knownSize != 0,
			KnownType:    knownType != 0,
			IndexedInput: indexed != 0,
			Folded:       folded != 0,
		}
		if count > 0 {
			p.Ops = c.Ops[first : first+count : first+count]
		}
		if err := p.Loop.UnmarshalText([]byte(loop)); err != nil {
			return nil, fmt.Errorf("load pieces %s: %w", hash, err)
		}
		pieces = append(pieces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pieces %s: %w", hash, err)
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("load pieces %s (leading fold %t): %w", hash, leadingFold, ErrNotFound)
	}
	return pieces, nil
}

// LoadPlan reads one decomposition back. The result describes identically
// to the plan that was saved.
func (s *Store) LoadPlan(ctx context.Context, hash string, leadingFold bool) (*plan.Plan, error) {
	rec, err := s.LoadChain(ctx, hash)
	if err != nil {
		return nil, err
	}
	pieces, err := s.LoadPieces(ctx, hash, leadingFold, rec.Chain)
	if err != nil {
		return nil, err
	}
	return &plan.Plan{Chain: rec.Chain, Hash: hash, Pieces: pieces}, nil
}

// LoadPlans reads every stored decomposition of the chain, unfolded first.
func (s *Store) LoadPlans(ctx context.Context, hash string) ([]*plan.Plan, error) {
	rec, err := s.LoadChain(ctx, hash)
	if err != nil {
		return nil, err
	}

	folds, err := s.storedFolds(ctx, hash)
	if err != nil {
		return nil, err
	}

	plans := make([]*plan.Plan, 0, len(folds))
	for _, fold := range folds {
		pieces, err := s.LoadPieces(ctx, hash, fold, rec.Chain)
		if err != nil {
			return nil, err
		}
		plans = append(plans, &plan.Plan{Chain: rec.Chain, Hash: hash, Pieces: pieces})
	}
	return plans, nil
}

// storedFolds lists the leading fold of each stored decomposition of hash.
func (s *Store) storedFolds(ctx context.Context, hash string) ([]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT leading_fold FROM plans WHERE chain_hash = ? ORDER BY leading_fold
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("load plans %s: %w", hash, err)
	}
	defer rows.Close()

	var folds []bool
	for rows.Next() {
		var fold int
		if err := rows.Scan(&fold); err != nil {
			return nil, fmt.Errorf("load plans %s: scan: %w", hash, err)
		}
		folds = append(folds, fold != 0)
	}
	return folds, rows.Err()
}

// ListChains summarizes every stored decomposition, ordered by chain name,
// then hash, then unfolded before folded.
func (s *Store) ListChains(ctx context.Context) ([]ChainSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.hash, c.name, pl.run_id, c.terminal_kind, pl.leading_fold,
			(SELECT COUNT(*) FROM chain_ops co WHERE co.chain_hash = c.hash),
			(SELECT COUNT(*) FROM pieces p
				WHERE p.chain_hash = pl.chain_hash AND p.leading_fold = pl.leading_fold),
			(SELECT COUNT(*) FROM pieces p
				WHERE p.chain_hash = pl.chain_hash AND p.leading_fold = pl.leading_fold AND p.loop = 'sort')
		FROM plans pl
		JOIN chains c ON c.hash = pl.chain_hash
		ORDER BY c.name, c.hash, pl.leading_fold
	`)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	summaries := []ChainSummary{}
	for rows.Next() {
		var cs ChainSummary
		var fold int
		if err := rows.Scan(&cs.Hash, &cs.Name, &cs.RunID, &cs.Terminal, &fold, &cs.Ops, &cs.Pieces, &cs.SortPieces); err != nil {
			return nil, fmt.Errorf("list chains: scan: %w", err)
		}
		cs.LeadingFolded = fold != 0
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	return summaries, nil
}

// ChainsUsingOp returns the hashes of every chain containing the operator
// with the given op hash, in hash order.
func (s *Store) ChainsUsingOp(ctx context.Context, opHash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT chain_hash FROM chain_ops WHERE op_hash = ? ORDER BY chain_hash
	`, opHash)
	if err != nil {
		return nil, fmt.Errorf("chains using op: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("chains using op: scan: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}
