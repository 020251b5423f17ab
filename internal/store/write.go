package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/chainfuse/internal/plan"
)

// BeginRun records a new run and returns its ID. Every chain first saved
// during the run points back at it.
func (s *Store) BeginRun(ctx context.Context, gen RunIDGenerator, label string) (string, error) {
	id := gen.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, label) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, label)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// SavePlan writes a plan's ops, chain and pieces in one transaction.
// A decomposition is keyed by its chain hash and its leading fold, so the
// folded and unfolded plans of one chain are stored side by side. It returns
// false if this decomposition was already stored, in which case nothing is
// written. The chain row keeps the name and run of its first save.
//
// Note: runID must come from BeginRun (foreign key constraint).
func (s *Store) SavePlan(ctx context.Context, runID, name string, p *plan.Plan) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("save plan: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	newChain, err := insertChain(ctx, tx, runID, name, p)
	if err != nil {
		return false, err
	}
	if newChain {
		for pos, op := range p.Chain.Ops {
			hash, err := writeOp(ctx, tx, op)
			if err != nil {
				return false, err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chain_ops (chain_hash, pos, op_hash) VALUES (?, ?, ?)
			`, p.Hash, pos, hash); err != nil {
				return false, fmt.Errorf("save plan: insert chain op %d: %w", pos, err)
			}
		}
	}

	fold := boolInt(p.LeadingFolded())
	result, err := tx.ExecContext(ctx, `
		INSERT INTO plans (chain_hash, leading_fold, run_id) VALUES (?, ?, ?)
		ON CONFLICT(chain_hash, leading_fold) DO NOTHING
	`, p.Hash, fold, runID)
	if err != nil {
		return false, fmt.Errorf("save plan: insert plan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save plan: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	first := 0
	for pos, piece := range p.Pieces {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pieces
			(chain_hash, leading_fold, pos, first_op, op_count, known_size, known_type, loop, indexed, folded)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			p.Hash,
			fold,
			pos,
			first,
			len(piece.Ops),
			boolInt(piece.KnownSize),
			boolInt(piece.KnownType),
			piece.Loop.String(),
			boolInt(piece.IndexedInput),
			boolInt(piece.Folded),
		); err != nil {
			return false, fmt.Errorf("save plan: insert piece %d: %w", pos, err)
		}
		first += len(piece.Ops)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("save plan: commit: %w", err)
	}
	return true, nil
}

// insertChain writes the chain row unless the hash is already stored.
func insertChain(ctx context.Context, tx *sql.Tx, runID, name string, p *plan.Plan) (bool, error) {
	c := p.Chain
	result, err := tx.ExecContext(ctx, `
		INSERT INTO chains
		(hash, name, source_static, source_indexed, terminal_kind, terminal_fn, terminal_seed, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		p.Hash,
		name,
		boolInt(c.Source.HasStaticCount),
		boolInt(c.Source.HasIndexedAccess),
		c.Terminal.Kind.String(),
		c.Terminal.Fn,
		c.Terminal.Seed,
		runID,
	)
	if err != nil {
		return false, fmt.Errorf("save plan: insert chain: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save plan: rows affected: %w", err)
	}
	return n > 0, nil
}
