package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/chainfuse/internal/chain"
)

// writeOp interns op in the ops table and returns its hash.
func writeOp(ctx context.Context, tx *sql.Tx, op chain.Op) (string, error) {
	canonical := op.Canonical()
	hash := chain.OpHash(op)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ops (hash, kind, fn, key_type, dir, target, canonical)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		op.Kind.String(),
		op.Fn,
		op.KeyType,
		op.Dir.String(),
		op.Target,
		string(canonical),
	)
	if err != nil {
		return "", fmt.Errorf("write op %s: %w", op, err)
	}
	return hash, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOp(row scanner) (chain.Op, error) {
	var kind, dir string
	var op chain.Op
	if err := row.Scan(&kind, &op.Fn, &op.KeyType, &dir, &op.Target); err != nil {
		return chain.Op{}, fmt.Errorf("scan op: %w", err)
	}
	var err error
	if op.Kind, err = chain.ParseOpKind(kind); err != nil {
		return chain.Op{}, fmt.Errorf("scan op: %w", err)
	}
	if op.Dir, err = chain.ParseDirection(dir); err != nil {
		return chain.Op{}, fmt.Errorf("scan op: %w", err)
	}
	return op, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
