package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is the PRAGMA user_version of a fully migrated cache.
//
//	1: chains indexed by run
//	2: chain_ops indexed by op, for ChainsUsingOp
//	3: plans table; pieces keyed by leading fold as well as chain
const currentSchemaVersion = 3

// cachePragmas are applied on every open. The cache is written by one
// plan command at a time and read by cache subcommands.
var cachePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Store is the SQLite plan cache.
type Store struct {
	db *sql.DB
}

// Open opens the plan cache at path, creating the file and its tables when
// missing and migrating an older cache in place. Opening the same file
// again is harmless.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open plan cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open plan cache %s: %w", path, err)
	}

	// One connection: pragmas are per connection and SQLite has one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range cachePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("open plan cache: %q: %w", pragma, err)
		}
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open plan cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the cache. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	migrations := []func(*sql.DB) error{migrateToV1, migrateToV2, migrateToV3}
	for i := version; i < len(migrations); i++ {
		if err := migrations[i](db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 indexes chains by the run that first saved them.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_chains_run ON chains(run_id)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// migrateToV2 indexes chain_ops by op so shared operators can be traced
// back to every chain that uses them.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_chain_ops_op ON chain_ops(op_hash)`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

// migrateToV3 moves a v2 pieces table, keyed by chain alone, under the new
// plans table. Each old chain had exactly one decomposition; its leading
// fold is read off its first piece.
func migrateToV3(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('pieces') WHERE name = 'leading_fold'`).Scan(&n); err != nil {
		return fmt.Errorf("migrate to v3: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v3: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`ALTER TABLE pieces RENAME TO pieces_v2`,
		`CREATE TABLE pieces (
			chain_hash   TEXT NOT NULL,
			leading_fold INTEGER NOT NULL DEFAULT 0,
			pos          INTEGER NOT NULL,
			first_op     INTEGER NOT NULL,
			op_count     INTEGER NOT NULL,
			known_size   INTEGER NOT NULL,
			known_type   INTEGER NOT NULL,
			loop         TEXT NOT NULL,
			indexed      INTEGER NOT NULL,
			folded       INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (chain_hash, leading_fold, pos),
			FOREIGN KEY (chain_hash, leading_fold) REFERENCES plans(chain_hash, leading_fold)
		)`,
		`INSERT INTO plans (chain_hash, leading_fold, run_id)
		 SELECT c.hash, p.folded, c.run_id
		 FROM chains c JOIN pieces_v2 p ON p.chain_hash = c.hash AND p.pos = 0`,
		`INSERT INTO pieces
		 (chain_hash, leading_fold, pos, first_op, op_count, known_size, known_type, loop, indexed, folded)
		 SELECT p.chain_hash, pl.leading_fold, p.pos, p.first_op, p.op_count,
		        p.known_size, p.known_type, p.loop, p.indexed, p.folded
		 FROM pieces_v2 p JOIN plans pl ON pl.chain_hash = p.chain_hash`,
		`DROP TABLE pieces_v2`,
	}
	for _, stmt := range steps {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v3: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate to v3: %w", err)
	}
	return nil
}

// verifyPragma checks a pragma's current value. Tests only.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
