package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/chainfuse/internal/chain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.db.QueryRow("SELECT COUNT(*) FROM chains").Scan(&count); err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"runs", "ops", "chains", "chain_ops", "plans", "pieces"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := openTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.want); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestSchema_Columns(t *testing.T) {
	s := openTestStore(t)

	tables := map[string][]string{
		"runs":      {"id", "label"},
		"ops":       {"hash", "kind", "fn", "key_type", "dir", "target", "canonical"},
		"chains":    {"hash", "name", "source_static", "source_indexed", "terminal_kind", "terminal_fn", "terminal_seed", "run_id"},
		"chain_ops": {"chain_hash", "pos", "op_hash"},
		"plans":     {"chain_hash", "leading_fold", "run_id"},
		"pieces":    {"chain_hash", "leading_fold", "pos", "first_op", "op_count", "known_size", "known_type", "loop", "indexed", "folded"},
	}
	for table, expected := range tables {
		columns := getTableColumns(t, s.db, table)
		for _, col := range expected {
			if !slices.Contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := openTestStore(t)

	if !slices.Contains(getTableIndexes(t, s.db, "chains"), "idx_chains_run") {
		t.Error("chains table missing index idx_chains_run")
	}
	if !slices.Contains(getTableIndexes(t, s.db, "chain_ops"), "idx_chain_ops_op") {
		t.Error("chain_ops table missing index idx_chain_ops_op")
	}
}

func TestConstraint_ChainNeedsRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO chains (hash, name, source_static, source_indexed, terminal_kind, run_id)
		VALUES ('h1', 'orphan', 1, 1, 'to_array', 'nonexistent')
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestConstraint_PieceNeedsPlan(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO pieces (chain_hash, pos, first_op, op_count, known_size, known_type, loop, indexed)
		VALUES ('nonexistent', 0, 0, 0, 1, 1, 'forward', 1)
	`)
	if err == nil {
		t.Error("expected foreign key constraint violation, got nil")
	}
}

func TestMigration_SchemaVersion(t *testing.T) {
	s := openTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Apply the schema without migrations to simulate a pre-migration file.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}
	if !slices.Contains(getTableIndexes(t, s.db, "chain_ops"), "idx_chain_ops_op") {
		t.Error("expected idx_chain_ops_op after migration")
	}
}

// v2Schema is the plan cache layout before plans were keyed by leading fold.
const v2Schema = `
CREATE TABLE runs (id TEXT PRIMARY KEY, label TEXT NOT NULL DEFAULT '');
CREATE TABLE ops (
    hash TEXT PRIMARY KEY, kind TEXT NOT NULL, fn TEXT NOT NULL DEFAULT '',
    key_type TEXT NOT NULL DEFAULT '', dir TEXT NOT NULL DEFAULT 'asc',
    target TEXT NOT NULL DEFAULT '', canonical TEXT NOT NULL
);
CREATE TABLE chains (
    hash TEXT PRIMARY KEY, name TEXT NOT NULL DEFAULT '',
    source_static INTEGER NOT NULL, source_indexed INTEGER NOT NULL,
    terminal_kind TEXT NOT NULL, terminal_fn TEXT NOT NULL DEFAULT '',
    terminal_seed TEXT NOT NULL DEFAULT '', run_id TEXT NOT NULL REFERENCES runs(id)
);
CREATE TABLE chain_ops (
    chain_hash TEXT NOT NULL REFERENCES chains(hash), pos INTEGER NOT NULL,
    op_hash TEXT NOT NULL REFERENCES ops(hash), PRIMARY KEY (chain_hash, pos)
);
CREATE TABLE pieces (
    chain_hash TEXT NOT NULL REFERENCES chains(hash), pos INTEGER NOT NULL,
    first_op INTEGER NOT NULL, op_count INTEGER NOT NULL,
    known_size INTEGER NOT NULL, known_type INTEGER NOT NULL,
    loop TEXT NOT NULL, indexed INTEGER NOT NULL, folded INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (chain_hash, pos)
);
INSERT INTO runs (id, label) VALUES ('run-v2', 'old');
INSERT INTO chains (hash, name, source_static, source_indexed, terminal_kind, run_id)
VALUES ('h-folded', 'folded', 0, 0, 'first', 'run-v2'),
       ('h-plain', 'plain', 1, 1, 'to_array', 'run-v2');
INSERT INTO pieces (chain_hash, pos, first_op, op_count, known_size, known_type, loop, indexed, folded)
VALUES ('h-folded', 0, 0, 0, 0, 1, 'forward', 0, 1),
       ('h-plain', 0, 0, 0, 1, 1, 'forward', 1, 0);
PRAGMA user_version = 2;
`

func TestMigration_UpgradeFromV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(v2Schema); err != nil {
		t.Fatalf("failed to apply v2 schema: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if !slices.Contains(getTableColumns(t, s.db, "pieces"), "leading_fold") {
		t.Fatal("pieces missing leading_fold after migration")
	}

	list, err := s.ListChains(context.Background())
	if err != nil {
		t.Fatalf("ListChains() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListChains() returned %d rows, want 2", len(list))
	}
	if list[0].Name != "folded" || !list[0].LeadingFolded || list[0].RunID != "run-v2" {
		t.Errorf("list[0] = %+v, want folded chain with leading fold from run-v2", list[0])
	}
	if list[1].Name != "plain" || list[1].LeadingFolded {
		t.Errorf("list[1] = %+v, want unfolded plain chain", list[1])
	}

	pieces, err := s.LoadPieces(context.Background(), "h-folded", true, chain.Chain{})
	if err != nil {
		t.Fatalf("LoadPieces() failed: %v", err)
	}
	if len(pieces) != 1 || !pieces[0].Folded {
		t.Errorf("pieces = %+v, want one folded piece", pieces)
	}

	var old int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'pieces_v2'").Scan(&old); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if old != 0 {
		t.Error("pieces_v2 left behind after migration")
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
