package snapshot

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this binary knows how to apply.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS builds (
  build_id TEXT PRIMARY KEY,
  crate TEXT NOT NULL,
  fingerprint TEXT NOT NULL,
  ts_utc TEXT NOT NULL,
  module_count INTEGER NOT NULL,
  function_count INTEGER NOT NULL,
  call_edge_count INTEGER NOT NULL,
  diagnostic_count INTEGER NOT NULL,
  unused_import_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_crate_ts ON builds(crate, ts_utc);

CREATE TABLE IF NOT EXISTS edges (
  build_id TEXT NOT NULL REFERENCES builds(build_id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  from_path TEXT NOT NULL,
  to_path TEXT NOT NULL,
  kind TEXT NOT NULL,
  file TEXT NOT NULL DEFAULT '',
  line INTEGER NOT NULL DEFAULT 0,
  col INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (build_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(build_id, from_path);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(build_id, to_path);

CREATE TABLE IF NOT EXISTS diagnostics (
  build_id TEXT NOT NULL REFERENCES builds(build_id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  code TEXT NOT NULL,
  module TEXT NOT NULL,
  subject TEXT NOT NULL,
  message TEXT NOT NULL,
  file TEXT NOT NULL DEFAULT '',
  line INTEGER NOT NULL DEFAULT 0,
  col INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (build_id, seq)
);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS declarations (
  build_id TEXT NOT NULL REFERENCES builds(build_id) ON DELETE CASCADE,
  path TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  module TEXT NOT NULL DEFAULT '',
  target TEXT NOT NULL DEFAULT '',
  file TEXT NOT NULL DEFAULT '',
  line INTEGER NOT NULL DEFAULT 0,
  col INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (build_id, path)
);
`,
	},
}

// EnsureSchema applies pending migrations, each in its own transaction.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
