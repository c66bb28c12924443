package cache

import (
	"database/sql"

	"snakr/internal/core/errors"
)

// SchemaVersion is the newest migration this binary knows.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS parse_results (
  content_hash TEXT NOT NULL,
  extractor_version INTEGER NOT NULL,
  imports_json TEXT NOT NULL,
  created_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP),
  PRIMARY KEY (content_hash, extractor_version)
);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  ts_utc TEXT NOT NULL,
  roots TEXT NOT NULL,
  module_count INTEGER NOT NULL,
  internal_count INTEGER NOT NULL,
  edge_count INTEGER NOT NULL,
  cycle_count INTEGER NOT NULL,
  unresolved_count INTEGER NOT NULL,
  parse_error_count INTEGER NOT NULL,
  duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(ts_utc);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create schema_migrations table")
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "read schema_migrations version")
	}
	if current > SchemaVersion {
		return errors.Newf(errors.CodeNotSupported, "schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "begin migration"), "version", m.version)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "apply migration"), "version", m.version)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "record migration"), "version", m.version)
		}
		if err := tx.Commit(); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "commit migration"), "version", m.version)
		}
	}
	return nil
}
