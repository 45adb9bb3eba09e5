package history

import (
	"database/sql"
	"fmt"

	"constref/internal/core/errors"
)

// SchemaVersion is stored in SQLite's user_version pragma.
const SchemaVersion = 1

// schemaSteps[i] upgrades a database from version i to i+1.
var schemaSteps = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			project_key     TEXT NOT NULL DEFAULT 'default',
			started_at_utc  TEXT NOT NULL,
			file_count      INTEGER NOT NULL,
			reference_count INTEGER NOT NULL,
			violation_count INTEGER NOT NULL DEFAULT 0,
			cycle_count     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_project_started ON runs(project_key, started_at_utc)`,
		`CREATE TABLE IF NOT EXISTS run_references (
			run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			relative_path     TEXT NOT NULL,
			constant_name     TEXT NOT NULL,
			constant_location TEXT NOT NULL,
			line              INTEGER NOT NULL,
			col               INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_references_run ON run_references(run_id)`,
	},
}

// EnsureSchema brings db up to SchemaVersion. Each step runs in its own
// transaction together with the version bump.
func EnsureSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return errors.Newf(errors.CodeConflict, "history schema version %d is newer than supported version %d", version, SchemaVersion)
	}

	for ; version < SchemaVersion; version++ {
		if err := applyStep(db, version+1, schemaSteps[version]); err != nil {
			return err
		}
	}
	return nil
}

func schemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "read history schema version")
	}
	return version, nil
}

func applyStep(db *sql.DB, target int, statements []string) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "begin schema upgrade")
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("upgrade history schema to version %d", target))
		}
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, target)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "record history schema version")
	}
	return tx.Commit()
}
