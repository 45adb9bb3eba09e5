package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/engine/resolver"
)

const (
	driverName        = "sqlite"
	maxAttempts       = 5
	defaultProjectKey = "default"
)

// Store persists analysis runs and their references in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		err := errors.New(errors.CodeValidationError, "history path is a directory, expected file")
		return nil, errors.AddContext(err, errors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// busy_timeout + WAL reduce lock conflicts while the watcher saves runs.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun stores a run with its references in one transaction. A missing ID
// or start time is filled in; the stored run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, refs []resolver.Reference) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.ProjectKey = projectKeyOrDefault(run.ProjectKey)
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.ReferenceCount = len(refs)

	err := s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, project_key, started_at_utc, file_count, reference_count, violation_count, cycle_count)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.ProjectKey, run.StartedAt.UTC().Format(time.RFC3339Nano),
			run.FileCount, run.ReferenceCount, run.ViolationCount, run.CycleCount,
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_references (run_id, relative_path, constant_name, constant_location, line, col)
VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, ref := range refs {
			if _, err := stmt.ExecContext(ctx, run.ID, ref.RelativePath, ref.Constant.Name, ref.Constant.Location,
				ref.SourceLocation.Line, ref.SourceLocation.Column); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// LatestRun returns the most recent run of a project.
func (s *Store) LatestRun(ctx context.Context, projectKey string) (Run, error) {
	runs, err := s.queryRuns(ctx, `WHERE project_key = ? ORDER BY started_at_utc DESC, id DESC LIMIT 1`, projectKeyOrDefault(projectKey))
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, errors.AddContext(errors.New(errors.CodeNotFound, "no saved runs"), "project", projectKeyOrDefault(projectKey))
	}
	return runs[0], nil
}

// LoadRuns returns a project's runs since the given time, oldest first.
func (s *Store) LoadRuns(ctx context.Context, projectKey string, since time.Time) ([]Run, error) {
	clause := `WHERE project_key = ?`
	args := []any{projectKeyOrDefault(projectKey)}
	if !since.IsZero() {
		clause += ` AND started_at_utc >= ?`
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	clause += ` ORDER BY started_at_utc ASC, id ASC`
	return s.queryRuns(ctx, clause, args...)
}

func (s *Store) queryRuns(ctx context.Context, clause string, args ...any) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, project_key, started_at_utc, file_count, reference_count, violation_count, cycle_count FROM runs ` + clause

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run   Run
			tsRaw string
		)
		if err := rows.Scan(&run.ID, &run.ProjectKey, &tsRaw, &run.FileCount, &run.ReferenceCount, &run.ViolationCount, &run.CycleCount); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.StartedAt = ts.UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LoadReferences returns the references saved with a run in file and
// source order.
func (s *Store) LoadReferences(ctx context.Context, runID string) ([]resolver.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load references", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT relative_path, constant_name, constant_location, line, col
FROM run_references WHERE run_id = ?
ORDER BY relative_path, line, col, constant_name`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]resolver.Reference, 0)
	for rows.Next() {
		var (
			ref       resolver.Reference
			line, col int
		)
		if err := rows.Scan(&ref.RelativePath, &ref.Constant.Name, &ref.Constant.Location, &line, &col); err != nil {
			return nil, fmt.Errorf("scan reference row: %w", err)
		}
		ref.SourceLocation = ast.Location{Line: line, Column: col}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference rows: %w", err)
	}
	return refs, nil
}

// DiffRuns compares the references of two saved runs.
func (s *Store) DiffRuns(ctx context.Context, baselineID, currentID string) (Diff, error) {
	baseline, err := s.LoadReferences(ctx, baselineID)
	if err != nil {
		return Diff{}, err
	}
	current, err := s.LoadReferences(ctx, currentID)
	if err != nil {
		return Diff{}, err
	}
	return DiffReferences(baseline, current), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func projectKeyOrDefault(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return defaultProjectKey
	}
	return key
}
