package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/launchr/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the database file. Use ":memory:" for in-memory.

type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS child_runs(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			state TEXT NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			signal TEXT NULL,
			forced BOOLEAN NOT NULL DEFAULT 0,
			residual BOOLEAN NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			stopped_at TIMESTAMP NULL,
			exit_err TEXT NULL,
			uniq TEXT NOT NULL UNIQUE,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_child_runs_name ON child_runs(name);`,
		`CREATE INDEX IF NOT EXISTS idx_child_runs_run ON child_runs(run_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) RecordStart(ctx context.Context, rec store.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO child_runs(run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, uniq, updated_at)
		VALUES(?, ?, ?, ?, 0, NULL, 0, 0, ?, NULL, NULL, ?, ?)
		ON CONFLICT(uniq) DO UPDATE SET
			pid=excluded.pid,
			state=excluded.state,
			updated_at=excluded.updated_at;`,
		rec.RunID, rec.Name, rec.PID, rec.State, rec.StartedAt.UTC(), rec.Key(), rec.UpdatedAt)
	return err
}

func (s *DB) RecordStop(ctx context.Context, rec store.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	var stoppedAt any
	if rec.StoppedAt.Valid {
		stoppedAt = rec.StoppedAt.Time.UTC()
	}
	var exitErr any
	if rec.ExitErr.Valid {
		exitErr = rec.ExitErr.String
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO child_runs(run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, uniq, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uniq) DO UPDATE SET
			pid=excluded.pid,
			state=excluded.state,
			exit_code=excluded.exit_code,
			signal=excluded.signal,
			forced=excluded.forced,
			residual=excluded.residual,
			stopped_at=excluded.stopped_at,
			exit_err=excluded.exit_err,
			updated_at=excluded.updated_at;`,
		rec.RunID, rec.Name, rec.PID, rec.State, rec.ExitCode, rec.Signal, rec.Forced, rec.Residual,
		rec.StartedAt.UTC(), stoppedAt, exitErr, rec.Key(), rec.UpdatedAt)
	return err
}

func (s *DB) GetByName(ctx context.Context, name string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, updated_at
		FROM child_runs
		WHERE name=?
		ORDER BY started_at DESC
		LIMIT ?;`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *DB) GetRun(ctx context.Context, runID string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, updated_at
		FROM child_runs
		WHERE run_id=?
		ORDER BY started_at ASC;`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *DB) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, updated_at
		FROM child_runs
		ORDER BY updated_at DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]store.Record, error) {
	out := make([]store.Record, 0)
	for rows.Next() {
		var r store.Record
		var sig sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Name, &r.PID, &r.State, &r.ExitCode, &sig, &r.Forced, &r.Residual, &r.StartedAt, &r.StoppedAt, &r.ExitErr, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Signal = sig.String
		out = append(out, r)
	}
	return out, rows.Err()
}
