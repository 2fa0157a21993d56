package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/launchr/internal/store"
)

type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS child_runs(
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			state TEXT NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			signal TEXT NULL,
			forced BOOLEAN NOT NULL DEFAULT false,
			residual BOOLEAN NOT NULL DEFAULT false,
			started_at TIMESTAMPTZ NOT NULL,
			stopped_at TIMESTAMPTZ NULL,
			exit_err TEXT NULL,
			uniq TEXT NOT NULL UNIQUE,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_child_runs_name ON child_runs(name);`,
		`CREATE INDEX IF NOT EXISTS idx_child_runs_run ON child_runs(run_id);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) RecordStart(ctx context.Context, rec store.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO child_runs(run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, uniq, updated_at)
		VALUES($1,$2,$3,$4,0,NULL,false,false,$5,NULL,NULL,$6,$7)
		ON CONFLICT(uniq) DO UPDATE SET
			pid=EXCLUDED.pid,
			state=EXCLUDED.state,
			updated_at=EXCLUDED.updated_at;`,
		rec.RunID, rec.Name, rec.PID, rec.State, rec.StartedAt.UTC(), rec.Key(), rec.UpdatedAt)
	return err
}

func (p *DB) RecordStop(ctx context.Context, rec store.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	var stoppedAt any
	if rec.StoppedAt.Valid {
		stoppedAt = rec.StoppedAt.Time.UTC()
	}
	var exitErr any
	if rec.ExitErr.Valid {
		exitErr = rec.ExitErr.String
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO child_runs(run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, uniq, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT(uniq) DO UPDATE SET
			pid=EXCLUDED.pid,
			state=EXCLUDED.state,
			exit_code=EXCLUDED.exit_code,
			signal=EXCLUDED.signal,
			forced=EXCLUDED.forced,
			residual=EXCLUDED.residual,
			stopped_at=EXCLUDED.stopped_at,
			exit_err=EXCLUDED.exit_err,
			updated_at=EXCLUDED.updated_at;`,
		rec.RunID, rec.Name, rec.PID, rec.State, rec.ExitCode, rec.Signal, rec.Forced, rec.Residual,
		rec.StartedAt.UTC(), stoppedAt, exitErr, rec.Key(), rec.UpdatedAt)
	return err
}

func (p *DB) GetByName(ctx context.Context, name string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, updated_at
		FROM child_runs
		WHERE name=$1
		ORDER BY started_at DESC
		LIMIT $2;`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (p *DB) GetRun(ctx context.Context, runID string) ([]store.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, updated_at
		FROM child_runs
		WHERE run_id=$1
		ORDER BY started_at ASC;`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (p *DB) Recent(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, run_id, name, pid, state, exit_code, signal, forced, residual, started_at, stopped_at, exit_err, updated_at
		FROM child_runs
		ORDER BY updated_at DESC
		LIMIT $1;`, limit)
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
