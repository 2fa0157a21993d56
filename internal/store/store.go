package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"
)

// Record is one run of a child process as persisted for later inspection.
// RunID groups the children of a single launcher invocation. A record is
// written when the child spawns and finalized when it reaches a terminal
// state; spawn failures produce a single terminal record.
type Record struct {
	ID        int64
	RunID     string
	Name      string
	PID       int
	State     string
	ExitCode  int
	Signal    string
	Forced    bool
	Residual  bool
	StartedAt time.Time
	StoppedAt sql.NullTime
	ExitErr   sql.NullString
	UpdatedAt time.Time
}

// Key identifies one child run across start and stop writes.
func (r Record) Key() string {
	return r.RunID + "/" + r.Name + "@" + strconv.FormatInt(r.StartedAt.UTC().UnixNano(), 10)
}

// Store persists child run records. Implementations must be safe for use
// from a single writer plus concurrent readers.
type Store interface {
	EnsureSchema(ctx context.Context) error
	// RecordStart upserts a running record for a freshly spawned child.
	RecordStart(ctx context.Context, rec Record) error
	// RecordStop upserts the terminal fields for a child run. It also covers
	// children that never started (spawn failures).
	RecordStop(ctx context.Context, rec Record) error
	GetByName(ctx context.Context, name string, limit int) ([]Record, error)
	GetRun(ctx context.Context, runID string) ([]Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
