// Package lock guards a run directory with an advisory file lock so only
// one launcher instance manages a given stack at a time.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "launchr.lock"

// RunLock holds the exclusive advisory lock for one run directory.
type RunLock struct {
	fl *flock.Flock
}

// Acquire takes a non-blocking exclusive lock under runDir, creating the
// directory if needed. Failure to acquire means another launcher already
// manages this directory; the caller reports it and exits instead of
// racing the holder over pidfiles.
func Acquire(runDir string) (*RunLock, error) {
	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	fl := flock.New(filepath.Join(runDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("run dir %s is already managed by another launchr instance", runDir)
	}
	return &RunLock{fl: fl}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}

// Release drops the lock. Safe on nil and safe to call more than once.
func (l *RunLock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	_ = l.fl.Unlock()
}
