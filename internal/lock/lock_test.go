package lock

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestAcquireCreatesRunDir(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "nested", "run")
	l, err := Acquire(runDir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()
	if _, err := os.Stat(runDir); err != nil {
		t.Fatalf("run dir not created: %v", err)
	}
	if !strings.HasSuffix(l.Path(), lockFileName) {
		t.Fatalf("unexpected lock path: %q", l.Path())
	}
}

func TestAcquireContention(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("advisory lock contention semantics differ on windows")
	}
	runDir := t.TempDir()
	first, err := Acquire(runDir)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := Acquire(runDir); err == nil {
		t.Fatal("second Acquire should fail while lock is held")
	} else if !strings.Contains(err.Error(), "already managed") {
		t.Fatalf("unexpected contention error: %v", err)
	}
	first.Release()
	third, err := Acquire(runDir)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	third.Release()
}

func TestReleaseOnNil(t *testing.T) {
	var l *RunLock
	l.Release()
	if l.Path() != "" {
		t.Fatal("nil lock should have empty path")
	}
}
