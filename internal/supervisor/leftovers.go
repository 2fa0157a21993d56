package supervisor

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/launchr/internal/process"
)

// Leftover is a pidfile found in the run dir before this run started.
type Leftover struct {
	Path  string
	Meta  process.Meta
	Alive bool
}

// ScanLeftovers inspects dir for pidfiles from earlier runs. Stale files
// whose process is gone are removed; files pointing at a live process are
// returned so the operator can decide what to do with it.
func ScanLeftovers(dir string, log *slog.Logger) []Leftover {
	if dir == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var alive []Leftover
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pid") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		meta, rerr := process.ReadPIDFile(path)
		if rerr != nil {
			log.Warn("removing unreadable pidfile", "path", path, "error", rerr)
			process.RemovePIDFile(path)
			continue
		}
		if !meta.Alive() {
			log.Debug("removing stale pidfile", "path", path, "pid", meta.PID)
			process.RemovePIDFile(path)
			continue
		}
		log.Warn("previous run left a child running", "name", meta.Name, "pid", meta.PID, "path", path)
		alive = append(alive, Leftover{Path: path, Meta: meta, Alive: true})
	}
	return alive
}
