package process

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Meta is the identity block stored in a pidfile after the PID line. The
// recorded start time lets a later run distinguish the original child from
// an unrelated process that reused the PID.
type Meta struct {
	Name      string `json:"name"`
	PID       int    `json:"pid"`
	StartUnix int64  `json:"start_unix,omitempty"`
}

// NewMeta captures the identity of a live child.
func NewMeta(name string, pid int) Meta {
	return Meta{Name: name, PID: pid, StartUnix: procStartUnix(pid)}
}

// Alive reports whether the recorded process still exists and, when a start
// time was captured, whether it is still the same process.
func (m Meta) Alive() bool {
	if m.PID <= 0 || !pidAlive(m.PID) {
		return false
	}
	if m.StartUnix == 0 {
		return true
	}
	now := procStartUnix(m.PID)
	return now == 0 || now == m.StartUnix
}

// WritePIDFile writes "PID\n" followed by the JSON-encoded Meta.
func WritePIDFile(path string, m Meta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	data := strconv.Itoa(m.PID) + "\n" + string(b) + "\n"
	return os.WriteFile(path, []byte(data), 0o600)
}

// ReadPIDFile reads a pidfile written by WritePIDFile. Legacy files holding
// only a PID yield a Meta with just the PID set.
func ReadPIDFile(path string) (Meta, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Meta{}, err
	}
	pidLine, rest, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return Meta{}, err
	}
	m := Meta{PID: pid}
	if rest = strings.TrimSpace(rest); rest != "" {
		var full Meta
		if json.Unmarshal([]byte(rest), &full) == nil {
			full.PID = pid
			m = full
		}
	}
	return m, nil
}

// RemovePIDFile removes the file, best-effort.
func RemovePIDFile(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
