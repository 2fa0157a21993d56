package supervisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/loykin/launchr/internal/process"
)

// Report is the terminal outcome of one run: every child's final status, in
// registry order. It is immutable once Wait returns it.
type Report struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Stopped    bool             `json:"stopped"` // a shutdown was requested before natural drain
	Children   []process.Status `json:"children"`
}

// ExitCode maps the report onto the launcher's own exit status: 0 only when
// every child exited with code 0, 1 otherwise. An empty run is clean.
func (r *Report) ExitCode() int {
	for _, st := range r.Children {
		if !st.Clean() {
			return 1
		}
	}
	return 0
}

// Failures returns the children that did not exit cleanly.
func (r *Report) Failures() []process.Status {
	var out []process.Status
	for _, st := range r.Children {
		if !st.Clean() {
			out = append(out, st)
		}
	}
	return out
}

// Summary renders one line per child for terminal output.
func (r *Report) Summary() string {
	if len(r.Children) == 0 {
		return "no processes launched"
	}
	var b strings.Builder
	for _, st := range r.Children {
		fmt.Fprintf(&b, "%-20s %s\n", st.Name, describe(st))
	}
	return strings.TrimRight(b.String(), "\n")
}

func describe(st process.Status) string {
	switch {
	case st.Residual:
		return "still running after kill (residual)"
	case st.State == process.StateFailed:
		return "failed: " + st.Error
	case st.Signal != "":
		if st.Forced {
			return "killed after grace timeout (SIG" + st.Signal + ")"
		}
		return "terminated by SIG" + st.Signal
	default:
		return fmt.Sprintf("exited %d", st.ExitCode)
	}
}
