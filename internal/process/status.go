package process

import "time"

// State is the lifecycle position of one child handle.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateExited   State = "exited"
	StateFailed   State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateExited || s == StateFailed }

// Status is a point-in-time snapshot of one child, safe to hand to
// observers outside the supervisor goroutine.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Signal    string    `json:"signal,omitempty"`   // set when terminated by a signal
	Forced    bool      `json:"forced,omitempty"`   // killed after the grace window
	Residual  bool      `json:"residual,omitempty"` // survived even the forceful kill
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
}

// Clean reports a normal zero exit.
func (s Status) Clean() bool {
	return s.State == StateExited && s.ExitCode == 0 && s.Signal == "" && !s.Residual
}
