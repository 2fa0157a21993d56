package client

import "time"

// Health is the launcher liveness view returned by /healthz.
type Health struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
	Phase  string `json:"phase"`
}

// Usage is the latest resource sample of a running child.
type Usage struct {
	PID        int       `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	RSSBytes   uint64    `json:"rss_bytes"`
	NumThreads int32     `json:"num_threads"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Child is one supervised process as reported by the status API.
type Child struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	PID       int       `json:"pid,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Signal    string    `json:"signal,omitempty"`
	Forced    bool      `json:"forced,omitempty"`
	Residual  bool      `json:"residual,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	Usage     *Usage    `json:"usage,omitempty"`
}

// RunStatus is the full run view returned by /status.
type RunStatus struct {
	RunID    string  `json:"run_id"`
	Phase    string  `json:"phase"`
	Children []Child `json:"children"`
}

// Report is the terminal outcome of a finished run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Stopped    bool      `json:"stopped"`
	Children   []Child   `json:"children"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
