package supervisor

import (
	"errors"
	"fmt"
)

// SpawnError reports that one child failed to launch. It never aborts the
// other spawns; the failure is carried into the final report.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ErrShutdownTimeout marks a child that ignored the stop signal for the
// whole grace window and had to be killed.
var ErrShutdownTimeout = errors.New("stop signal ignored, grace timeout expired")
