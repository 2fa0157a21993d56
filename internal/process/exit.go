package process

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// Exit is the event a waiter goroutine delivers when cmd.Wait returns.
type Exit struct {
	Name string
	Err  error // nil for a clean zero exit
	At   time.Time
}

// ExitStatus decomposes the error returned by exec.Cmd.Wait into an exit
// code and the name of the terminating signal, if any. A nil error is a
// clean zero exit. Signal-terminated children report code -1, matching
// exec.ExitError.ExitCode.
func ExitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return -1, ""
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, signalName(ws.Signal())
	}
	return ee.ExitCode(), ""
}
