package process

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"
)

func TestExitStatusNil(t *testing.T) {
	code, sig := ExitStatus(nil)
	if code != 0 || sig != "" {
		t.Fatalf("nil error should be clean exit, got code=%d sig=%q", code, sig)
	}
}

func TestExitStatusNonzero(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("/bin/sh", "-c", "exit 3")
	err := cmd.Run()
	code, sig := ExitStatus(err)
	if code != 3 || sig != "" {
		t.Fatalf("expected code 3, got code=%d sig=%q", code, sig)
	}
}

func TestExitStatusSignaled(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = cmd.Process.Signal(syscall.SIGKILL)
	err := cmd.Wait()
	code, sig := ExitStatus(err)
	if code != -1 || sig != "KILL" {
		t.Fatalf("expected signaled KILL, got code=%d sig=%q", code, sig)
	}
}

func TestExitStatusOpaqueError(t *testing.T) {
	code, sig := ExitStatus(errors.New("broken pipe"))
	if code != -1 || sig != "" {
		t.Fatalf("opaque error should map to -1, got code=%d sig=%q", code, sig)
	}
}
