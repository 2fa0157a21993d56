package process

import (
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Handle tracks one child from spawn to terminal state. Every field access
// happens on the supervisor's control goroutine; the waiter goroutine only
// calls cmd.Wait and sends the Exit event, so the handle needs no lock.
type Handle struct {
	spec   Spec
	cmd    *exec.Cmd
	status Status
	outW   io.WriteCloser
	errW   io.WriteCloser
}

func NewHandle(spec Spec) *Handle {
	return &Handle{spec: spec, status: Status{Name: spec.Name, State: StateStarting}}
}

func (h *Handle) Spec() Spec       { return h.spec }
func (h *Handle) PID() int         { return h.status.PID }
func (h *Handle) Snapshot() Status { return h.status }
func (h *Handle) Terminal() bool   { return h.status.State.Terminal() }

// Start spawns the child in its own process group. On success the handle
// enters Running and a waiter goroutine reaps cmd.Wait into events. On
// failure the handle becomes Failed and the spawn error is returned.
func (h *Handle) Start(mergedEnv []string, events chan<- Exit) error {
	cmd := h.spec.BuildCommand()
	if h.spec.WorkDir != "" {
		cmd.Dir = h.spec.WorkDir
	}
	if len(mergedEnv) > 0 {
		cmd.Env = mergedEnv
	}
	configureSysProcAttr(cmd)
	h.wireOutput(cmd)
	if err := cmd.Start(); err != nil {
		h.closeWriters()
		h.status.State = StateFailed
		h.status.Error = err.Error()
		h.status.StoppedAt = time.Now()
		return err
	}
	h.cmd = cmd
	h.status.State = StateRunning
	h.status.PID = cmd.Process.Pid
	h.status.StartedAt = time.Now()
	name := h.spec.Name
	go func() {
		err := cmd.Wait()
		events <- Exit{Name: name, Err: err, At: time.Now()}
	}()
	return nil
}

// Finalize applies the terminal state for a reaped child.
func (h *Handle) Finalize(e Exit) {
	code, sig := ExitStatus(e.Err)
	h.status.State = StateExited
	h.status.ExitCode = code
	h.status.Signal = sig
	if e.Err != nil {
		h.status.Error = e.Err.Error()
	}
	h.status.StoppedAt = e.At
	h.closeWriters()
}

// Signal delivers sig to the child's process group.
func (h *Handle) Signal(sig syscall.Signal) error {
	if h.cmd == nil || h.cmd.Process == nil || h.Terminal() {
		return nil
	}
	return killProcess(-h.status.PID, sig)
}

// ForceKill sends SIGKILL to the process group and marks the handle forced.
func (h *Handle) ForceKill() {
	if h.cmd == nil || h.cmd.Process == nil || h.Terminal() {
		return
	}
	h.status.Forced = true
	_ = killProcess(-h.status.PID, syscall.SIGKILL)
}

// MarkResidual closes out a child that survived even the forceful kill so
// the run can still complete. Its waiter stays blocked; the pidfile is left
// in place since the process is still out there.
func (h *Handle) MarkResidual(err error) {
	h.status.State = StateFailed
	h.status.Residual = true
	if err != nil {
		h.status.Error = err.Error()
	}
	h.status.StoppedAt = time.Now()
	h.closeWriters()
}

// Alive probes the child with a zero signal, treating zombies as dead.
func (h *Handle) Alive() bool {
	if h.cmd == nil || h.cmd.Process == nil {
		return false
	}
	return pidAlive(h.status.PID)
}

// wireOutput connects the child's stdout/stderr. With file logging
// configured the streams go to rotated files; otherwise the child shares
// the launcher's console, matching foreground dev use.
func (h *Handle) wireOutput(cmd *exec.Cmd) {
	fc := h.spec.Log.File
	if fc.Dir == "" && fc.StdoutPath == "" && fc.StderrPath == "" {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return
	}
	if fc.Dir != "" {
		_ = os.MkdirAll(fc.Dir, 0o750)
	}
	outW, errW, _ := h.spec.Log.ProcessWriters(h.spec.Name)
	h.outW = outW
	h.errW = errW
	if outW != nil {
		cmd.Stdout = outW
	} else {
		cmd.Stdout = os.Stdout
	}
	if errW != nil {
		cmd.Stderr = errW
	} else {
		cmd.Stderr = os.Stderr
	}
}

func (h *Handle) closeWriters() {
	if h.outW != nil {
		_ = h.outW.Close()
		h.outW = nil
	}
	if h.errW != nil {
		_ = h.errW.Close()
		h.errW = nil
	}
}
