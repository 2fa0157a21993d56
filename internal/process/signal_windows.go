//go:build windows

package process

import (
	"strconv"
	"strings"
	"syscall"
)

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const (
	processTerminate        = 0x0001
	processQueryInformation = 0x0400
)

// killProcess terminates a Windows process by PID. There is no process-group
// delivery or graceful signal on Windows; every real signal maps to
// TerminateProcess, and a zero signal only probes existence.
func killProcess(pid int, signal syscall.Signal) error {
	if pid == 0 {
		return nil
	}
	if pid < 0 {
		pid = -pid
	}
	if signal == 0 {
		if !pidAlive(pid) {
			return syscall.ESRCH
		}
		return nil
	}
	handle, err := openProcess(processTerminate, pid)
	if err != nil {
		// The process is usually already gone when the handle cannot be
		// opened; treat that as a completed termination.
		return nil
	}
	defer func() { _ = closeHandle(handle) }()
	ret, _, callErr := procTerminateProcess.Call(uintptr(handle), uintptr(1))
	if ret == 0 {
		return callErr
	}
	return nil
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	handle, err := openProcess(processQueryInformation, pid)
	if err != nil {
		return false
	}
	_ = closeHandle(handle)
	return true
}

func openProcess(access uint32, pid int) (syscall.Handle, error) {
	ret, _, err := procOpenProcess.Call(uintptr(access), uintptr(0), uintptr(uint32(pid)))
	if ret == 0 {
		return 0, err
	}
	return syscall.Handle(ret), nil
}

func closeHandle(handle syscall.Handle) error {
	ret, _, err := procCloseHandle.Call(uintptr(handle))
	if ret == 0 {
		return err
	}
	return nil
}

var signalsByName = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
}

// parseSignal maps a name like "TERM" or "SIGTERM" to the signal, defaulting
// to SIGTERM for empty or unknown names.
func parseSignal(name string) syscall.Signal {
	key := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "SIG")
	if sig, ok := signalsByName[key]; ok {
		return sig
	}
	return syscall.SIGTERM
}

func knownSignal(name string) bool {
	key := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "SIG")
	_, ok := signalsByName[key]
	return ok
}

// signalName renders a signal the way parseSignal accepts it.
func signalName(sig syscall.Signal) string {
	for name, s := range signalsByName {
		if s == sig {
			return name
		}
	}
	return "SIG" + strconv.Itoa(int(sig))
}
