//go:build !windows

package process

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// killProcess sends a signal to a Unix process; negative pids address the
// whole process group.
func killProcess(pid int, signal syscall.Signal) error {
	return syscall.Kill(pid, signal)
}

// pidAlive probes pid with a zero signal. A Linux zombie still answers the
// probe but is already dead for our purposes.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombieLinux(pid) {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// isZombieLinux returns true if /proc/<pid>/status reports state Z.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}

var signalsByName = map[string]syscall.Signal{
	"HUP":  syscall.SIGHUP,
	"INT":  syscall.SIGINT,
	"QUIT": syscall.SIGQUIT,
	"KILL": syscall.SIGKILL,
	"TERM": syscall.SIGTERM,
	"USR1": syscall.SIGUSR1,
	"USR2": syscall.SIGUSR2,
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
