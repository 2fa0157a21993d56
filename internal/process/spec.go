package process

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/loykin/launchr/internal/logger"
)

// Spec describes one child process to launch. Specs are immutable after
// registry load; the supervisor works on copies.
type Spec struct {
	Name       string        `json:"name"`
	Command    string        `json:"command"`               // command line, parsed by BuildCommand
	Args       []string      `json:"args,omitempty"`        // explicit argv appended to Command; bypasses parsing
	WorkDir    string        `json:"work_dir,omitempty"`    // optional working dir
	Env        []string      `json:"env,omitempty"`         // per-child "K=V" overlay, additive
	StopSignal string        `json:"stop_signal,omitempty"` // graceful stop signal name (default TERM)
	PIDFile    string        `json:"pid_file,omitempty"`    // optional pidfile path
	Log        logger.Config `json:"-"`
}

// Validate checks the fields a spec must carry before it can be spawned.
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("process requires name")
	}
	if strings.TrimSpace(s.Command) == "" && len(s.Args) == 0 {
		return fmt.Errorf("process %s requires command", s.Name)
	}
	if s.StopSignal != "" && !knownSignal(s.StopSignal) {
		return fmt.Errorf("process %s: unknown stop signal %q", s.Name, s.StopSignal)
	}
	return nil
}

// StopSig returns the signal sent during graceful shutdown, SIGTERM unless
// the spec names another one.
func (s *Spec) StopSig() syscall.Signal {
	return parseSignal(s.StopSignal)
}

// DeepCopy returns an independent copy of the spec.
func (s *Spec) DeepCopy() *Spec {
	if s == nil {
		return nil
	}
	out := *s
	if s.Args != nil {
		out.Args = append([]string(nil), s.Args...)
	}
	if s.Env != nil {
		out.Env = append([]string(nil), s.Env...)
	}
	return &out
}

// BuildCommand constructs an *exec.Cmd for the spec. When Args is set the
// command is executed directly without shell parsing. Otherwise the Command
// string is inspected: an explicit shell invocation already present
// (e.g. "sh -c 'echo hi'") is honored without double-wrapping, shell
// metacharacters trigger a shell, and plain commands are split on fields.
func (s *Spec) BuildCommand() *exec.Cmd {
	if len(s.Args) > 0 {
		name := strings.TrimSpace(s.Command)
		if name == "" {
			name = s.Args[0]
			// #nosec G204
			return exec.Command(name, s.Args[1:]...)
		}
		// #nosec G204
		return exec.Command(name, s.Args...)
	}
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		return getTrueCommand()
	}
	if _, script, ok := parseExplicitShell(cmdStr); ok {
		// Always use the absolute shell path so PATH overrides in Env cannot
		// break the invocation.
		return getShellCommand(script)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		return getShellCommand(cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c <ARG>"
// at the beginning of cmdStr. It returns (shellPath, script, true) when
// matched. The substring after "-c " is preserved verbatim except for one
// pair of outer quotes, which would otherwise reach the shell literally.
func parseExplicitShell(cmdStr string) (string, string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if !strings.HasPrefix(trim, p) {
			continue
		}
		after := trim[len(p):]
		if n := len(after); n >= 2 {
			if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
				after = after[1 : n-1]
			}
		}
		return strings.Fields(p)[0], after, true
	}
	return "", "", false
}
