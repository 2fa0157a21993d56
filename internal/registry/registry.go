// Package registry holds the validated, immutable table of processes a run
// manages. Specs enter once at load time and never change afterwards.
package registry

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/loykin/launchr/internal/process"
)

// ConfigError aggregates every validation failure found in a spec table so
// the operator sees the full list at once instead of one issue per run. It
// always surfaces before any child is spawned.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "invalid configuration"
	case 1:
		return "invalid configuration: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid configuration, %d issues:\n  - %s",
		len(e.Issues), strings.Join(e.Issues, "\n  - "))
}

// Registry is a static table of process specs with unique names.
type Registry struct {
	specs []process.Spec
}

// New checks every spec for well-formed fields and unique names and returns
// the registry. Violations are collected into a single *ConfigError. The
// registry keeps deep copies, so later mutation of the input slice cannot
// leak in.
func New(specs []process.Spec) (*Registry, error) {
	var issues []string
	seen := make(map[string]struct{}, len(specs))
	for i := range specs {
		s := &specs[i]
		if err := s.Validate(); err != nil {
			issues = append(issues, err.Error())
			continue
		}
		if _, dup := seen[s.Name]; dup {
			issues = append(issues, fmt.Sprintf("duplicate process name %q", s.Name))
			continue
		}
		seen[s.Name] = struct{}{}
	}
	if len(issues) > 0 {
		return nil, &ConfigError{Issues: issues}
	}
	out := make([]process.Spec, 0, len(specs))
	for i := range specs {
		out = append(out, *specs[i].DeepCopy())
	}
	return &Registry{specs: out}, nil
}

func (r *Registry) Len() int { return len(r.specs) }

// Specs returns copies of the registered specs in load order.
func (r *Registry) Specs() []process.Spec {
	out := make([]process.Spec, 0, len(r.specs))
	for i := range r.specs {
		out = append(out, *r.specs[i].DeepCopy())
	}
	return out
}

// Names returns the spec names in load order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.specs))
	for i := range r.specs {
		out = append(out, r.specs[i].Name)
	}
	return out
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (process.Spec, bool) {
	for i := range r.specs {
		if r.specs[i].Name == name {
			return *r.specs[i].DeepCopy(), true
		}
	}
	return process.Spec{}, false
}

// Filter returns a registry restricted to the named specs, preserving load
// order. Unknown names are a configuration error.
func (r *Registry) Filter(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	want := make(map[string]struct{}, len(names))
	var issues []string
	for _, n := range names {
		if _, ok := r.Lookup(n); !ok {
			issues = append(issues, fmt.Sprintf("unknown process name %q", n))
			continue
		}
		want[n] = struct{}{}
	}
	if len(issues) > 0 {
		return nil, &ConfigError{Issues: issues}
	}
	kept := make([]process.Spec, 0, len(want))
	for i := range r.specs {
		if _, ok := want[r.specs[i].Name]; ok {
			kept = append(kept, *r.specs[i].DeepCopy())
		}
	}
	return &Registry{specs: kept}, nil
}

// Check runs the full environment validation: working directories exist and
// commands resolve on this machine. The validate subcommand relies on it;
// the up path checks directories only and lets spawn surface a missing
// binary per child, so one absent program cannot abort the whole run.
func (r *Registry) Check() error {
	issues := append(r.dirIssues(), r.commandIssues()...)
	if len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

// CheckDirs verifies every configured working directory exists.
func (r *Registry) CheckDirs() error {
	if issues := r.dirIssues(); len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

func (r *Registry) dirIssues() []string {
	var issues []string
	for i := range r.specs {
		s := &r.specs[i]
		if s.WorkDir == "" {
			continue
		}
		st, err := os.Stat(s.WorkDir)
		if err != nil {
			issues = append(issues, fmt.Sprintf("process %s: workdir %q does not exist", s.Name, s.WorkDir))
			continue
		}
		if !st.IsDir() {
			issues = append(issues, fmt.Sprintf("process %s: workdir %q is not a directory", s.Name, s.WorkDir))
		}
	}
	return issues
}

func (r *Registry) commandIssues() []string {
	var issues []string
	for i := range r.specs {
		if err := resolveCommand(&r.specs[i]); err != nil {
			issues = append(issues, fmt.Sprintf("process %s: %v", r.specs[i].Name, err))
		}
	}
	return issues
}

// resolveCommand checks that the program a spec would execute exists. Names
// containing a separator are taken relative to the workdir; bare names go
// through PATH.
func resolveCommand(s *process.Spec) error {
	argv0 := s.BuildCommand().Args[0]
	if strings.ContainsRune(argv0, '/') || strings.ContainsRune(argv0, os.PathSeparator) {
		p := argv0
		if !filepath.IsAbs(p) && s.WorkDir != "" {
			p = filepath.Join(s.WorkDir, p)
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("command %q not found", argv0)
		}
		return nil
	}
	if _, err := exec.LookPath(argv0); err != nil {
		return fmt.Errorf("command %q not found in PATH", argv0)
	}
	return nil
}
