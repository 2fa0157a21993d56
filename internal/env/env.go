package env

import (
	"os"
	"path/filepath"
	"strings"
)

type Var map[string]string

// Env composes the environment handed to child processes. The base is the
// OS environment (cached on first use) unless Isolate is called; the overlay
// holds launcher-level variables applied on top of the base.
type Env struct {
	overlay Var
	base    Var
}

func New() *Env {
	return &Env{overlay: make(Var)}
}

// FromOS caches the current process environment as the base.
func (e *Env) FromOS() {
	base := make(Var)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			base[k] = kv[i+1:]
		}
	}
	e.base = base
}

// Isolate replaces the base with an empty environment so children do not
// inherit OS variables.
func (e *Env) Isolate() {
	e.base = make(Var)
}

// WithSet returns a copy of e with k=v added to the overlay. The receiver is
// not modified, so published Envs stay safe for concurrent Merge calls.
func (e *Env) WithSet(k, v string) *Env {
	if k == "" {
		return e
	}
	next := &Env{overlay: make(Var, len(e.overlay)+1), base: e.base}
	for ok, ov := range e.overlay {
		next.overlay[ok] = ov
	}
	next.overlay[k] = v
	return next
}

// WithPairs applies a list of "KEY=VALUE" entries to the overlay in order.
// Malformed entries (no '=' or empty key) are skipped.
func (e *Env) WithPairs(kvs []string) *Env {
	next := e
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			next = next.WithSet(kv[:i], kv[i+1:])
		}
	}
	return next
}

// Merge composes the final environment list applying order:
// base (OS env unless isolated), then the overlay, then perProc
// (slice of "K=V") overrides. Returns the environment in "K=V" form with
// ${VAR} expansion performed against the composed map (single pass, no
// recursion).
func (e *Env) Merge(perProc []string) []string {
	if e.base == nil {
		e.FromOS()
	}
	m := make(Var, len(e.base)+len(e.overlay)+len(perProc))
	for k, v := range e.base {
		m[k] = v
	}
	for k, v := range e.overlay {
		if k == "" {
			continue
		}
		m[k] = v
	}
	for _, kv := range perProc {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			k := kv[:i]
			if k == "" {
				continue
			}
			m[k] = kv[i+1:]
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		if k == "" {
			continue
		}
		out = append(out, k+"="+expand(v, m))
	}
	return out
}

func expand(s string, m Var) string {
	if !strings.Contains(s, "${") {
		return s
	}
	res := s
	for k, v := range m {
		res = strings.ReplaceAll(res, "${"+k+"}", v)
	}
	return res
}

// LoadFile parses a .env file with KEY=VALUE lines (no export keyword, no
// quoting) and returns entries in file order. Blank lines and lines starting
// with # are ignored.
func LoadFile(path string) ([]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			k := strings.TrimSpace(line[:i])
			if k == "" {
				continue
			}
			out = append(out, k+"="+strings.TrimSpace(line[i+1:]))
		}
	}
	return out, nil
}
