// Package template generates starter TOML configuration for common stack
// shapes. The output of a generator is a valid config file meant to be
// edited, not a finished artifact.
package template

import (
	"fmt"
	"strings"
)

// Kind selects the stack shape to generate.
type Kind string

const (
	KindWeb        Kind = "web"
	KindWebapp     Kind = "webapp"
	KindAPI        Kind = "api"
	KindService    Kind = "service"
	KindWorker     Kind = "worker"
	KindBackground Kind = "background"
	KindDatabase   Kind = "database"
	KindDB         Kind = "db"
	KindStack      Kind = "stack"
	KindFull       Kind = "full"
	KindSimple     Kind = "simple"
	KindBasic      Kind = "basic"
)

// Process is one [[processes]] entry of the generated config.
type Process struct {
	Name       string
	Command    string
	WorkDir    string
	Env        []string
	StopSignal string
}

// Stack is the full shape of a generated config file: run-wide settings plus
// the process table.
type Stack struct {
	Comment      string // header line rendered above the settings
	GraceTimeout string // duration string, e.g. "10s"
	FailFast     bool
	ServerListen string // a [server] section is rendered when set
	Hints        bool   // render commented store/metrics sections
	Processes    []Process
}

// TOML renders the stack as a TOML config file.
func (s *Stack) TOML() []byte {
	var b strings.Builder
	b.WriteString("# launchr configuration\n")
	if s.Comment != "" {
		fmt.Fprintf(&b, "# %s\n", s.Comment)
	}
	if s.GraceTimeout != "" {
		fmt.Fprintf(&b, "\ngrace_timeout = %q\n", s.GraceTimeout)
	}
	if s.FailFast {
		b.WriteString("fail_fast = true\n")
	}
	if s.ServerListen != "" {
		b.WriteString("\n[server]\n")
		fmt.Fprintf(&b, "listen = %q\n", s.ServerListen)
	}
	if s.Hints {
		b.WriteString("\n# Uncomment to persist run records:\n")
		b.WriteString("# [store]\n")
		b.WriteString("# dsn = \"sqlite://.launchr/runs.db\"\n")
		b.WriteString("\n# Uncomment to expose Prometheus metrics on /metrics:\n")
		b.WriteString("# [metrics]\n")
		b.WriteString("# enabled = true\n")
	}
	for _, p := range s.Processes {
		b.WriteString("\n[[processes]]\n")
		fmt.Fprintf(&b, "name = %q\n", p.Name)
		fmt.Fprintf(&b, "command = %q\n", p.Command)
		if p.WorkDir != "" {
			fmt.Fprintf(&b, "workdir = %q\n", p.WorkDir)
		}
		if len(p.Env) > 0 {
			b.WriteString("env = [")
			for i, kv := range p.Env {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%q", kv)
			}
			b.WriteString("]\n")
		}
		if p.StopSignal != "" {
			fmt.Fprintf(&b, "stop_signal = %q\n", p.StopSignal)
		}
	}
	return []byte(b.String())
}

// Generator builds config scaffolds.
type Generator struct{}

// NewGenerator creates a new scaffold generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the stack for the given kind and name.
func (g *Generator) Generate(kind Kind, name string) (*Stack, error) {
	switch kind {
	case KindWeb, KindWebapp:
		return g.generateWebStack(name), nil
	case KindAPI, KindService:
		return g.generateAPIStack(name), nil
	case KindWorker, KindBackground:
		return g.generateWorkerStack(name), nil
	case KindDatabase, KindDB:
		return g.generateDatabaseStack(name), nil
	case KindStack, KindFull:
		return g.generateFullStack(name), nil
	case KindSimple, KindBasic:
		return g.generateSimpleStack(name), nil
	default:
		return nil, fmt.Errorf("unknown template kind: %s (supported: web, api, worker, database, stack, simple)", kind)
	}
}

// GenerateTOML builds the stack and renders it as a TOML config file.
func (g *Generator) GenerateTOML(kind Kind, name string) ([]byte, error) {
	stack, err := g.Generate(kind, name)
	if err != nil {
		return nil, err
	}
	return stack.TOML(), nil
}

// SupportedKinds returns the primary kind names.
func (g *Generator) SupportedKinds() []string {
	return []string{
		string(KindWeb),
		string(KindAPI),
		string(KindWorker),
		string(KindDatabase),
		string(KindStack),
		string(KindSimple),
	}
}

func (g *Generator) generateWebStack(name string) *Stack {
	return &Stack{
		Comment:      name + " process",
		GraceTimeout: "10s",
		Processes: []Process{{
			Name:    name,
			Command: "python3 -m http.server 8000",
			WorkDir: ".",
			Env:     []string{"PORT=8000", "ENV=development"},
		}},
	}
}

func (g *Generator) generateAPIStack(name string) *Stack {
	return &Stack{
		Comment:      name + " process",
		GraceTimeout: "10s",
		Processes: []Process{{
			Name:    name,
			Command: "./api-server",
			Env:     []string{"PORT=3000", "LOG_LEVEL=info"},
		}},
	}
}

func (g *Generator) generateWorkerStack(name string) *Stack {
	return &Stack{
		Comment:      name + " process",
		GraceTimeout: "10s",
		Processes: []Process{{
			Name:       name,
			Command:    "./worker",
			Env:        []string{"WORKER_THREADS=4", "LOG_LEVEL=info"},
			StopSignal: "INT",
		}},
	}
}

func (g *Generator) generateDatabaseStack(name string) *Stack {
	return &Stack{
		Comment:      name + " process",
		GraceTimeout: "10s",
		Processes: []Process{{
			Name:    name,
			Command: "mongod --dbpath ./data/db --port 27017",
			Env:     []string{"DB_PORT=27017"},
		}},
	}
}

// generateFullStack composes the single-process shapes into one multi-process
// config with the status server enabled.
func (g *Generator) generateFullStack(name string) *Stack {
	web := g.generateWebStack("web").Processes[0]
	api := g.generateAPIStack("api").Processes[0]
	worker := g.generateWorkerStack("worker").Processes[0]
	return &Stack{
		Comment:      name + " development stack",
		GraceTimeout: "10s",
		ServerListen: "127.0.0.1:8080",
		Hints:        true,
		Processes:    []Process{web, api, worker},
	}
}

func (g *Generator) generateSimpleStack(name string) *Stack {
	return &Stack{
		Comment: name + " process",
		Processes: []Process{{
			Name:    name,
			Command: "echo 'Hello from " + name + "'",
		}},
	}
}
