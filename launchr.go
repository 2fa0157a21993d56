// Package launchr starts a set of processes as one supervised unit and
// tears the whole stack down together. This file is the embedding facade;
// the launchr CLI is a thin layer over the same calls.
package launchr

import (
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/loykin/launchr/internal/config"
	"github.com/loykin/launchr/internal/history"
	historyfactory "github.com/loykin/launchr/internal/history/factory"
	"github.com/loykin/launchr/internal/metrics"
	"github.com/loykin/launchr/internal/process"
	"github.com/loykin/launchr/internal/registry"
	iapi "github.com/loykin/launchr/internal/server"
	"github.com/loykin/launchr/internal/store"
	storefactory "github.com/loykin/launchr/internal/store/factory"
	"github.com/loykin/launchr/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = process.Spec

type Status = process.Status

type Report = supervisor.Report

type Options = supervisor.Options

type Phase = supervisor.Phase

const (
	PhaseIdle         = supervisor.PhaseIdle
	PhaseShuttingDown = supervisor.PhaseShuttingDown
	PhaseDone         = supervisor.PhaseDone
)

type Config = cfg.Config

type Store = store.Store

type HistorySink = history.Sink

type HistoryEvent = history.Event

type HistoryFanout = history.Fanout

type Sampler = metrics.Sampler

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.

type Supervisor struct{ inner *supervisor.Supervisor }

// Start launches every spec concurrently and returns the supervising handle.
// One spec failing to spawn does not block the others.
func Start(specs []Spec, opts Options) *Supervisor {
	return &Supervisor{inner: supervisor.Start(specs, opts)}
}

func (s *Supervisor) RunID() string        { return s.inner.RunID() }
func (s *Supervisor) Phase() Phase         { return s.inner.Phase() }
func (s *Supervisor) Stop()                { s.inner.Stop() }
func (s *Supervisor) Kill()                { s.inner.Kill() }
func (s *Supervisor) Wait() *Report        { return s.inner.Wait() }
func (s *Supervisor) Done() <-chan struct{} { return s.inner.Done() }
func (s *Supervisor) Statuses() []Status   { return s.inner.Statuses() }
func (s *Supervisor) Pids() map[string]int { return s.inner.Pids() }

// Run starts the specs and blocks until the whole stack has drained.
func Run(specs []Spec, opts Options) *Report {
	return Start(specs, opts).Wait()
}

// Builtin returns the default development stack used when no config names
// the processes.
func Builtin() []Spec { return registry.Builtin() }

// LoadConfig reads a TOML config file and resolves it into run settings
// plus process specs.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// OpenStore opens a run record store from a DSN (sqlite path or
// postgres:// URL).
func OpenStore(dsn string) (Store, error) { return storefactory.NewFromDSN(dsn) }

// OpenHistorySink opens an event sink from a DSN (clickhouse:// or
// opensearch:// URL).
func OpenHistorySink(dsn string) (HistorySink, error) { return historyfactory.NewSinkFromDSN(dsn) }

// NewHistoryFanout builds the async dispatcher the supervisor publishes
// lifecycle events through. Close it after Wait returns.
func NewHistoryFanout(sinks []HistorySink, log *slog.Logger) *HistoryFanout {
	return history.NewFanout(sinks, log)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// NewSampler builds a resource usage sampler; start it with the
// supervisor's Pids func and register it to expose gauges.
func NewSampler(interval time.Duration) *Sampler { return metrics.NewSampler(interval) }

// NewStatusServer starts an HTTP server exposing the run status API for a
// running supervisor. Sampler may be nil. The caller shuts the server down
// via http.Server's Shutdown or Close.
func NewStatusServer(addr, basePath string, s *Supervisor, sampler *Sampler) *http.Server {
	return iapi.NewServer(addr, basePath, s.inner, sampler)
}

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
