package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	childSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchr",
			Subsystem: "child",
			Name:      "spawns_total",
			Help:      "Number of successful child spawns.",
		}, []string{"name"},
	)
	childExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchr",
			Subsystem: "child",
			Name:      "exits_total",
			Help:      "Number of child exits by outcome (clean, nonzero, signaled, spawn_failed, residual).",
		}, []string{"name", "outcome"},
	)
	signalsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchr",
			Subsystem: "child",
			Name:      "signals_sent_total",
			Help:      "Number of stop signals delivered to child process groups.",
		}, []string{"name", "signal"},
	)
	forcedKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "launchr",
			Subsystem: "child",
			Name:      "forced_kills_total",
			Help:      "Number of children killed after the grace window expired.",
		}, []string{"name"},
	)
	runningChildren = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "launchr",
			Subsystem: "child",
			Name:      "running_children",
			Help:      "Current number of running children.",
		},
	)
	shutdownDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "launchr",
			Name:      "shutdown_duration_seconds",
			Help:      "Time from entering shutdown until every handle was terminal.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Exit outcome labels used with IncExit.
const (
	OutcomeClean       = "clean"
	OutcomeNonzero     = "nonzero"
	OutcomeSignaled    = "signaled"
	OutcomeSpawnFailed = "spawn_failed"
	OutcomeResidual    = "residual"
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{childSpawns, childExits, signalsSent, forcedKills, runningChildren, shutdownDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncSpawn(name string) {
	if regOK.Load() {
		childSpawns.WithLabelValues(name).Inc()
	}
}

func IncExit(name, outcome string) {
	if regOK.Load() {
		childExits.WithLabelValues(name, outcome).Inc()
	}
}

func IncSignalSent(name, signal string) {
	if regOK.Load() {
		signalsSent.WithLabelValues(name, signal).Inc()
	}
}

func IncForcedKill(name string) {
	if regOK.Load() {
		forcedKills.WithLabelValues(name).Inc()
	}
}

func SetRunningChildren(n int) {
	if regOK.Load() {
		runningChildren.Set(float64(n))
	}
}

func ObserveShutdownDuration(seconds float64) {
	if regOK.Load() {
		shutdownDuration.Observe(seconds)
	}
}
