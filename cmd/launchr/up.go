package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/launchr/internal/config"
	"github.com/loykin/launchr/internal/history"
	historyfactory "github.com/loykin/launchr/internal/history/factory"
	"github.com/loykin/launchr/internal/lock"
	"github.com/loykin/launchr/internal/logger"
	"github.com/loykin/launchr/internal/metrics"
	"github.com/loykin/launchr/internal/registry"
	"github.com/loykin/launchr/internal/server"
	"github.com/loykin/launchr/internal/store"
	storefactory "github.com/loykin/launchr/internal/store/factory"
	"github.com/loykin/launchr/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// runUp is the body of the up command: wire the configured integrations,
// start the supervisor and block until the run has drained. The exit code of
// the launcher mirrors the outcome of the run.
func runUp(cfg *config.Config, reg *registry.Registry) error {
	log := logger.Config{Slog: cfg.Slog}.NewSlogger()
	slog.SetDefault(log)

	// Missing working directories reject the whole run up front. Missing
	// binaries do not: spawn reports those per child.
	if err := reg.CheckDirs(); err != nil {
		return &exitCodeError{code: exitConfig, err: err}
	}

	runLock, err := lock.Acquire(cfg.RunDir)
	if err != nil {
		return &exitCodeError{code: exitFailure, err: err}
	}
	defer runLock.Release()

	supervisor.ScanLeftovers(cfg.RunDir, log)

	st, fan, err := openIntegrations(cfg, log)
	if err != nil {
		return &exitCodeError{code: exitConfig, err: err}
	}
	if st != nil {
		defer func() { _ = st.Close() }()
	}
	if fan != nil {
		defer fan.Close()
	}

	var sampler *metrics.Sampler
	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Warn("metrics registration failed", "error", err)
		}
		sampler = metrics.NewSampler(cfg.Metrics.SampleInterval)
		if err := sampler.Register(prometheus.DefaultRegisterer); err != nil {
			log.Warn("sampler registration failed", "error", err)
		}
	}

	sup := supervisor.Start(reg.Specs(), supervisor.Options{
		GraceTimeout: cfg.GraceTimeout,
		FailFast:     cfg.FailFast,
		RunDir:       cfg.RunDir,
		Env:          cfg.Env,
		Logger:       log,
		Store:        st,
		History:      fan,
	})

	if sampler != nil {
		sampler.Start(context.Background(), sup.Pids)
		defer sampler.Stop()
	}

	var srv *http.Server
	if cfg.Server.Listen != "" {
		srv = server.NewServer(cfg.Server.Listen, cfg.Server.BasePath, sup, sampler)
		log.Info("status server listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)
	}

	go watchSignals(sup, log)

	report := sup.Wait()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}

	fmt.Println(report.Summary())
	if code := report.ExitCode(); code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// openIntegrations opens the run store and the history fanout when the
// config asks for them. A DSN that cannot be opened rejects the run; a silent
// half-configured launcher would be worse than a loud refusal.
func openIntegrations(cfg *config.Config, log *slog.Logger) (store.Store, *history.Fanout, error) {
	var st store.Store
	if cfg.Store.DSN != "" {
		s, err := storefactory.NewFromDSN(cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = s.EnsureSchema(ctx)
		cancel()
		if err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("store schema: %w", err)
		}
		st = s
	}

	var fan *history.Fanout
	if len(cfg.History.DSNs) > 0 {
		sinks := make([]history.Sink, 0, len(cfg.History.DSNs))
		for _, dsn := range cfg.History.DSNs {
			sink, err := historyfactory.NewSinkFromDSN(dsn)
			if err != nil {
				if st != nil {
					_ = st.Close()
				}
				return nil, nil, fmt.Errorf("history sink: %w", err)
			}
			sinks = append(sinks, sink)
		}
		fan = history.NewFanout(sinks, log)
	}

	return st, fan, nil
}

// watchSignals maps operator signals onto the shutdown coordinator: the
// first SIGINT or SIGTERM requests a graceful stop, a second one skips the
// grace window and force-kills the stack.
func watchSignals(sup *supervisor.Supervisor, log *slog.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received, stopping stack", "signal", sig.String())
		sup.Stop()
	case <-sup.Done():
		return
	}

	select {
	case sig := <-sigCh:
		log.Warn("second signal, force-killing stack", "signal", sig.String())
		sup.Kill()
	case <-sup.Done():
	}
}
