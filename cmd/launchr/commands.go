package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/launchr/internal/config"
	"github.com/loykin/launchr/internal/logger"
	"github.com/loykin/launchr/internal/registry"
	"github.com/loykin/launchr/internal/store"
	storefactory "github.com/loykin/launchr/internal/store/factory"
	"github.com/loykin/launchr/pkg/client"
)

type command struct{}

// loadRun resolves the effective configuration and process table. Without a
// config file the built-in stack is used; --only narrows the table. Every
// failure here is a configuration error, reported before anything spawns.
func loadRun(configPath string, only []string) (*config.Config, *registry.Registry, error) {
	cfg := config.Default()
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg = c
	}

	specs := cfg.Specs
	if len(specs) == 0 {
		specs = registry.Builtin()
		for i := range specs {
			specs[i].Log = logger.Config{File: cfg.ChildLog}
		}
	}

	reg, err := registry.New(specs)
	if err != nil {
		return nil, nil, err
	}
	reg, err = reg.Filter(only)
	if err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}

// Up runs the stack and blocks until it has fully drained.
func (c command) Up(g GlobalFlags, f UpFlags) error {
	cfg, reg, err := loadRun(g.ConfigPath, f.Only)
	if err != nil {
		return &exitCodeError{code: exitConfig, err: err}
	}
	if f.GraceTimeout > 0 {
		cfg.GraceTimeout = f.GraceTimeout
	}
	if f.FailFastSet {
		cfg.FailFast = f.FailFast
	}
	if f.LogLevel != "" {
		lvl := logger.Level(strings.ToLower(f.LogLevel))
		switch lvl {
		case logger.LevelDebug, logger.LevelInfo, logger.LevelWarn, "warning", logger.LevelError:
		default:
			return &exitCodeError{code: exitConfig, err: fmt.Errorf("unknown log level %q", f.LogLevel)}
		}
		cfg.Slog.Level = lvl
	}
	return runUp(cfg, reg)
}

// Validate checks the configuration and the local environment without
// spawning anything.
func (c command) Validate(g GlobalFlags, only []string) error {
	_, reg, err := loadRun(g.ConfigPath, only)
	if err != nil {
		return &exitCodeError{code: exitConfig, err: err}
	}
	if err := reg.Check(); err != nil {
		return &exitCodeError{code: exitConfig, err: err}
	}
	fmt.Printf("configuration ok: %d process(es)\n", reg.Len())
	for _, name := range reg.Names() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

// Status queries the status API of a running launcher.
func (c command) Status(f StatusFlags) error {
	apiURL := f.APIUrl
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080/api"
	}

	cl := client.New(client.Config{BaseURL: apiURL, Timeout: f.APITimeout})
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()

	if !cl.IsReachable(ctx) {
		return fmt.Errorf("launcher not reachable at %s - is an 'up' run active with [server] configured?", apiURL)
	}

	if f.Name != "" {
		ch, err := cl.ChildStatus(ctx, f.Name)
		if err != nil {
			return err
		}
		printJSON(ch)
		return nil
	}

	rs, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	printJSON(rs)
	return nil
}

// History lists persisted child run records from the configured store.
func (c command) History(g GlobalFlags, f HistoryFlags) error {
	cfg, _, err := loadRun(g.ConfigPath, nil)
	if err != nil {
		return &exitCodeError{code: exitConfig, err: err}
	}
	if cfg.Store.DSN == "" {
		return &exitCodeError{code: exitConfig, err: fmt.Errorf("history requires store.dsn in the config")}
	}

	st, err := storefactory.NewFromDSN(cfg.Store.DSN)
	if err != nil {
		return &exitCodeError{code: exitConfig, err: fmt.Errorf("open store: %w", err)}
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var recs []store.Record
	switch {
	case f.RunID != "":
		recs, err = st.GetRun(ctx, f.RunID)
	case f.Name != "":
		recs, err = st.GetByName(ctx, f.Name, f.Limit)
	default:
		recs, err = st.Recent(ctx, f.Limit)
	}
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("no records")
		return nil
	}
	printRecords(recs)
	return nil
}

func printRecords(recs []store.Record) {
	fmt.Printf("%-26s %-20s %-10s %6s %5s  %-20s %-20s\n",
		"RUN", "NAME", "STATE", "PID", "EXIT", "STARTED", "STOPPED")
	for _, r := range recs {
		stopped := "-"
		if r.StoppedAt.Valid {
			stopped = r.StoppedAt.Time.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-26s %-20s %-10s %6d %5d  %-20s %-20s\n",
			r.RunID, r.Name, r.State, r.PID, r.ExitCode,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), stopped)
	}
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
