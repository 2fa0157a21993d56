// Package config loads the launcher's TOML configuration and resolves it
// into process specs plus run-wide settings.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/loykin/launchr/internal/env"
	"github.com/loykin/launchr/internal/logger"
	"github.com/loykin/launchr/internal/process"
	"github.com/spf13/viper"
)

const (
	DefaultRunDir       = ".launchr"
	DefaultGraceTimeout = 10 * time.Second
	DefaultBasePath     = "/api"
	defaultSampleEvery  = 5 * time.Second
)

// FileConfig is the raw top-level TOML structure.
type FileConfig struct {
	Env          []string       `toml:"env" mapstructure:"env"`
	EnvFiles     []string       `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv     *bool          `toml:"use_os_env" mapstructure:"use_os_env"`
	RunDir       string         `toml:"run_dir" mapstructure:"run_dir"`
	GraceTimeout time.Duration  `toml:"grace_timeout" mapstructure:"grace_timeout"`
	FailFast     bool           `toml:"fail_fast" mapstructure:"fail_fast"`
	Log          *LogConfig     `toml:"log" mapstructure:"log"`
	Server       *ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics      *MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Store        *StoreConfig   `toml:"store" mapstructure:"store"`
	History      *HistoryConfig `toml:"history" mapstructure:"history"`
	Processes    []ProcConfig   `toml:"processes" mapstructure:"processes"`
}

// LogConfig carries both the orchestrator's own log settings (level, format)
// and the rotation settings for captured child output.
type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled        bool          `toml:"enabled" mapstructure:"enabled"`
	SampleInterval time.Duration `toml:"sample_interval" mapstructure:"sample_interval"`
}

type StoreConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type HistoryConfig struct {
	DSNs []string `toml:"dsns" mapstructure:"dsns"`
}

type ProcConfig struct {
	Name       string   `toml:"name" mapstructure:"name"`
	Command    string   `toml:"command" mapstructure:"command"`
	Args       []string `toml:"args" mapstructure:"args"`
	WorkDir    string   `toml:"workdir" mapstructure:"workdir"`
	Env        []string `toml:"env" mapstructure:"env"`
	StopSignal string   `toml:"stop_signal" mapstructure:"stop_signal"`
	PIDFile    string   `toml:"pidfile" mapstructure:"pidfile"`
}

// Config is the resolved configuration: everything the launcher needs for
// one run.
type Config struct {
	RunDir       string
	GraceTimeout time.Duration
	FailFast     bool
	Slog         logger.SlogConfig
	ChildLog     logger.FileConfig
	Server       ServerConfig
	Metrics      MetricsConfig
	Store        StoreConfig
	History      HistoryConfig
	Env          *env.Env
	Specs        []process.Spec
}

// Default returns the settings used when no config file is given: built-in
// run directory, 10s grace window, OS environment inherited, child output
// captured under <run_dir>/logs. The spec table stays empty; callers fall
// back to the built-in registry.
func Default() *Config {
	c := &Config{
		RunDir:       DefaultRunDir,
		GraceTimeout: DefaultGraceTimeout,
		Slog:         logger.SlogConfig{Level: logger.LevelInfo, Format: logger.FormatText, Color: true, TimeStamps: true},
		Env:          env.New(),
	}
	c.ChildLog = logger.FileConfig{Dir: filepath.Join(c.RunDir, "logs")}
	return c
}

// Load reads a TOML config file and resolves it on top of the defaults.
// Referenced env_files are read here so a missing file fails the run before
// anything is spawned.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	return resolve(&fc)
}

func resolve(fc *FileConfig) (*Config, error) {
	c := Default()
	if fc.RunDir != "" {
		c.RunDir = fc.RunDir
		c.ChildLog.Dir = filepath.Join(c.RunDir, "logs")
	}
	if fc.GraceTimeout > 0 {
		c.GraceTimeout = fc.GraceTimeout
	}
	c.FailFast = fc.FailFast

	if fc.Log != nil {
		if fc.Log.Level != "" {
			c.Slog.Level = logger.Level(fc.Log.Level)
		}
		if fc.Log.Format != "" {
			c.Slog.Format = logger.Format(fc.Log.Format)
			c.Slog.Color = c.Slog.Format == logger.FormatText
		}
		if fc.Log.Dir != "" {
			c.ChildLog.Dir = fc.Log.Dir
		}
		c.ChildLog.MaxSizeMB = fc.Log.MaxSizeMB
		c.ChildLog.MaxBackups = fc.Log.MaxBackups
		c.ChildLog.MaxAgeDays = fc.Log.MaxAgeDays
		c.ChildLog.Compress = fc.Log.Compress
	}
	if fc.Server != nil {
		c.Server = *fc.Server
		if c.Server.Listen != "" && c.Server.BasePath == "" {
			c.Server.BasePath = DefaultBasePath
		}
	}
	if fc.Metrics != nil {
		c.Metrics = *fc.Metrics
		if c.Metrics.Enabled && c.Metrics.SampleInterval <= 0 {
			c.Metrics.SampleInterval = defaultSampleEvery
		}
	}
	if fc.Store != nil {
		c.Store = *fc.Store
	}
	if fc.History != nil {
		c.History = *fc.History
	}

	e := env.New()
	if fc.UseOSEnv != nil && !*fc.UseOSEnv {
		e.Isolate()
	}
	for _, p := range fc.EnvFiles {
		pairs, err := env.LoadFile(p)
		if err != nil {
			return nil, fmt.Errorf("env file %s: %w", p, err)
		}
		e = e.WithPairs(pairs)
	}
	e = e.WithPairs(fc.Env)
	c.Env = e

	c.Specs = make([]process.Spec, 0, len(fc.Processes))
	for _, pc := range fc.Processes {
		c.Specs = append(c.Specs, process.Spec{
			Name:       pc.Name,
			Command:    pc.Command,
			Args:       pc.Args,
			WorkDir:    pc.WorkDir,
			Env:        pc.Env,
			StopSignal: pc.StopSignal,
			PIDFile:    pc.PIDFile,
			Log:        logger.Config{File: c.ChildLog},
		})
	}
	return c, nil
}
