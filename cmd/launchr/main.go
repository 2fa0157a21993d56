package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// Exit codes: 0 when every child exited cleanly, 1 when any child failed or
// had to be forced, 2 when the configuration was rejected before any spawn.
const (
	exitFailure = 1
	exitConfig  = 2
)

// exitCodeError carries the process exit code through cobra's error path.
// A nil inner error means the outcome was already reported (the run summary)
// and main should exit silently with the code.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitCodeError) Unwrap() error { return e.err }

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		code := exitFailure
		var ee *exitCodeError
		if errors.As(err, &ee) {
			code = ee.code
			if ee.err == nil {
				os.Exit(code)
			}
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(code)
	}
}

// GlobalFlags holds persistent flags shared by all subcommands
type GlobalFlags struct {
	ConfigPath string
}

// UpFlags holds flags for the up command
type UpFlags struct {
	GraceTimeout time.Duration
	FailFast     bool
	FailFastSet  bool // distinguishes --fail-fast=false from "not given"
	LogLevel     string
	Only         []string
}

// StatusFlags holds flags for the status command
type StatusFlags struct {
	Name       string
	APIUrl     string
	APITimeout time.Duration
}

// HistoryFlags holds flags for the history command
type HistoryFlags struct {
	RunID string
	Name  string
	Limit int
}

// InitFlags holds flags for the init command
type InitFlags struct {
	Template string
	Name     string
	Output   string
	Force    bool
}

// buildRoot creates the root command with all subcommands attached
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	upFlags := &UpFlags{}
	statusFlags := &StatusFlags{}
	historyFlags := &HistoryFlags{}
	initFlags := &InitFlags{}

	launchrCommand := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createUpCommand(launchrCommand, globalFlags, upFlags),
		createValidateCommand(launchrCommand, globalFlags, upFlags),
		createStatusCommand(launchrCommand, statusFlags),
		createHistoryCommand(launchrCommand, globalFlags, historyFlags),
		createInitCommand(launchrCommand, initFlags),
		createVersionCommand(),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "launchr",
		Short: "Launch and supervise a multi-process development stack",
		Long: `Launchr starts a set of processes as one supervised unit, watches them
until they exit, and tears the whole stack down on Ctrl-C with a graceful
stop window before force-killing stragglers.

Examples:
  launchr up                                # run the built-in stack
  launchr up --config launchr.toml          # run processes from a config file
  launchr up --only media --only frontend   # run a subset
  launchr validate --config launchr.toml    # check config without spawning
  launchr status                            # query a running launcher
  launchr history --limit 20                # past runs from the store
  launchr init --template=web               # write a starter config`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")

	return root
}

// createUpCommand creates the up subcommand
func createUpCommand(launchrCommand command, globalFlags *GlobalFlags, upFlags *UpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the stack and supervise it until it exits",
		Long: `Start every configured process concurrently and supervise the run.
The command blocks until all children have exited. On SIGINT or SIGTERM the
stack is stopped gracefully; a second signal skips the grace window.

Without --config the built-in development stack is launched.

Examples:
  launchr up
  launchr up --config launchr.toml
  launchr up --grace-timeout=5s --fail-fast
  launchr up --only media --only agent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			upFlags.FailFastSet = cmd.Flags().Changed("fail-fast")
			return launchrCommand.Up(*globalFlags, *upFlags)
		},
	}

	cmd.Flags().DurationVar(&upFlags.GraceTimeout, "grace-timeout", 0, "graceful stop window before SIGKILL (default from config, 10s)")
	cmd.Flags().BoolVar(&upFlags.FailFast, "fail-fast", false, "stop the whole stack when any child fails")
	cmd.Flags().StringVar(&upFlags.LogLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
	cmd.Flags().StringSliceVar(&upFlags.Only, "only", nil, "launch only the named processes (repeatable)")

	return cmd
}

// createValidateCommand creates the validate subcommand
func createValidateCommand(launchrCommand command, globalFlags *GlobalFlags, upFlags *UpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without starting anything",
		Long: `Load the configuration, resolve the process table and check that working
directories exist and commands resolve on this machine. Exits with code 2
when the configuration is rejected.

Examples:
  launchr validate
  launchr validate --config launchr.toml
  launchr validate --only media`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchrCommand.Validate(*globalFlags, upFlags.Only)
		},
	}

	cmd.Flags().StringSliceVar(&upFlags.Only, "only", nil, "validate only the named processes (repeatable)")

	return cmd
}

// createStatusCommand creates the status subcommand
func createStatusCommand(launchrCommand command, statusFlags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running launcher",
		Long: `Query the status API of a launcher started with 'up' and a [server]
section in its config.

Examples:
  launchr status
  launchr status --name=media
  launchr status --api-url=http://remote:8080/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchrCommand.Status(*statusFlags)
		},
	}

	cmd.Flags().StringVar(&statusFlags.Name, "name", "", "process name (optional)")
	cmd.Flags().StringVar(&statusFlags.APIUrl, "api-url", "", "launcher API URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&statusFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")

	return cmd
}

// createHistoryCommand creates the history subcommand
func createHistoryCommand(launchrCommand command, globalFlags *GlobalFlags, historyFlags *HistoryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs from the run store",
		Long: `List child run records persisted by previous 'up' invocations.
Requires store.dsn to be set in the config.

Examples:
  launchr history --config launchr.toml
  launchr history --config launchr.toml --run 20260101-093000-1a2b3c4d
  launchr history --config launchr.toml --name media --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchrCommand.History(*globalFlags, *historyFlags)
		},
	}

	cmd.Flags().StringVar(&historyFlags.RunID, "run", "", "show the children of one run")
	cmd.Flags().StringVar(&historyFlags.Name, "name", "", "show past runs of one process")
	cmd.Flags().IntVar(&historyFlags.Limit, "limit", 20, "maximum number of records")

	return cmd
}

// createInitCommand creates the init subcommand
func createInitCommand(launchrCommand command, initFlags *InitFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Generate a starter TOML config for a common stack shape. The file is a
valid config meant to be edited and then run with 'up --config'.

Supported templates: web, api, worker, database, stack, simple

Examples:
  launchr init
  launchr init --template=web --name=docs-server
  launchr init --template=stack --output=dev.toml
  launchr init --template=simple --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return launchrCommand.Init(*initFlags)
		},
	}

	cmd.Flags().StringVar(&initFlags.Template, "template", "stack", "template kind: web, api, worker, database, stack, simple")
	cmd.Flags().StringVar(&initFlags.Name, "name", "", "process name for the template (defaults to <template>-sample)")
	cmd.Flags().StringVar(&initFlags.Output, "output", "launchr.toml", "output file path")
	cmd.Flags().BoolVar(&initFlags.Force, "force", false, "overwrite an existing file")

	return cmd
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the launchr version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("launchr", version)
		},
	}
}
