package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lipidong/dong/internal/history"
	"github.com/lipidong/dong/internal/shell"
)

// errCommandFailed is returned when every attempt of a run failed.
var errCommandFailed = errors.New("command failed")

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- <command line>",
		Short: "Run a shell command, retrying while it fails",
		Long: `Run a command line through /bin/sh and retry it while it exits non-zero.

Each attempt is announced on stderr as "run <command>". When every attempt
fails "<command> Error" is printed to stderr and dong exits non-zero. On
success only the command's captured stdout is written to stdout, so
x=$(dong run -- cmd) captures the payload alone.

Examples:
  dong run -- curl -fsS https://example.com/health
  dong run --retries 5 --delay 2s -- 'make test'
  dong run --timeout 30s --history -- ./flaky.sh`,
		Args: cobra.MinimumNArgs(1),
		RunE: guarded(runCommand),
	}

	cmd.Flags().Int("retries", 3, "Maximum number of retries after the first attempt")
	cmd.Flags().Duration("delay", 0, "Pause between attempts (e.g., 500ms, 2s)")
	cmd.Flags().Duration("timeout", 0, "Limit for each attempt (0 = none)")
	cmd.Flags().Bool("history", false, "Record attempts in the history database")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().String("dir", "", "Working directory for the command")

	return cmd
}

// runCommand implements the run command logic
func runCommand(a *app, cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	var retriesPtr *int
	if flags.Changed("retries") {
		retries, _ := flags.GetInt("retries")
		retriesPtr = &retries
	}
	var delayPtr, timeoutPtr *time.Duration
	if flags.Changed("delay") {
		delay, _ := flags.GetDuration("delay")
		delayPtr = &delay
	}
	if flags.Changed("timeout") {
		timeout, _ := flags.GetDuration("timeout")
		timeoutPtr = &timeout
	}
	var historyPtr *bool
	if flags.Changed("history") {
		enabled, _ := flags.GetBool("history")
		historyPtr = &enabled
	}
	a.cfg.MergeWithFlags(retriesPtr, delayPtr, timeoutPtr, nil, nil, historyPtr)
	if flags.Changed("metrics-file") {
		a.cfg.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	commandLine := strings.Join(args, " ")
	dir, _ := flags.GetString("dir")

	runner := shell.NewRunner(a.cfg.MaxRetries)
	runner.Executor = shell.NewShellExecutor(dir)
	runner.Delay = a.cfg.RetryDelay
	runner.Timeout = a.cfg.Timeout
	// stdout carries only the command's output
	runner.Stdout = cmd.ErrOrStderr()
	runner.Stderr = cmd.ErrOrStderr()
	runner.Logger = a.log

	if a.cfg.History.Enabled {
		store, err := history.NewStore(a.cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		runner.Recorder = store
	}

	var reg *prometheus.Registry
	if a.cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		metrics, err := shell.NewMetrics(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		runner.Metrics = metrics
	}

	outcome := runner.RunResult(cmd.Context(), commandLine)

	if reg != nil {
		if err := shell.WriteTextfile(a.cfg.MetricsFile, reg); err != nil {
			a.log.Warnf("write metrics: %v", err)
		}
	}

	if !outcome.OK {
		if outcome.Err != nil {
			return fmt.Errorf("%w after %d attempt(s): %s: %v", errCommandFailed, outcome.Attempts, commandLine, outcome.Err)
		}
		return fmt.Errorf("%w after %d attempt(s): %s (exit status %d)", errCommandFailed, outcome.Attempts, commandLine, outcome.Last.ExitStatus)
	}

	_, err := cmd.OutOrStdout().Write(outcome.Stdout)
	return err
}
