package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lipidong/dong/internal/config"
	"github.com/lipidong/dong/internal/guard"
	"github.com/lipidong/dong/internal/logger"
)

// loggerName is the registry key of the CLI's logger.
const loggerName = "dong"

// app is the per-invocation environment shared by subcommands.
type app struct {
	cfg      *config.Config
	home     string
	registry *logger.Registry
	log      *logger.Logger
	policy   guard.Policy
}

// newApp loads configuration, applies the persistent flags and sets up
// logging and the failure policy.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, home, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var levelPtr *string
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		levelPtr = &level
	}
	var quietPtr *bool
	if cmd.Flags().Changed("quiet") {
		quiet, _ := cmd.Flags().GetBool("quiet")
		quietPtr = &quiet
	}
	cfg.MergeWithFlags(nil, nil, nil, levelPtr, quietPtr, nil)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	registry := logger.NewRegistry()
	log, err := registry.GetOrCreate(loggerName, logger.Options{
		File:    cfg.LogFile,
		Quiet:   cfg.Quiet,
		Level:   cfg.LogLevel,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	mode, _ := guard.ParseMode(cfg.Guard.OnFailure)
	policy := guard.Policy{
		OnFailure: mode,
		Out:       cmd.ErrOrStderr(),
		Handler: func(f *guard.CapturedFailure) {
			log.Errorf("%s: %s", f.Kind, f.Message)
		},
	}
	if cfg.Guard.PostMortem == "goroutines" {
		policy.DropIntoDebugger = true
		policy.PostMortem = guard.DumpGoroutines(cmd.ErrOrStderr())
	}

	return &app{
		cfg:      cfg,
		home:     home,
		registry: registry,
		log:      log,
		policy:   policy,
	}, nil
}

func (a *app) close() {
	a.registry.Close()
}

// guarded builds a RunE that runs fn under the configured failure policy.
func guarded(fn func(a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		// The runner has already reported an exhausted run; no trace.
		var exhausted error
		err = guard.Wrap(a.policy, func() error {
			err := fn(a, cmd, args)
			if errors.Is(err, errCommandFailed) {
				exhausted = err
				return nil
			}
			return err
		})()
		if exhausted != nil {
			if a.policy.OnFailure == guard.Rethrow {
				return exhausted
			}
			a.log.Errorf("%v", exhausted)
			return nil
		}
		return err
	}
}
