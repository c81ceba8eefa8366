package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dong
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dong",
		Short: "Personal toolbelt for shell scripting chores",
		Long: `dong bundles small helpers for ad hoc scripting: running shell
commands with bounded retries, converting times with strftime layouts,
reading gzip-or-plain files, and formatting CSV columns.

Configuration is loaded from $DONG_HOME/config.yaml (default ~/.dong).
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		// main prints the returned error
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: $DONG_HOME/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().Bool("quiet", false, "Only log errors to the console")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewTimeCommand())
	cmd.AddCommand(NewCatCommand())
	cmd.AddCommand(NewFrameCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
