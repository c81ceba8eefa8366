package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lipidong/dong/internal/timefmt"
)

// NewTimeCommand creates the time command group
func NewTimeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Convert between times and strftime-formatted strings",
	}
	cmd.AddCommand(newTimeFormatCommand())
	cmd.AddCommand(newTimeParseCommand())
	return cmd
}

func newTimeFormatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format [unix-seconds]",
		Short: "Format a unix timestamp (default: now)",
		Example: `  dong time format
  dong time format --layout '%Y%m%d' 1700000000`,
		Args: cobra.MaximumNArgs(1),
		RunE: guarded(runTimeFormat),
	}
	cmd.Flags().String("layout", timefmt.DefaultLayout, "strftime layout")
	cmd.Flags().Bool("utc", false, "Format in UTC instead of local time")
	return cmd
}

func runTimeFormat(a *app, cmd *cobra.Command, args []string) error {
	layout, _ := cmd.Flags().GetString("layout")
	utc, _ := cmd.Flags().GetBool("utc")

	t := time.Now()
	if len(args) == 1 {
		var secs int64
		if _, err := fmt.Sscan(args[0], &secs); err != nil {
			return fmt.Errorf("invalid unix timestamp %q", args[0])
		}
		t = time.Unix(secs, 0)
	}
	if utc {
		t = t.UTC()
	}

	fmt.Fprintln(cmd.OutOrStdout(), timefmt.Time2Str(t, layout))
	return nil
}

func newTimeParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse text with a strftime layout and print its unix timestamp",
		Example: `  dong time parse '2024-01-02 03:04:05'
  dong time parse --layout '%d/%m/%Y' 02/01/2024`,
		Args: cobra.ExactArgs(1),
		RunE: guarded(runTimeParse),
	}
	cmd.Flags().String("layout", timefmt.DefaultLayout, "strftime layout")
	cmd.Flags().Bool("utc", false, "Interpret zone-less text as UTC instead of local time")
	return cmd
}

func runTimeParse(a *app, cmd *cobra.Command, args []string) error {
	layout, _ := cmd.Flags().GetString("layout")
	utc, _ := cmd.Flags().GetBool("utc")

	loc := time.Local
	if utc {
		loc = time.UTC
	}
	t, err := timefmt.Str2TimeIn(args[0], layout, loc)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Unix())
	return nil
}
