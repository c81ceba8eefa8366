package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lipidong/dong/internal/frame"
	"github.com/lipidong/dong/internal/history"
	"github.com/lipidong/dong/internal/timefmt"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show the most recent runs recorded by "dong run --history".

Runs are read from history.db_path (default $DONG_HOME/history.db).`,
		Args: cobra.NoArgs,
		RunE: guarded(runHistory),
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	cmd.Flags().String("time-format", timefmt.DefaultLayout, "strftime layout for the start time")
	cmd.Flags().String("output", "table", "Output format: table, csv, markdown, html")

	return cmd
}

func runHistory(a *app, cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	layout, _ := cmd.Flags().GetString("time-format")
	output, _ := cmd.Flags().GetString("output")

	store, err := history.NewStore(a.cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	runs, err := store.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	f, err := runsFrame(runs, layout)
	if err != nil {
		return err
	}
	return writeFrame(cmd, f, output)
}

func runsFrame(runs []history.Run, layout string) (*frame.Frame, error) {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "failed"
		if r.Succeeded {
			status = "ok"
		}
		rows = append(rows, []string{
			timefmt.Time2Str(r.StartedAt.Local(), layout),
			r.Command,
			strconv.Itoa(r.Attempts),
			strconv.Itoa(r.ExitStatus),
			status,
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	return frame.New([]string{"started", "command", "attempts", "exit", "status", "duration"}, rows)
}
