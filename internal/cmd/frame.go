package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lipidong/dong/internal/frame"
	"github.com/lipidong/dong/internal/safeopen"
)

// NewFrameCommand creates the frame command group
func NewFrameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Work with CSV tables",
	}
	cmd.AddCommand(newFrameFormatCommand())
	return cmd
}

func newFrameFormatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format <csv-file>",
		Short: "Format CSV columns with a printf-style layout",
		Long: `Apply a single-directive printf format to the cells of selected columns.

The input may be gzip-compressed; "-" reads stdin. Without --columns every
column is formatted.

Examples:
  dong frame format --columns price --format '%.2f' prices.csv
  dong frame format --columns qty --format '%05d' --output markdown data.csv.gz`,
		Args: cobra.ExactArgs(1),
		RunE: guarded(runFrameFormat),
	}

	cmd.Flags().StringSlice("columns", nil, "Columns to format (default: all)")
	cmd.Flags().String("format", "%s", "printf format with exactly one directive")
	cmd.Flags().String("output", "table", "Output format: table, csv, markdown, html")

	return cmd
}

func runFrameFormat(a *app, cmd *cobra.Command, args []string) error {
	columns, _ := cmd.Flags().GetStringSlice("columns")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	fn, err := frame.Printf(format)
	if err != nil {
		return err
	}

	rc, err := safeopen.Open(args[0])
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := frame.ReadCSV(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if err := f.FormatColumns(columns, fn); err != nil {
		return err
	}
	a.log.Debugf("formatted %d row(s) of %s", f.Len(), args[0])
	return writeFrame(cmd, f, output)
}

// writeFrame renders f to the command's stdout in the named output format.
func writeFrame(cmd *cobra.Command, f *frame.Frame, output string) error {
	w := cmd.OutOrStdout()
	switch output {
	case "table":
		return f.WriteTable(w)
	case "csv":
		return f.WriteCSV(w)
	case "markdown", "md":
		_, err := io.WriteString(w, f.Markdown())
		return err
	case "html":
		html, err := f.HTML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return fmt.Errorf("unknown output format %q, must be one of: table, csv, markdown, html", output)
	}
}
