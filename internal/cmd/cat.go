package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lipidong/dong/internal/safeopen"
)

// NewCatCommand creates the cat command
func NewCatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <file>...",
		Short: "Print files, decompressing gzip content",
		Long: `Concatenate files to stdout. Gzip input is detected from its content,
so compressed files need not end in .gz. "-" reads stdin.

With --out the result is written to a file instead; an --out path ending
in .gz is compressed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: guarded(runCat),
	}
	cmd.Flags().String("out", "", "Write to this file instead of stdout")
	return cmd
}

func runCat(a *app, cmd *cobra.Command, args []string) (err error) {
	var w io.Writer = cmd.OutOrStdout()
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		wc, cerr := safeopen.Create(out)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := wc.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", out, cerr)
			}
		}()
		w = wc
	}

	for _, path := range args {
		if err := copyFile(w, path); err != nil {
			return err
		}
		a.log.Debugf("copied %s", path)
	}
	return nil
}

func copyFile(w io.Writer, path string) error {
	rc, err := safeopen.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if _, err := io.Copy(w, rc); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
