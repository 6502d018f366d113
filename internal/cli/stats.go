package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/mvp-joe/hackdecl/internal/index"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the declaration index",
	Long: `Stats prints how many files and declarations the index holds, by kind,
and lists the files whose last extraction failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd, "")
		if err != nil {
			return err
		}

		store, err := p.openIndex()
		if err != nil {
			return err
		}
		defer store.Close()

		return runStats(cmd.OutOrStdout(), store)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(w io.Writer, store *index.Store) error {
	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Files:  %s (%s failed)\n", formatNumber(stats.Files), formatNumber(stats.Failed))
	for _, kind := range decl.Kinds {
		fmt.Fprintf(w, "  %-8s %s\n", kind, formatNumber(stats.Decls[kind]))
	}

	if stats.Failed == 0 {
		return nil
	}

	failed, err := store.FailedFiles()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nFailed files:")
	for _, f := range failed {
		fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
	}
	return nil
}
