package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hackdecl/internal/decl"
)

// modeCmd represents the mode command
var modeCmd = &cobra.Command{
	Use:   "mode <file>...",
	Short: "Print the parsing mode selected by each file's header",
	Long: `Mode reports the dialect chosen by the "<?hh // <mode>" pragma at the
top of each file: default, strict, partial, decl or experimental.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

func runMode(w io.Writer, paths []string) error {
	for _, path := range paths {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		fmt.Fprintf(w, "%s\t%s\n", path, decl.DetectMode(text))
	}
	return nil
}
