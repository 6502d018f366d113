package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/mvp-joe/hackdecl/internal/index"
)

var (
	lookupKindFlag   string
	lookupFormatFlag string
)

// errNoMatch is returned when a lookup finds nothing.
var errNoMatch = errors.New("no matching declarations")

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Find where a declaration lives in the index",
	Long: `Lookup searches the index built by "hackdecl index". A name starting
with a backslash must match the fully qualified name exactly; any other name
matches its last segments, so "User" finds \App\Models\User.

Examples:
  hackdecl lookup User
  hackdecl lookup --kind fun '\App\main'
  hackdecl lookup --format json Config
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd, "")
		if err != nil {
			return err
		}

		var kind decl.Kind
		if lookupKindFlag != "" {
			k, ok := decl.ParseKind(lookupKindFlag)
			if !ok {
				return fmt.Errorf("unknown kind %q (want class, fun, typedef or const)", lookupKindFlag)
			}
			kind = k
		}

		store, err := p.openIndex()
		if err != nil {
			return err
		}
		defer store.Close()

		return runLookup(cmd.OutOrStdout(), store, kind, args[0], lookupFormatFlag)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().StringVarP(&lookupKindFlag, "kind", "k", "", "restrict to one kind: class, fun, typedef or const")
	lookupCmd.Flags().StringVarP(&lookupFormatFlag, "format", "f", "text", "output format: text or json")
}

func runLookup(w io.Writer, store *index.Store, kind decl.Kind, name, format string) error {
	entries, err := store.Lookup(kind, name)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w for %q", errNoMatch, name)
	}

	switch format {
	case "", "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s:%d\n", e.Kind, e.Name, e.Path, e.Line)
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return fmt.Errorf("unknown output format %q (want text or json)", format)
}
