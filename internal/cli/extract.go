package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/mvp-joe/hackdecl/internal/scanner"
)

var (
	extractBackendFlag string
	extractFormatFlag  string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Print the top-level declarations of source files",
	Long: `Extract parses each file and prints its four declaration tables
(classes, functions, type aliases, constants) in name order. When a name is
declared twice in one file the later declaration wins.

A file that cannot be parsed at all is reported and makes the command exit
non-zero; recoverable syntax errors are ignored.

Examples:
  # Human-readable listing
  hackdecl extract src/User.hack

  # Machine-readable output
  hackdecl extract --format json src/*.hack

  # Force the tree-sitter backend
  hackdecl extract --backend php legacy.php
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject(cmd, "")
		if err != nil {
			return err
		}

		backend := p.cfg.Scanner.Backend
		if extractBackendFlag != "" {
			backend = extractBackendFlag
		}
		s, err := scanner.New(scanner.Backend(backend))
		if err != nil {
			return err
		}

		results := extractFiles(s, args)
		if err := writeResults(cmd.OutOrStdout(), results, extractFormatFlag); err != nil {
			return err
		}

		if failed := countFailed(results); failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractBackendFlag, "backend", "b", "", "scanner backend: "+scanner.BackendList()+" (default from config)")
	extractCmd.Flags().StringVarP(&extractFormatFlag, "format", "f", "text", "output format: text, json or yaml")
}

// fileResult is the outcome of extracting one file.
type fileResult struct {
	Path  string `json:"path"`
	Mode  string `json:"mode,omitempty"`
	Error string `json:"error,omitempty"`
	*decl.Decls
}

func extractFiles(s decl.Scanner, paths []string) []fileResult {
	results := make([]fileResult, 0, len(paths))
	for _, path := range paths {
		text, err := os.ReadFile(path)
		if err != nil {
			results = append(results, fileResult{Path: path, Error: err.Error()})
			continue
		}

		res := fileResult{Path: path, Mode: decl.DetectMode(text).String()}
		if res.Decls, err = decl.Extract(s, path, text); err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func countFailed(results []fileResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}

func writeResults(w io.Writer, results []fileResult, format string) error {
	switch format {
	case "", "text":
		return writeText(w, results)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		return writeYAML(w, results)
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// declRow is one line of text output.
type declRow struct {
	kind string
	name string
	span decl.Span
}

func declRows(d *decl.Decls) []declRow {
	var rows []declRow
	for name, c := range d.Classes.All() {
		rows = append(rows, declRow{string(c.Kind), name, c.Span})
	}
	for name, f := range d.Funs.All() {
		rows = append(rows, declRow{"function", name, f.Span})
	}
	for name, t := range d.Typedefs.All() {
		kind := "type"
		if t.Opaque {
			kind = "newtype"
		}
		rows = append(rows, declRow{kind, name, t.Span})
	}
	for name, c := range d.Consts.All() {
		rows = append(rows, declRow{"const", name, c.Span})
	}
	return rows
}

func writeText(w io.Writer, results []fileResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s: error: %s\n", r.Path, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s (%s)\n", r.Path, r.Mode)
		for _, row := range declRows(r.Decls) {
			fmt.Fprintf(tw, "  %s\t%s\t%d:%d-%d:%d\n", row.kind, row.name,
				row.span.Start.Line, row.span.Start.Column, row.span.End.Line, row.span.End.Column)
		}
	}
	return tw.Flush()
}

// writeYAML renders the JSON form as block-style YAML, keeping table order.
func writeYAML(w io.Writer, results []fileResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to convert output to yaml: %w", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles the JSON input carried.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
