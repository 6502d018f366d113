package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hackdecl/internal/config"
	"github.com/mvp-joe/hackdecl/internal/index"
)

var (
	rootDirFlag   string
	logLevelFlag  string
	logFormatFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hackdecl",
	Short: "Extract and index top-level Hack declarations",
	Long: `hackdecl reads Hack (and plain PHP) source files and reports their
top-level declarations: classes, functions, type aliases and constants.

It can print the declarations of individual files, or keep an incremental
SQLite index of a whole project that is refreshed on demand or on change.

Settings come from .hackdecl/config.yml in the project root and from
HACKDECL_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDirFlag, "root", "C", ".", "project root holding .hackdecl/config.yml")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "override log.format (text, json)")
}

// project is the loaded state shared by commands that work on a source tree.
type project struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

// loadProject reads the configuration for dir (or the --root flag when dir
// is empty) and builds the logger on cmd's stderr.
func loadProject(cmd *cobra.Command, dir string) (*project, error) {
	if dir == "" {
		dir = rootDirFlag
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Log.Format = logFormatFlag
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	return &project{root: root, cfg: cfg, logger: logger}, nil
}

// databasePath resolves index.database against the project root.
func (p *project) databasePath() string {
	if filepath.IsAbs(p.cfg.Index.Database) {
		return p.cfg.Index.Database
	}
	return filepath.Join(p.root, p.cfg.Index.Database)
}

// errNoIndex is returned by read-only commands when the database is missing.
var errNoIndex = errors.New("no index")

// openIndex opens an existing index database. Unlike index.OpenStore it
// never creates one, so lookup and stats leave the tree untouched.
func (p *project) openIndex() (*index.Store, error) {
	path := p.databasePath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s; run \"hackdecl index\" first", errNoIndex, path)
		}
		return nil, fmt.Errorf("failed to stat index: %w", err)
	}
	return index.OpenStore(path)
}

func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
