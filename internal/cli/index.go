package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hackdecl/internal/index"
	"github.com/mvp-joe/hackdecl/internal/scanner"
)

var quietFlag bool

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Update the declaration index for a project",
	Long: `Index walks the project, extracts the declarations of every source file
whose content changed since the last run, and stores them in the SQLite
database named by index.database (default .hackdecl/index.db).

Files that fail to parse are recorded as failed and retried once their
content changes. Files deleted from disk are dropped from the index.

Examples:
  # Index the current directory
  hackdecl index

  # Index another project without progress output
  hackdecl index --quiet ../www
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := loadProject(cmd, dirArg(args))
		if err != nil {
			return err
		}

		stats, err := runIndex(ctx, p, cmd.ErrOrStderr(), quietFlag)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("indexing cancelled")
			}
			return err
		}

		if quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "Indexing complete: %d extracted, %d failed in %.2fs\n",
				stats.Extracted, stats.Failed, stats.Duration.Seconds())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
}

// session is an open store plus the indexer writing to it.
type session struct {
	store   *index.Store
	cache   *index.DeclCache
	indexer *index.Indexer
}

func (s *session) Close() error {
	s.cache.Close()
	return s.store.Close()
}

// openSession opens the project's store and builds an indexer for it. A nil
// progress reporter reports nothing.
func openSession(p *project, progress index.ProgressReporter) (*session, error) {
	store, err := index.OpenStore(p.databasePath())
	if err != nil {
		return nil, err
	}

	cache, err := index.NewDeclCache(p.cfg.Index.CacheSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create decl cache: %w", err)
	}

	opts := []index.Option{index.WithLogger(p.logger), index.WithCache(cache)}
	if progress != nil {
		opts = append(opts, index.WithProgress(progress))
	}

	ix, err := index.New(index.Config{
		RootDir:        p.root,
		CodePatterns:   p.cfg.Paths.Code,
		IgnorePatterns: p.cfg.Paths.Ignore,
		Backend:        scanner.Backend(p.cfg.Scanner.Backend),
		Workers:        p.cfg.Index.Workers,
	}, store, opts...)
	if err != nil {
		cache.Close()
		store.Close()
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	return &session{store: store, cache: cache, indexer: ix}, nil
}

// runIndex performs one full incremental run for the project.
func runIndex(ctx context.Context, p *project, progressOut io.Writer, quiet bool) (*index.Stats, error) {
	s, err := openSession(p, NewCLIProgressReporter(progressOut, quiet))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	stats, err := s.indexer.Index(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	return stats, nil
}
