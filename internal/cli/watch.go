package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/hackdecl/internal/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep the declaration index up to date as files change",
	Long: `Watch brings the index up to date, then re-indexes changed source files
after each quiet period of watch.debounce_ms milliseconds. It runs until
interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := loadProject(cmd, dirArg(args))
		if err != nil {
			return err
		}
		return runWatch(ctx, p)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// runWatch indexes the project once and then follows changes until ctx is
// cancelled.
func runWatch(ctx context.Context, p *project) error {
	s, err := openSession(p, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.indexer.Index(ctx, nil); err != nil {
		return fmt.Errorf("initial indexing failed: %w", err)
	}

	discovery := s.indexer.Discovery()
	fw, err := watcher.NewFileWatcher([]string{p.root}, p.cfg.SourceExtensions(),
		watcher.WithDebounce(time.Duration(p.cfg.Watch.DebounceMS)*time.Millisecond),
		watcher.WithLogger(p.logger),
		watcher.WithSkipDir(func(path string) bool {
			rel, ok := discovery.Rel(path)
			return ok && discovery.Ignored(rel)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	p.logger.Info("watching for changes", "root", p.root)
	coord := watcher.NewWatchCoordinator(fw, s.indexer, p.logger)
	if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}

	p.logger.Info("watch stopped", "cache_hits", s.cache.Hits(), "cache_misses", s.cache.Misses())
	return nil
}
