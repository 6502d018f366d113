package watcher

import (
	"context"
	"log/slog"
)

// WatchCoordinator routes debounced file changes from a FileWatcher to an
// Indexer.
type WatchCoordinator struct {
	files   FileWatcher
	indexer Indexer
	logger  *slog.Logger
	ctx     context.Context
}

// NewWatchCoordinator creates a new watch coordinator. A nil logger discards
// output.
func NewWatchCoordinator(files FileWatcher, indexer Indexer, logger *slog.Logger) *WatchCoordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WatchCoordinator{
		files:   files,
		indexer: indexer,
		logger:  logger,
	}
}

// Start begins routing events to the indexer. Blocks until ctx is cancelled,
// then stops the file watcher.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.logger.Warn("file watcher stop failed", "error", err)
	}
}

// handleFileChange indexes one batch of changed files. Indexing errors are
// logged and watching continues.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.Debug("processing file changes", "count", len(files))
	stats, err := c.indexer.Index(ctx, files)
	if err != nil {
		c.logger.Error("indexing failed", "error", err)
		return
	}

	c.logger.Info("indexed changes",
		"extracted", stats.Extracted,
		"failed", stats.Failed,
		"removed", stats.Removed,
	)
}
