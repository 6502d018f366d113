package watcher

import (
	"context"

	"github.com/mvp-joe/hackdecl/internal/index"
)

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Indexer is the part of index.Indexer the coordinator drives.
type Indexer interface {
	// Index brings the index up to date. hint lists changed files; empty
	// means a full walk.
	Index(ctx context.Context, hint []string) (*index.Stats, error)
}
