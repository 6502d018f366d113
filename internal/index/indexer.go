// Package index keeps a SQLite index of the declarations in a source tree
// and brings it up to date incrementally: only files whose content changed
// since the last run are extracted again.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/hackdecl/internal/decl"
	"github.com/mvp-joe/hackdecl/internal/scanner"
)

// Config describes what to index.
type Config struct {
	RootDir        string
	CodePatterns   []string
	IgnorePatterns []string
	Backend        scanner.Backend
	Workers        int
}

// Stats describes one indexing run.
type Stats struct {
	RunID     string
	Scanned   int // files considered
	Extracted int // files extracted and stored
	Unchanged int // files skipped because their hash matched
	Failed    int // files whose extraction failed
	Removed   int // files dropped from the index
	CacheHits int // extractions served from the decl cache
	Duration  time.Duration
}

// Indexer extracts declarations for a tree and writes them to a Store.
type Indexer struct {
	cfg       Config
	discovery *Discovery
	scanner   decl.Scanner
	store     *Store
	cache     *DeclCache
	logger    *slog.Logger
	progress  ProgressReporter
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) { ix.logger = logger }
}

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(ix *Indexer) { ix.progress = p }
}

// WithCache sets the in-memory decl cache shared across runs.
func WithCache(c *DeclCache) Option {
	return func(ix *Indexer) { ix.cache = c }
}

// WithScanner overrides the scanner chosen by Config.Backend.
func WithScanner(s decl.Scanner) Option {
	return func(ix *Indexer) { ix.scanner = s }
}

// New creates an indexer writing to store.
func New(cfg Config, store *Store, opts ...Option) (*Indexer, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if b, ok := scanner.ParseBackend(string(cfg.Backend)); ok {
		cfg.Backend = b
	}

	discovery, err := NewDiscovery(cfg.RootDir, cfg.CodePatterns, cfg.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern: %w", err)
	}

	ix := &Indexer{
		cfg:       cfg,
		discovery: discovery,
		store:     store,
		logger:    slog.New(slog.DiscardHandler),
		progress:  NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(ix)
	}

	if ix.scanner == nil {
		s, err := scanner.New(cfg.Backend)
		if err != nil {
			return nil, err
		}
		ix.scanner = s
	}
	return ix, nil
}

// Discovery returns the indexer's file matcher.
func (ix *Indexer) Discovery() *Discovery {
	return ix.discovery
}

// job is one changed file awaiting extraction.
type job struct {
	path   string
	text   []byte
	hash   string
	decls  *decl.Decls
	err    error
	cached bool
}

// Index brings the store up to date. With no changed paths it walks the
// whole tree and also drops files that no longer exist; otherwise only the
// given paths (absolute or relative to the working directory) are examined.
// Extraction failures are recorded per file and never abort the run.
func (ix *Indexer) Index(ctx context.Context, changed []string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RunID: uuid.NewString()}
	log := ix.logger.With("run_id", stats.RunID)

	full := len(changed) == 0
	var paths []string
	if full {
		var err error
		if paths, err = ix.discovery.Discover(); err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
	} else {
		paths = ix.filterChanged(changed)
	}
	ix.progress.OnDiscoveryComplete(len(paths))
	log.Debug("discovered files", "count", len(paths), "full", full)

	stored, err := ix.store.FileHashes()
	if err != nil {
		return nil, err
	}

	var jobs []*job
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats.Scanned++

		text, err := os.ReadFile(filepath.Join(ix.cfg.RootDir, filepath.FromSlash(path)))
		if errors.Is(err, fs.ErrNotExist) {
			if _, ok := stored[path]; ok {
				if err := ix.store.RemoveFile(path); err != nil {
					return nil, err
				}
				stats.Removed++
				log.Debug("removed deleted file", "path", path)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		hash := hashContent(text)
		if stored[path] == hash {
			stats.Unchanged++
			continue
		}
		jobs = append(jobs, &job{path: path, text: text, hash: hash})
	}

	if err := ix.extractAll(ctx, jobs); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, j := range jobs {
		rec := FileRecord{
			Path:      j.path,
			Hash:      j.hash,
			Mode:      decl.DetectMode(j.text).String(),
			RunID:     stats.RunID,
			IndexedAt: now,
		}
		if j.cached {
			stats.CacheHits++
		}

		if j.err != nil {
			rec.Error = j.err.Error()
			if err := ix.store.MarkFailed(rec); err != nil {
				return nil, err
			}
			stats.Failed++
			log.Warn("extraction failed", "path", j.path, "error", j.err)
			continue
		}

		if err := ix.store.ReplaceFile(rec, j.decls); err != nil {
			return nil, err
		}
		stats.Extracted++
	}

	if full {
		present := make(map[string]bool, len(paths))
		for _, p := range paths {
			present[p] = true
		}
		for path := range stored {
			if present[path] {
				continue
			}
			if err := ix.store.RemoveFile(path); err != nil {
				return nil, err
			}
			stats.Removed++
			log.Debug("removed stale file", "path", path)
		}
	}

	stats.Duration = time.Since(start)
	ix.progress.OnComplete(stats)
	log.Info("index updated",
		"scanned", stats.Scanned,
		"extracted", stats.Extracted,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
		"removed", stats.Removed,
		"cache_hits", stats.CacheHits,
		"duration", stats.Duration,
	)
	return stats, nil
}

// extractAll runs the scanner over jobs with at most cfg.Workers in flight.
func (ix *Indexer) extractAll(ctx context.Context, jobs []*job) error {
	ix.progress.OnExtractStart(len(jobs))
	if len(jobs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Workers)

	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ix.extract(j)
			ix.progress.OnFileExtracted(j.path)
			return nil
		})
	}
	return g.Wait()
}

// extract keys the cache on the backend that actually scans the file, so a
// .hack and a .php file with equal text never share an entry under auto.
func (ix *Indexer) extract(j *job) {
	backend := ix.cfg.Backend
	if backend == scanner.BackendAuto {
		backend = scanner.Detect(j.path, j.text)
	}
	key := Key(string(backend), j.text)
	if d, ok := ix.cache.Get(key); ok {
		j.decls, j.cached = d, true
		return
	}

	j.decls, j.err = decl.Extract(ix.scanner, j.path, j.text)
	if j.err == nil {
		ix.cache.Set(key, j.decls)
	}
}

// filterChanged maps changed paths to root-relative source paths, dropping
// anything outside the root or not matched by the code patterns.
func (ix *Indexer) filterChanged(changed []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range changed {
		rel, ok := ix.discovery.Rel(p)
		if !ok || seen[rel] || !ix.discovery.Matches(rel) {
			continue
		}
		seen[rel] = true
		out = append(out, rel)
	}
	return out
}

func hashContent(text []byte) string {
	sum := sha256.Sum256(text)
	return hex.EncodeToString(sum[:])
}
