package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Leonardo4312/filesearch/internal/crawler"
	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
	"github.com/Leonardo4312/filesearch/internal/ui"
)

// RunnerConfig configures an indexing run.
type RunnerConfig struct {
	// Root is the directory tree to index.
	Root string

	// Index is the target index name.
	Index string

	// BatchSize is the number of documents per bulk request.
	BatchSize int

	// Exclude holds glob patterns of files and directories to skip.
	Exclude []string

	// LockDir holds the per-index lock files. Empty disables locking.
	LockDir string
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Store is the engine the documents are written to (required).
	Store store.DocumentStore

	// Renderer for progress display (required).
	Renderer ui.Renderer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Runner executes one indexing run: root check, lock, connectivity
// check, index (re)creation, crawl and bulk submission.
type Runner struct {
	store    store.DocumentStore
	renderer ui.Renderer
	logger   *slog.Logger
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: deps.Store, renderer: deps.Renderer, logger: logger}, nil
}

// Run indexes cfg.Root into cfg.Index. Per-file and per-document failures
// are counted in the returned Stats; any returned error is fatal for the
// run.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (Stats, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return Stats{}, fserrors.RootNotFound(cfg.Root, err)
	}
	if !info.IsDir() {
		return Stats{}, fserrors.RootNotFound(cfg.Root, fmt.Errorf("not a directory"))
	}

	if cfg.LockDir != "" {
		lock := NewLock(cfg.LockDir, cfg.Index)
		acquired, err := lock.TryLock()
		if err != nil {
			return Stats{}, fserrors.LockError(lock.Path(), err)
		}
		if !acquired {
			return Stats{}, fserrors.LockError(lock.Path(), nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	r.logger.Info("index_started",
		slog.String("root", cfg.Root),
		slog.String("index", cfg.Index),
		slog.String("endpoint", r.store.Endpoint()),
		slog.Int("batch_size", cfg.BatchSize))

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageConnecting,
		Message: "connecting to " + r.store.Endpoint(),
	})
	if err := r.store.Ping(ctx); err != nil {
		return Stats{}, fserrors.ConnectivityError(r.store.Endpoint(), err)
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageSchema,
		Message: fmt.Sprintf("creating index %q", cfg.Index),
	})
	if err := EnsureIndex(ctx, r.store, cfg.Index, store.DefaultMapping()); err != nil {
		return Stats{}, err
	}

	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageIndexing,
		Message: "indexing " + cfg.Root,
	})

	readFailures := 0
	onReadFailure := func(path string, err error) {
		readFailures++
		r.logger.Warn("read_failure", fserrors.LogAttrs(err)...)
		r.renderer.AddError(ui.ErrorEvent{File: path, Err: unwrapCause(err), IsWarn: true})
	}

	c := crawler.New(cfg.Root, crawler.WithExclude(cfg.Exclude...), crawler.WithLogger(r.logger))
	bulk := NewBulkIndexer(r.store, r.logger, cfg.BatchSize,
		WithBatchHook(func(s Stats) {
			r.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   ui.StageIndexing,
				Indexed: s.Succeeded,
				Failed:  s.Failed,
				Batches: s.Batches,
			})
		}),
		WithItemFailureHook(func(f store.ItemFailure) {
			r.renderer.AddError(ui.ErrorEvent{File: f.ID, Err: fmt.Errorf("%s", f.Reason), IsWarn: true})
		}),
		WithRefreshHook(func() {
			r.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   ui.StageRefreshing,
				Message: fmt.Sprintf("refreshing index %q", cfg.Index),
			})
		}),
	)

	stats, err := bulk.Index(ctx, Documents(c.Paths(), onReadFailure), cfg.Index)
	stats.ReadFailures = readFailures
	if err != nil {
		r.logger.Error("index_aborted",
			append(fserrors.LogAttrs(err),
				slog.Int("succeeded", stats.Succeeded),
				slog.Int("failed", stats.Failed))...)
		return stats, err
	}

	r.logger.Info("index_complete",
		slog.String("index", cfg.Index),
		slog.Int("succeeded", stats.Succeeded),
		slog.Int("failed", stats.Failed),
		slog.Int("read_failures", stats.ReadFailures),
		slog.Int("batches", stats.Batches),
		slog.Duration("elapsed", stats.Elapsed))

	r.renderer.Complete(ui.CompletionStats{
		Index:        cfg.Index,
		Indexed:      stats.Succeeded,
		Failed:       stats.Failed,
		ReadFailures: stats.ReadFailures,
		Batches:      stats.Batches,
		Duration:     stats.Elapsed,
	})
	return stats, nil
}

// unwrapCause returns the underlying cause of a coded error, which reads
// better next to the file name than the full message.
func unwrapCause(err error) error {
	var e *fserrors.Error
	if errors.As(err, &e) && e.Cause != nil {
		return e.Cause
	}
	return err
}
