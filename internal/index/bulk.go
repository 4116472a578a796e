package index

import (
	"context"
	"iter"
	"log/slog"
	"time"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
)

// DefaultBatchSize is the number of actions per bulk request.
const DefaultBatchSize = 500

// Stats counts the outcome of an indexing run.
type Stats struct {
	Succeeded    int
	Failed       int
	ReadFailures int
	Batches      int
	Elapsed      time.Duration
}

// Batches groups seq into consecutive slices of size elements; only the
// last one may be shorter. Each slice is freshly allocated, so a consumer
// may keep it. A size below 1 is treated as 1.
func Batches[T any](seq iter.Seq[T], size int) iter.Seq[[]T] {
	size = max(size, 1)
	return func(yield func([]T) bool) {
		batch := make([]T, 0, size)
		for v := range seq {
			batch = append(batch, v)
			if len(batch) < size {
				continue
			}
			if !yield(batch) {
				return
			}
			batch = make([]T, 0, size)
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

// BulkOption configures a BulkIndexer.
type BulkOption func(*BulkIndexer)

// WithBatchHook calls fn with the running totals after every batch.
func WithBatchHook(fn func(Stats)) BulkOption {
	return func(b *BulkIndexer) {
		b.onBatch = fn
	}
}

// WithItemFailureHook calls fn for every document the engine rejects.
func WithItemFailureHook(fn func(store.ItemFailure)) BulkOption {
	return func(b *BulkIndexer) {
		b.onItemFailure = fn
	}
}

// WithRefreshHook calls fn right before the final refresh.
func WithRefreshHook(fn func()) BulkOption {
	return func(b *BulkIndexer) {
		b.onRefresh = fn
	}
}

// BulkIndexer submits documents to a store in fixed-size batches.
type BulkIndexer struct {
	store     store.DocumentStore
	logger    *slog.Logger
	batchSize int

	onBatch       func(Stats)
	onItemFailure func(store.ItemFailure)
	onRefresh     func()
}

// NewBulkIndexer creates an indexer writing batchSize actions per request.
func NewBulkIndexer(s store.DocumentStore, logger *slog.Logger, batchSize int, opts ...BulkOption) *BulkIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	b := &BulkIndexer{store: s, logger: logger, batchSize: batchSize}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Index writes docs into target and refreshes it. Documents rejected by
// the engine are counted and logged without affecting the rest of their
// batch. A request that cannot be delivered stops the run: the counts so
// far are returned with a bulk transport error.
func (b *BulkIndexer) Index(ctx context.Context, docs iter.Seq[store.Document], target string) (Stats, error) {
	start := time.Now()
	var stats Stats

	var actions iter.Seq[store.IndexAction] = func(yield func(store.IndexAction) bool) {
		for d := range docs {
			if !yield(store.NewIndexAction(target, d)) {
				return
			}
		}
	}

	for batch := range Batches(actions, b.batchSize) {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return stats, err
		}

		res, err := b.store.BulkWrite(ctx, batch)
		if err != nil {
			stats.Elapsed = time.Since(start)
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			return stats, fserrors.BulkTransportError(stats.Batches+1, err)
		}

		stats.Batches++
		stats.Succeeded += res.Succeeded
		stats.Failed += res.Failed()
		for _, f := range res.Failures {
			b.logger.Warn("bulk_item_failed", fserrors.LogAttrs(fserrors.BulkItemFailure(f.ID, f.Reason))...)
			if b.onItemFailure != nil {
				b.onItemFailure(f)
			}
		}

		b.logger.Debug("bulk_batch_submitted",
			slog.Int("batch", stats.Batches),
			slog.Int("size", len(batch)),
			slog.Int("failed", res.Failed()))
		if b.onBatch != nil {
			b.onBatch(stats)
		}
	}

	if b.onRefresh != nil {
		b.onRefresh()
	}
	if err := b.store.Refresh(ctx, target); err != nil {
		stats.Elapsed = time.Since(start)
		return stats, fserrors.New(fserrors.ErrCodeBulkTransport, "refresh of index "+target+" failed", err).
			WithDetail("index", target)
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}
