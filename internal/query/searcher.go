package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
	"github.com/Leonardo4312/filesearch/internal/telemetry"
)

// DefaultMaxResults is the number of hits requested per query.
const DefaultMaxResults = 10

// Searcher executes parsed queries against one index.
// Responses are cached per Query for the lifetime of the Searcher.
type Searcher struct {
	store    store.DocumentStore
	index    string
	size     int
	cache    *lru.Cache[Query, store.SearchResponse]
	recorder telemetry.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithCacheSize enables an LRU response cache of n entries. n <= 0 disables it.
func WithCacheSize(n int) SearcherOption {
	return func(s *Searcher) {
		if n <= 0 {
			s.cache = nil
			return
		}
		s.cache, _ = lru.New[Query, store.SearchResponse](n)
	}
}

// WithRecorder records every executed query.
func WithRecorder(r telemetry.Recorder) SearcherOption {
	return func(s *Searcher) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSearchLogger sets the logger.
func WithSearchLogger(l *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher creates a Searcher returning at most size hits per query.
func NewSearcher(st store.DocumentStore, index string, size int, opts ...SearcherOption) *Searcher {
	if size <= 0 {
		size = DefaultMaxResults
	}
	s := &Searcher{
		store:    st,
		index:    index,
		size:     size,
		recorder: telemetry.Nop{},
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Index returns the searched index name.
func (s *Searcher) Index() string {
	return s.index
}

// Size returns the maximum number of hits per query.
func (s *Searcher) Size() int {
	return s.size
}

// CheckIndex verifies that the engine is reachable and the index exists.
// Both failures are fatal.
func (s *Searcher) CheckIndex(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fserrors.ConnectivityError(s.store.Endpoint(), err)
	}

	exists, err := s.store.IndexExists(ctx, s.index)
	if err != nil {
		return fserrors.ConnectivityError(s.store.Endpoint(), err)
	}
	if !exists {
		return fserrors.IndexNotFound(s.index)
	}
	return nil
}

// Search executes q. Failures are returned as recoverable SearchFailure errors.
func (s *Searcher) Search(ctx context.Context, q Query) (store.SearchResponse, error) {
	start := s.now()

	if s.cache != nil {
		if resp, ok := s.cache.Get(q); ok {
			s.record(ctx, q, resp.Total, 0, true, false)
			s.logger.Debug("search_cache_hit", "field", q.Field, "mode", string(q.Mode), "total", resp.Total)
			return resp, nil
		}
	}

	resp, err := s.store.Search(ctx, s.index, q.StoreQuery(s.size))
	latency := s.now().Sub(start)
	if err != nil {
		s.record(ctx, q, 0, latency, false, true)
		if errors.Is(err, store.ErrIndexNotFound) {
			err = fserrors.IndexNotFound(s.index)
		}
		failure := fserrors.SearchFailure(s.index, err)
		s.logger.Warn("search_failed", fserrors.LogAttrs(failure)...)
		return store.SearchResponse{}, failure
	}

	if s.cache != nil {
		s.cache.Add(q, resp)
	}
	s.record(ctx, q, resp.Total, latency, false, false)
	s.logger.Info("search_complete",
		"field", q.Field,
		"mode", string(q.Mode),
		"total", resp.Total,
		"hits", len(resp.Hits),
		"latency_ms", latency.Milliseconds())
	return resp, nil
}

// record stores a telemetry event. Telemetry failures never fail a search.
func (s *Searcher) record(ctx context.Context, q Query, total int, latency time.Duration, cacheHit, failed bool) {
	err := s.recorder.Record(ctx, telemetry.Event{
		Index:     s.index,
		Field:     q.Field,
		Mode:      string(q.Mode),
		Term:      q.Term,
		Total:     total,
		Latency:   latency,
		CacheHit:  cacheHit,
		Failed:    failed,
		Timestamp: s.now(),
	})
	if err != nil {
		s.logger.Debug("telemetry_record_failed", "error", err)
	}
}
