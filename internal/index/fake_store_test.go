package index

import (
	"context"
	"errors"
	"sync"

	"github.com/Leonardo4312/filesearch/internal/store"
)

var errFake = errors.New("fake failure")

// fakeStore records calls and fails on demand.
type fakeStore struct {
	mu sync.Mutex

	exists     bool
	pingErr    error
	existsErr  error
	deleteErr  error
	createErr  error
	refreshErr error

	// failBatch makes the n-th BulkWrite call (1-based) fail.
	failBatch int

	// reject lists IDs reported as item failures.
	reject map[string]bool

	deleted    int
	created    int
	refreshed  int
	batchSizes []int
	ids        []string
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) IndexExists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeStore) DeleteIndex(context.Context, string) error {
	f.deleted++
	return f.deleteErr
}

func (f *fakeStore) CreateIndex(context.Context, string, store.Mapping) error {
	f.created++
	return f.createErr
}

func (f *fakeStore) BulkWrite(_ context.Context, actions []store.IndexAction) (store.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failBatch > 0 && len(f.batchSizes)+1 == f.failBatch {
		return store.BulkResult{}, errFake
	}
	f.batchSizes = append(f.batchSizes, len(actions))

	var res store.BulkResult
	for _, a := range actions {
		f.ids = append(f.ids, a.ID)
		if f.reject[a.ID] {
			res.Failures = append(res.Failures, store.ItemFailure{ID: a.ID, Reason: "mapper_parsing_exception"})
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

func (f *fakeStore) Refresh(context.Context, string) error {
	f.refreshed++
	return f.refreshErr
}

func (f *fakeStore) Search(context.Context, string, store.Query) (store.SearchResponse, error) {
	return store.SearchResponse{}, nil
}

func (f *fakeStore) Endpoint() string { return "fake://store" }

func (f *fakeStore) Close() error { return nil }

var _ store.DocumentStore = (*fakeStore)(nil)
