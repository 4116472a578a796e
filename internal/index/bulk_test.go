package index

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"testing"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genDocs(n int) iter.Seq[store.Document] {
	return func(yield func(store.Document) bool) {
		for i := range n {
			name := fmt.Sprintf("%04d.txt", i)
			if !yield(store.Document{FileName: name, Content: "testo", FilePath: "/data/" + name}) {
				return
			}
		}
	}
}

// TS01: D documents with batch size B give ceil(D/B) batches
func TestBatches_Count(t *testing.T) {
	tests := []struct {
		docs, size int
		wantSizes  []int
	}{
		{docs: 0, size: 500, wantSizes: nil},
		{docs: 1, size: 500, wantSizes: []int{1}},
		{docs: 499, size: 500, wantSizes: []int{499}},
		{docs: 500, size: 500, wantSizes: []int{500}},
		{docs: 501, size: 500, wantSizes: []int{500, 1}},
		{docs: 1001, size: 500, wantSizes: []int{500, 500, 1}},
		{docs: 7, size: 3, wantSizes: []int{3, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.docs, tt.size), func(t *testing.T) {
			var sizes []int
			for b := range Batches(slices.Values(make([]int, tt.docs)), tt.size) {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.wantSizes, sizes)
			assert.Len(t, sizes, (tt.docs+tt.size-1)/tt.size)
		})
	}
}

func TestBatches_PreservesOrder(t *testing.T) {
	var flat []int
	for b := range Batches(slices.Values([]int{1, 2, 3, 4, 5}), 2) {
		flat = append(flat, b...)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, flat)
}

func TestBatches_BatchesAreIndependent(t *testing.T) {
	var kept [][]int
	for b := range Batches(slices.Values([]int{1, 2, 3, 4}), 2) {
		kept = append(kept, b)
	}
	assert.Equal(t, [][]int{{1, 2}, {3, 4}}, kept)
}

func TestBatches_EarlyStop(t *testing.T) {
	pulled := 0
	src := func(yield func(int) bool) {
		for i := range 100 {
			pulled++
			if !yield(i) {
				return
			}
		}
	}

	for range Batches(src, 10) {
		break
	}

	assert.Equal(t, 10, pulled)
}

func TestBatches_NonPositiveSize(t *testing.T) {
	count := 0
	for range Batches(slices.Values([]int{1, 2, 3}), 0) {
		count++
	}
	assert.Equal(t, 3, count)
}

// TS02: Counts, batch sizes and refresh for a clean run
func TestBulkIndexer_Index(t *testing.T) {
	// Given: 1001 documents and a batch size of 500
	fs := &fakeStore{}
	var hooked []Stats
	refreshed := false
	b := NewBulkIndexer(fs, slog.New(slog.DiscardHandler), 500,
		WithBatchHook(func(s Stats) { hooked = append(hooked, s) }),
		WithRefreshHook(func() { refreshed = true }),
	)

	// When: indexing
	stats, err := b.Index(context.Background(), genDocs(1001), "files")

	// Then: three requests in crawl order, then a refresh
	require.NoError(t, err)
	assert.Equal(t, []int{500, 500, 1}, fs.batchSizes)
	assert.Equal(t, 1001, stats.Succeeded)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 1, fs.refreshed)
	assert.True(t, refreshed)
	assert.Equal(t, "/data/0000.txt", fs.ids[0])
	assert.Equal(t, "/data/1000.txt", fs.ids[1000])
	assert.Positive(t, stats.Elapsed)

	require.Len(t, hooked, 3)
	assert.Equal(t, 1000, hooked[1].Succeeded)
}

func TestBulkIndexer_Index_Empty(t *testing.T) {
	fs := &fakeStore{}
	b := NewBulkIndexer(fs, slog.New(slog.DiscardHandler), 500)

	stats, err := b.Index(context.Background(), genDocs(0), "files")

	require.NoError(t, err)
	assert.Empty(t, fs.batchSizes)
	assert.Zero(t, stats.Batches)
	assert.Equal(t, 1, fs.refreshed)
}

// TS03: Rejected documents do not affect their batch siblings
func TestBulkIndexer_Index_ItemFailures(t *testing.T) {
	// Given: a store rejecting two documents
	fs := &fakeStore{reject: map[string]bool{"/data/0001.txt": true, "/data/0007.txt": true}}
	var rejected []string
	b := NewBulkIndexer(fs, slog.New(slog.DiscardHandler), 5,
		WithItemFailureHook(func(f store.ItemFailure) { rejected = append(rejected, f.ID) }))

	// When: indexing ten documents
	stats, err := b.Index(context.Background(), genDocs(10), "files")

	// Then: the run succeeds with the failures counted
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Succeeded)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, []string{"/data/0001.txt", "/data/0007.txt"}, rejected)
}

// TS04: A transport failure stops the run and keeps the counts so far
func TestBulkIndexer_Index_TransportFailure(t *testing.T) {
	// Given: a store failing on the second request
	fs := &fakeStore{failBatch: 2}
	b := NewBulkIndexer(fs, slog.New(slog.DiscardHandler), 3)

	// When: indexing ten documents
	stats, err := b.Index(context.Background(), genDocs(10), "files")

	// Then: only the first batch is counted and no refresh happens
	require.Error(t, err)
	assert.ErrorIs(t, err, fserrors.ErrBulkTransport)
	assert.ErrorIs(t, err, errFake)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 1, stats.Batches)
	assert.Zero(t, fs.refreshed)
	assert.Equal(t, []int{3}, fs.batchSizes)
}

func TestBulkIndexer_Index_RefreshFailure(t *testing.T) {
	fs := &fakeStore{refreshErr: errFake}
	b := NewBulkIndexer(fs, slog.New(slog.DiscardHandler), 10)

	stats, err := b.Index(context.Background(), genDocs(4), "files")

	assert.ErrorIs(t, err, fserrors.ErrBulkTransport)
	assert.Equal(t, 4, stats.Succeeded)
}

func TestBulkIndexer_Index_Cancelled(t *testing.T) {
	fs := &fakeStore{}
	b := NewBulkIndexer(fs, slog.New(slog.DiscardHandler), 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Index(ctx, genDocs(4), "files")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fs.batchSizes)
}

func TestNewBulkIndexer_Defaults(t *testing.T) {
	b := NewBulkIndexer(&fakeStore{}, nil, 0)
	assert.Equal(t, DefaultBatchSize, b.batchSize)
	assert.NotNil(t, b.logger)
}
