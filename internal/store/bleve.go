package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/it"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveStore is an embedded DocumentStore backed by bleve indexes, one
// directory per index under the data directory. With an empty data
// directory the indexes live in memory.
type BleveStore struct {
	mu      sync.RWMutex
	dataDir string
	indexes map[string]bleve.Index
	closed  bool
}

// NewBleveStore returns a store rooted at dataDir.
func NewBleveStore(dataDir string) *BleveStore {
	return &BleveStore{
		dataDir: dataDir,
		indexes: make(map[string]bleve.Index),
	}
}

// NewMemoryBleveStore returns a store whose indexes are never persisted.
func NewMemoryBleveStore() *BleveStore {
	return NewBleveStore("")
}

func (s *BleveStore) inMemory() bool {
	return s.dataDir == ""
}

func (s *BleveStore) indexPath(name string) string {
	return filepath.Join(s.dataDir, name+".bleve")
}

// Endpoint implements DocumentStore.
func (s *BleveStore) Endpoint() string {
	if s.inMemory() {
		return "bleve:memory"
	}
	return "bleve:" + s.dataDir
}

// Ping implements DocumentStore.
func (s *BleveStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if s.inMemory() {
		return nil
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", s.dataDir, err)
	}
	return nil
}

// IndexExists implements DocumentStore.
func (s *BleveStore) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, fmt.Errorf("store is closed")
	}
	if _, ok := s.indexes[name]; ok {
		return true, nil
	}
	if s.inMemory() {
		return false, nil
	}
	return onDiskIndexExists(s.indexPath(name))
}

// onDiskIndexExists treats a directory without a readable index_meta.json
// as absent, so a half-written index is replaced on the next run.
func onDiskIndexExists(path string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cannot read index metadata: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return false, nil
	}
	return true, nil
}

// DeleteIndex implements DocumentStore.
func (s *BleveStore) DeleteIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	idx, open := s.indexes[name]
	if open {
		delete(s.indexes, name)
		if err := idx.Close(); err != nil {
			return fmt.Errorf("failed to close index %s: %w", name, err)
		}
	}
	if s.inMemory() {
		if !open {
			return fmt.Errorf("delete %s: %w", name, ErrIndexNotFound)
		}
		return nil
	}

	path := s.indexPath(name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if open {
			return nil
		}
		return fmt.Errorf("delete %s: %w", name, ErrIndexNotFound)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove index %s: %w", path, err)
	}
	return nil
}

// CreateIndex implements DocumentStore.
func (s *BleveStore) CreateIndex(_ context.Context, name string, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if _, ok := s.indexes[name]; ok {
		return fmt.Errorf("index %s already exists", name)
	}

	im, err := bleveMapping(m)
	if err != nil {
		return err
	}

	var idx bleve.Index
	if s.inMemory() {
		idx, err = bleve.NewMemOnly(im)
	} else {
		if err := os.MkdirAll(s.dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", s.dataDir, err)
		}
		// Leftovers of an interrupted creation would make bleve.New fail.
		path := s.indexPath(name)
		if exists, _ := onDiskIndexExists(path); !exists {
			_ = os.RemoveAll(path)
		}
		idx, err = bleve.New(path, im)
	}
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	s.indexes[name] = idx
	return nil
}

// BulkWrite implements DocumentStore. Actions are grouped per target
// index into one bleve batch each; an action bleve refuses to analyze is
// reported as an item failure.
func (s *BleveStore) BulkWrite(_ context.Context, actions []IndexAction) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return BulkResult{}, fmt.Errorf("store is closed")
	}

	var result BulkResult
	batches := make(map[string]*bleve.Batch)
	var order []string
	pending := make(map[string]int)

	for _, a := range actions {
		b, ok := batches[a.Index]
		if !ok {
			idx, err := s.openLocked(a.Index)
			if err != nil {
				return BulkResult{}, err
			}
			b = idx.NewBatch()
			batches[a.Index] = b
			order = append(order, a.Index)
		}
		if err := b.Index(a.ID, documentFields(a.Document)); err != nil {
			result.Failures = append(result.Failures, ItemFailure{ID: a.ID, Reason: err.Error()})
			continue
		}
		pending[a.Index]++
	}

	for _, name := range order {
		if err := s.indexes[name].Batch(batches[name]); err != nil {
			return BulkResult{}, fmt.Errorf("batch write to %s failed: %w", name, err)
		}
		result.Succeeded += pending[name]
	}
	return result, nil
}

func documentFields(d Document) map[string]any {
	return map[string]any{
		FieldFileName: d.FileName,
		FieldContent:  d.Content,
		FieldFilePath: d.FilePath,
	}
}

// Refresh implements DocumentStore. Bleve batches are searchable as soon
// as Batch returns, so this only checks that the index exists.
func (s *BleveStore) Refresh(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.openLocked(name)
	return err
}

// Search implements DocumentStore.
func (s *BleveStore) Search(ctx context.Context, index string, q Query) (SearchResponse, error) {
	if err := q.Validate(); err != nil {
		return SearchResponse{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SearchResponse{}, fmt.Errorf("store is closed")
	}
	idx, err := s.openLocked(index)
	s.mu.Unlock()
	if err != nil {
		return SearchResponse{}, err
	}

	bq, err := bleveQuery(q)
	if err != nil {
		return SearchResponse{}, err
	}
	req := bleve.NewSearchRequestOptions(bq, q.Size, 0, false)
	req.Fields = []string{"*"}

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search failed: %w", err)
	}

	resp := SearchResponse{
		Total: int(res.Total),
		Hits:  make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		resp.Hits = append(resp.Hits, Hit{ID: h.ID, Score: h.Score, Source: h.Fields})
	}
	return resp, nil
}

// Close implements DocumentStore.
func (s *BleveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for name, idx := range s.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	s.indexes = nil
	return errors.Join(errs...)
}

// openLocked returns the open handle for name, opening it from disk on
// first use. Caller must hold s.mu for writing.
func (s *BleveStore) openLocked(name string) (bleve.Index, error) {
	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}
	if s.inMemory() {
		return nil, fmt.Errorf("open %s: %w", name, ErrIndexNotFound)
	}
	idx, err := bleve.Open(s.indexPath(name))
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) || errors.Is(err, bleve.ErrorIndexMetaMissing) {
		return nil, fmt.Errorf("open %s: %w", name, ErrIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", name, err)
	}
	s.indexes[name] = idx
	return idx, nil
}

// bleveAnalyzer translates a logical analyzer to a registered bleve one.
func bleveAnalyzer(a Analyzer) (string, error) {
	switch a {
	case AnalyzerSimple:
		return simple.Name, nil
	case AnalyzerItalian:
		return it.AnalyzerName, nil
	case AnalyzerNone:
		return keyword.Name, nil
	default:
		return "", fmt.Errorf("unsupported analyzer %q", a)
	}
}

func bleveMapping(m Mapping) (*mapping.IndexMappingImpl, error) {
	doc := bleve.NewDocumentStaticMapping()
	for _, f := range m.Fields {
		fm := bleve.NewTextFieldMapping()
		switch f.Kind {
		case FieldText:
			name, err := bleveAnalyzer(f.Analyzer)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fm.Analyzer = name
		case FieldKeyword:
			fm.Analyzer = keyword.Name
			fm.IncludeTermVectors = false
		default:
			return nil, fmt.Errorf("field %s: unsupported kind %q", f.Name, f.Kind)
		}
		doc.AddFieldMappingsAt(f.Name, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im, nil
}

func bleveQuery(q Query) (query.Query, error) {
	switch q.Kind {
	case QueryMatch:
		mq := bleve.NewMatchQuery(q.Text)
		mq.SetField(q.Field)
		return mq, nil
	case QueryPhrase:
		pq := bleve.NewMatchPhraseQuery(q.Text)
		pq.SetField(q.Field)
		return pq, nil
	case QueryTerm:
		tq := bleve.NewTermQuery(q.Text)
		tq.SetField(q.Field)
		return tq, nil
	default:
		return nil, fmt.Errorf("unknown query kind %q", q.Kind)
	}
}
