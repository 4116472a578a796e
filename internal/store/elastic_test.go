package store

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeElastic is a minimal Elasticsearch HTTP endpoint recording what the
// client sends.
type fakeElastic struct {
	mu          sync.Mutex
	indexes     map[string]bool
	createBody  map[string]any
	bulkLines   []string
	searchBody  map[string]any
	rejectID    string
	bulkStatus  int
	searchReply string
}

func newFakeElastic(t *testing.T) (*fakeElastic, *ElasticStore) {
	t.Helper()
	f := &fakeElastic{indexes: make(map[string]bool)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	s, err := NewElasticStore(ElasticConfig{URL: srv.URL})
	require.NoError(t, err)
	return f, s
}

func (f *fakeElastic) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"8.17.0"},"tagline":"You Know, for Search"}`)

	case r.URL.Path == "/_bulk":
		f.handleBulk(w, r)

	case len(parts) == 2 && parts[1] == "_search":
		if !f.indexes[parts[0]] {
			notFound(w, parts[0])
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.searchBody)
		_, _ = io.WriteString(w, f.searchReply)

	case len(parts) == 2 && parts[1] == "_refresh":
		if !f.indexes[parts[0]] {
			notFound(w, parts[0])
			return
		}
		_, _ = io.WriteString(w, `{"_shards":{"total":1,"successful":1,"failed":0}}`)

	case len(parts) == 1:
		f.handleIndex(w, r, parts[0])

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeElastic) handleIndex(w http.ResponseWriter, r *http.Request, name string) {
	switch r.Method {
	case http.MethodHead:
		if !f.indexes[name] {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		if f.indexes[name] {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"type":"resource_already_exists_exception","reason":"index already exists"},"status":400}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.createBody)
		f.indexes[name] = true
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	case http.MethodDelete:
		if !f.indexes[name] {
			notFound(w, name)
			return
		}
		delete(f.indexes, name)
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeElastic) handleBulk(w http.ResponseWriter, r *http.Request) {
	if f.bulkStatus != 0 {
		w.WriteHeader(f.bulkStatus)
		_, _ = io.WriteString(w, `{"error":{"type":"es_rejected_execution_exception","reason":"queue full"},"status":429}`)
		return
	}

	var items []string
	hasErrors := false
	sc := bufio.NewScanner(r.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		f.bulkLines = append(f.bulkLines, line)
		var meta bulkMeta
		if json.Unmarshal([]byte(line), &meta) != nil || meta.Index.ID == "" {
			continue
		}
		if meta.Index.ID == f.rejectID {
			hasErrors = true
			items = append(items, `{"index":{"_id":"`+meta.Index.ID+`","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse"}}}`)
			continue
		}
		items = append(items, `{"index":{"_id":"`+meta.Index.ID+`","status":201}}`)
	}
	errs := "false"
	if hasErrors {
		errs = "true"
	}
	_, _ = io.WriteString(w, `{"took":3,"errors":`+errs+`,"items":[`+strings.Join(items, ",")+`]}`)
}

func notFound(w http.ResponseWriter, name string) {
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index [`+name+`]"},"status":404}`)
}

func TestElasticStore_Ping(t *testing.T) {
	_, s := newFakeElastic(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestElasticStore_Ping_Unreachable(t *testing.T) {
	// Given: a server that is already gone
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := NewElasticStore(ElasticConfig{URL: url})
	require.NoError(t, err)

	// Then: ping fails
	assert.Error(t, s.Ping(context.Background()))
	assert.Equal(t, url, s.Endpoint())
}

// TS01: Index creation sends the logical mapping translated to ES analyzers
func TestElasticStore_CreateIndex_Mapping(t *testing.T) {
	// Given: a fake cluster without the index
	f, s := newFakeElastic(t)
	ctx := context.Background()

	exists, err := s.IndexExists(ctx, testIndex)
	require.NoError(t, err)
	assert.False(t, exists)

	// When: creating it with the default mapping
	require.NoError(t, s.CreateIndex(ctx, testIndex, DefaultMapping()))

	// Then: the body carries the three field definitions
	props := f.createBody["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "text", "analyzer": "simple"}, props[FieldFileName])
	assert.Equal(t, map[string]any{"type": "text", "analyzer": "italian"}, props[FieldContent])
	assert.Equal(t, map[string]any{"type": "keyword"}, props[FieldFilePath])

	exists, err = s.IndexExists(ctx, testIndex)
	require.NoError(t, err)
	assert.True(t, exists)

	// And: a second create reports the engine's reason
	err = s.CreateIndex(ctx, testIndex, DefaultMapping())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource_already_exists_exception")
}

func TestElasticStore_DeleteIndex(t *testing.T) {
	f, s := newFakeElastic(t)
	f.indexes[testIndex] = true
	ctx := context.Background()

	require.NoError(t, s.DeleteIndex(ctx, testIndex))
	assert.ErrorIs(t, s.DeleteIndex(ctx, testIndex), ErrIndexNotFound)
}

// TS02: Bulk body is NDJSON keyed by path, rejected items are isolated
func TestElasticStore_BulkWrite_ItemFailures(t *testing.T) {
	// Given: a cluster that rejects one document
	f, s := newFakeElastic(t)
	f.indexes[testIndex] = true
	f.rejectID = "/data/bad.txt"

	actions := []IndexAction{
		NewIndexAction(testIndex, Document{FileName: "a.txt", Content: "uno", FilePath: "/data/a.txt"}),
		NewIndexAction(testIndex, Document{FileName: "bad.txt", Content: "due", FilePath: "/data/bad.txt"}),
		NewIndexAction(testIndex, Document{FileName: "c.txt", Content: "tre", FilePath: "/data/c.txt"}),
	}

	// When: writing three documents
	res, err := s.BulkWrite(context.Background(), actions)

	// Then: the request succeeds with one item failure
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	require.Equal(t, 1, res.Failed())
	assert.Equal(t, "/data/bad.txt", res.Failures[0].ID)
	assert.Contains(t, res.Failures[0].Reason, "mapper_parsing_exception")

	// And: each action produced a metadata line and a source line
	require.Len(t, f.bulkLines, 6)
	assert.JSONEq(t, `{"index":{"_index":"files_test","_id":"/data/a.txt"}}`, f.bulkLines[0])
	assert.JSONEq(t, `{"file_name":"a.txt","content":"uno","file_path":"/data/a.txt"}`, f.bulkLines[1])
}

func TestElasticStore_BulkWrite_TransportFailure(t *testing.T) {
	f, s := newFakeElastic(t)
	f.bulkStatus = http.StatusTooManyRequests

	_, err := s.BulkWrite(context.Background(), []IndexAction{
		NewIndexAction(testIndex, Document{FileName: "a.txt", FilePath: "/data/a.txt"}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestElasticStore_BulkWrite_Empty(t *testing.T) {
	f, s := newFakeElastic(t)

	res, err := s.BulkWrite(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	assert.Empty(t, f.bulkLines)
}

// TS03: Search renders the query clause and decodes hits
func TestElasticStore_Search(t *testing.T) {
	// Given: a cluster answering with two hits
	f, s := newFakeElastic(t)
	f.indexes[testIndex] = true
	f.searchReply = `{"hits":{"total":{"value":2,"relation":"eq"},"hits":[
		{"_id":"/data/a.txt","_score":1.5,"_source":{"file_name":"a.txt","content":"Ciao mondo","file_path":"/data/a.txt"}},
		{"_id":"/data/b.txt","_score":0.25,"_source":{"file_name":"b.txt","file_path":"/data/b.txt"}}]}}`

	// When: running a phrase query
	resp, err := s.Search(context.Background(), testIndex,
		Query{Kind: QueryPhrase, Field: FieldContent, Text: "Ciao mondo", Size: 10})
	require.NoError(t, err)

	// Then: the request body is a match_phrase on the content field
	assert.Equal(t, map[string]any{
		"match_phrase": map[string]any{"content": "Ciao mondo"},
	}, f.searchBody["query"])
	assert.EqualValues(t, 10, f.searchBody["size"])

	// And: hits are decoded in order
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, 1.5, resp.Hits[0].Score)
	name, ok := resp.Hits[0].StringField(FieldFileName)
	assert.True(t, ok)
	assert.Equal(t, "a.txt", name)
	_, ok = resp.Hits[1].StringField(FieldContent)
	assert.False(t, ok)
}

func TestElasticStore_Search_MissingIndex(t *testing.T) {
	_, s := newFakeElastic(t)

	_, err := s.Search(context.Background(), "missing",
		Query{Kind: QueryMatch, Field: FieldContent, Text: "x", Size: 10})
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestElasticStore_Refresh(t *testing.T) {
	f, s := newFakeElastic(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Refresh(ctx, testIndex), ErrIndexNotFound)
	f.indexes[testIndex] = true
	assert.NoError(t, s.Refresh(ctx, testIndex))
}

func TestElasticQuery(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{
			name:  "match",
			query: Query{Kind: QueryMatch, Field: FieldFileName, Text: "report 2024", Size: 5},
			want:  `{"query":{"match":{"file_name":"report 2024"}},"size":5}`,
		},
		{
			name:  "phrase",
			query: Query{Kind: QueryPhrase, Field: FieldContent, Text: "", Size: 10},
			want:  `{"query":{"match_phrase":{"content":""}},"size":10}`,
		},
		{
			name:  "term",
			query: Query{Kind: QueryTerm, Field: FieldFilePath, Text: "/a.txt", Size: 1},
			want:  `{"query":{"term":{"file_path":"/a.txt"}},"size":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := elasticQuery(tt.query)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(body))
		})
	}

	_, err := elasticQuery(Query{Kind: QueryMatch, Text: "x"})
	assert.Error(t, err)
}
