package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticConfig configures an ElasticStore.
type ElasticConfig struct {
	URL     string
	Timeout time.Duration

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// ElasticStore is a DocumentStore backed by an Elasticsearch cluster.
type ElasticStore struct {
	client  *elasticsearch.Client
	url     string
	timeout time.Duration
}

// NewElasticStore creates a client for cfg.URL. No request is made until
// the first call. Failed requests are never retried.
func NewElasticStore(cfg ElasticConfig) (*ElasticStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{cfg.URL},
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticStore{client: client, url: cfg.URL, timeout: cfg.Timeout}, nil
}

// Endpoint implements DocumentStore.
func (s *ElasticStore) Endpoint() string {
	return s.url
}

func (s *ElasticStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Ping implements DocumentStore.
func (s *ElasticStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Info(s.client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer closeBody(res)
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

// IndexExists implements DocumentStore.
func (s *ElasticStore) IndexExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Exists([]string{name}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(res)
	}
}

// DeleteIndex implements DocumentStore.
func (s *ElasticStore) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Delete([]string{name}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer closeBody(res)
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("delete %s: %w", name, ErrIndexNotFound)
	}
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

// CreateIndex implements DocumentStore.
func (s *ElasticStore) CreateIndex(ctx context.Context, name string, m Mapping) error {
	body, err := elasticMapping(m)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Create(name,
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer closeBody(res)
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

type bulkMeta struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

type bulkResponse struct {
	Errors bool                     `json:"errors"`
	Items  []map[string]bulkItemRes `json:"items"`
}

type bulkItemRes struct {
	ID     string        `json:"_id"`
	Status int           `json:"status"`
	Error  *elasticCause `json:"error"`
}

type elasticCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (c *elasticCause) String() string {
	if c == nil {
		return ""
	}
	if c.Reason == "" {
		return c.Type
	}
	return c.Type + ": " + c.Reason
}

// BulkWrite implements DocumentStore. The actions are sent as one NDJSON
// _bulk request; the per-item statuses of the response become the result.
func (s *ElasticStore) BulkWrite(ctx context.Context, actions []IndexAction) (BulkResult, error) {
	if len(actions) == 0 {
		return BulkResult{}, nil
	}

	body, err := bulkBody(actions)
	if err != nil {
		return BulkResult{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Bulk(bytes.NewReader(body), s.client.Bulk.WithContext(ctx))
	if err != nil {
		return BulkResult{}, err
	}
	defer closeBody(res)
	if res.IsError() {
		return BulkResult{}, responseError(res)
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return BulkResult{}, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	var result BulkResult
	for _, item := range br.Items {
		for _, r := range item {
			if r.Error != nil || r.Status >= 300 {
				reason := r.Error.String()
				if reason == "" {
					reason = fmt.Sprintf("status %d", r.Status)
				}
				result.Failures = append(result.Failures, ItemFailure{ID: r.ID, Reason: reason})
				continue
			}
			result.Succeeded++
		}
	}
	return result, nil
}

func bulkBody(actions []IndexAction) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range actions {
		var meta bulkMeta
		meta.Index.Index = a.Index
		meta.Index.ID = a.ID
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to encode bulk metadata for %s: %w", a.ID, err)
		}
		if err := enc.Encode(a.Document); err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", a.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// Refresh implements DocumentStore.
func (s *ElasticStore) Refresh(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithIndex(name),
		s.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer closeBody(res)
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("refresh %s: %w", name, ErrIndexNotFound)
	}
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  *float64       `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search implements DocumentStore.
func (s *ElasticStore) Search(ctx context.Context, index string, q Query) (SearchResponse, error) {
	body, err := elasticQuery(q)
	if err != nil {
		return SearchResponse{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Search(
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithContext(ctx),
	)
	if err != nil {
		return SearchResponse{}, err
	}
	defer closeBody(res)
	if res.StatusCode == http.StatusNotFound {
		return SearchResponse{}, fmt.Errorf("search %s: %w", index, ErrIndexNotFound)
	}
	if res.IsError() {
		return SearchResponse{}, responseError(res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return SearchResponse{}, fmt.Errorf("failed to decode search response: %w", err)
	}

	resp := SearchResponse{
		Total: sr.Hits.Total.Value,
		Hits:  make([]Hit, 0, len(sr.Hits.Hits)),
	}
	for _, h := range sr.Hits.Hits {
		hit := Hit{ID: h.ID, Source: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		resp.Hits = append(resp.Hits, hit)
	}
	return resp, nil
}

// Close implements DocumentStore. The HTTP client holds no resources that
// need releasing.
func (s *ElasticStore) Close() error {
	return nil
}

func elasticAnalyzer(a Analyzer) (string, error) {
	switch a {
	case AnalyzerSimple:
		return "simple", nil
	case AnalyzerItalian:
		return "italian", nil
	default:
		return "", fmt.Errorf("unsupported analyzer %q", a)
	}
}

// elasticMapping renders the index creation body for m.
func elasticMapping(m Mapping) ([]byte, error) {
	props := make(map[string]map[string]string, len(m.Fields))
	for _, f := range m.Fields {
		switch f.Kind {
		case FieldText:
			analyzer, err := elasticAnalyzer(f.Analyzer)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			props[f.Name] = map[string]string{"type": "text", "analyzer": analyzer}
		case FieldKeyword:
			props[f.Name] = map[string]string{"type": "keyword"}
		default:
			return nil, fmt.Errorf("field %s: unsupported kind %q", f.Name, f.Kind)
		}
	}
	return json.Marshal(map[string]any{
		"mappings": map[string]any{"properties": props},
	})
}

// elasticQuery renders the search body for q.
func elasticQuery(q Query) ([]byte, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	clause := map[string]any{
		string(q.Kind): map[string]any{q.Field: q.Text},
	}
	return json.Marshal(map[string]any{
		"query": clause,
		"size":  q.Size,
	})
}

// responseError turns an error response into an error carrying the
// engine's error type and reason when the body has them.
func responseError(res *esapi.Response) error {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	raw, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Error) > 0 {
		var cause elasticCause
		if err := json.Unmarshal(body.Error, &cause); err == nil && cause.Type != "" {
			return fmt.Errorf("elasticsearch returned %d: %s", res.StatusCode, cause.String())
		}
		return fmt.Errorf("elasticsearch returned %d: %s", res.StatusCode, strings.Trim(string(body.Error), `"`))
	}
	return fmt.Errorf("elasticsearch returned %d", res.StatusCode)
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}
