// Package store defines the contract between filesearch and the search engine
// that holds the document index, plus the adapters that implement it.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrIndexNotFound is returned when an operation targets a missing index.
var ErrIndexNotFound = errors.New("index not found")

// Field names shared by every adapter.
const (
	FieldFileName = "file_name"
	FieldContent  = "content"
	FieldFilePath = "file_path"
)

// Document is the indexable representation of one text file.
// FilePath is absolute and identifies the document.
type Document struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
}

// IndexAction asks the engine to store Document under ID in Index,
// replacing any previous document with the same ID.
type IndexAction struct {
	Index    string
	ID       string
	Document Document
}

// NewIndexAction builds the upsert action for doc, keyed by its path.
func NewIndexAction(index string, doc Document) IndexAction {
	return IndexAction{Index: index, ID: doc.FilePath, Document: doc}
}

// FieldKind is the logical type of an indexed field.
type FieldKind string

const (
	FieldText    FieldKind = "text"
	FieldKeyword FieldKind = "keyword"
)

// Analyzer is the logical analyzer name; adapters translate it to the
// engine-specific analyzer.
type Analyzer string

const (
	AnalyzerNone    Analyzer = ""
	AnalyzerSimple  Analyzer = "simple"
	AnalyzerItalian Analyzer = "italian"
)

// FieldMapping describes how one document field is indexed.
type FieldMapping struct {
	Name     string
	Kind     FieldKind
	Analyzer Analyzer
}

// Mapping is the schema an index is created with.
type Mapping struct {
	Fields []FieldMapping
}

// DefaultMapping returns the schema used for file indexes: the name is
// tokenized with a simple analyzer, the content with Italian stemming and
// stop words, and the path is stored as an exact keyword.
func DefaultMapping() Mapping {
	return Mapping{Fields: []FieldMapping{
		{Name: FieldFileName, Kind: FieldText, Analyzer: AnalyzerSimple},
		{Name: FieldContent, Kind: FieldText, Analyzer: AnalyzerItalian},
		{Name: FieldFilePath, Kind: FieldKeyword},
	}}
}

// QueryKind selects the engine query type.
type QueryKind string

const (
	// QueryMatch matches any analyzed token of Text.
	QueryMatch QueryKind = "match"
	// QueryPhrase matches the analyzed tokens of Text in order.
	QueryPhrase QueryKind = "match_phrase"
	// QueryTerm matches Text exactly against a keyword field.
	QueryTerm QueryKind = "term"
)

// Query is a single-field structured search request.
type Query struct {
	Kind  QueryKind
	Field string
	Text  string
	Size  int
}

// Validate reports whether the query can be sent to an engine.
func (q Query) Validate() error {
	switch q.Kind {
	case QueryMatch, QueryPhrase, QueryTerm:
	default:
		return fmt.Errorf("unknown query kind %q", q.Kind)
	}
	if q.Field == "" {
		return fmt.Errorf("query field is required")
	}
	if q.Size < 0 {
		return fmt.Errorf("query size must be >= 0, got %d", q.Size)
	}
	return nil
}

// Hit is one ranked search result.
type Hit struct {
	ID     string
	Score  float64
	Source map[string]any
}

// StringField returns the named source field when it is a non-empty string.
func (h Hit) StringField(name string) (string, bool) {
	v, ok := h.Source[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// SearchResponse holds the total number of matches and the returned hits,
// ordered by descending score.
type SearchResponse struct {
	Total int
	Hits  []Hit
}

// ItemFailure describes one rejected action in a bulk request.
type ItemFailure struct {
	ID     string
	Reason string
}

// BulkResult is the per-item outcome of a bulk request.
type BulkResult struct {
	Succeeded int
	Failures  []ItemFailure
}

// Failed returns the number of rejected actions.
func (r BulkResult) Failed() int {
	return len(r.Failures)
}

// DocumentStore is the search engine contract.
//
// BulkWrite returns an error only when the request as a whole could not be
// delivered; rejected items are reported in the BulkResult.
type DocumentStore interface {
	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error

	IndexExists(ctx context.Context, name string) (bool, error)
	DeleteIndex(ctx context.Context, name string) error
	CreateIndex(ctx context.Context, name string, m Mapping) error

	BulkWrite(ctx context.Context, actions []IndexAction) (BulkResult, error)

	// Refresh makes all prior writes to the index visible to Search.
	Refresh(ctx context.Context, name string) error

	Search(ctx context.Context, index string, q Query) (SearchResponse, error)

	// Endpoint names the engine location for diagnostics.
	Endpoint() string

	Close() error
}
