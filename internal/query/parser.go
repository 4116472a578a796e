// Package query implements the interactive query language and loop.
//
// A query line names a field and a term:
//
//	nome <terms>              match on file_name
//	contenuto <terms>         match on content
//	contenuto "exact phrase"  phrase on content
package query

import (
	"strings"
	"unicode"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
)

// Mode selects how the term is matched.
type Mode string

const (
	// ModeMatch matches any token of the term.
	ModeMatch Mode = "match"
	// ModePhrase matches the term as a contiguous sequence of tokens.
	ModePhrase Mode = "phrase"
)

// Keywords accepted at the start of a query line.
const (
	KeywordName    = "nome"
	KeywordContent = "contenuto"
)

var keywordFields = map[string]string{
	KeywordName:    store.FieldFileName,
	KeywordContent: store.FieldContent,
}

// Query is a parsed query line. It is comparable and used as a cache key.
type Query struct {
	Field string
	Mode  Mode
	Term  string
}

// Parse turns one input line into a Query.
// The keyword is matched case-insensitively; the term is kept verbatim.
func Parse(line string) (Query, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Query{}, fserrors.SyntaxError(line, "empty query")
	}

	keyword, rest := trimmed, ""
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
		keyword, rest = trimmed[:i], trimmed[i:]
	}

	field, ok := keywordFields[strings.ToLower(keyword)]
	if !ok {
		return Query{}, fserrors.SyntaxError(line, "unknown keyword "+keyword)
	}

	term := strings.TrimSpace(rest)
	if term == "" {
		return Query{}, fserrors.SyntaxError(line, "missing search term after "+keyword)
	}

	if isPhrase(term) {
		return Query{Field: field, Mode: ModePhrase, Term: term[1 : len(term)-1]}, nil
	}
	return Query{Field: field, Mode: ModeMatch, Term: term}, nil
}

// isPhrase reports whether term is wrapped in double quotes.
// Escaped quotes are not recognized.
func isPhrase(term string) bool {
	return len(term) >= 2 && strings.HasPrefix(term, `"`) && strings.HasSuffix(term, `"`)
}

// StoreQuery converts q to the engine's structured query.
func (q Query) StoreQuery(size int) store.Query {
	kind := store.QueryMatch
	if q.Mode == ModePhrase {
		kind = store.QueryPhrase
	}
	return store.Query{
		Kind:  kind,
		Field: q.Field,
		Text:  q.Term,
		Size:  size,
	}
}
