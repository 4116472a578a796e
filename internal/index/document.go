package index

import (
	"errors"
	"iter"
	"os"
	"path/filepath"
	"unicode/utf8"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
)

// ErrInvalidEncoding is the cause of a read failure for non UTF-8 files.
var ErrInvalidEncoding = errors.New("content is not valid UTF-8")

// BuildDocument reads the file at path into a Document. The document path
// is absolute. Errors are read failures carrying the path.
func BuildDocument(path string) (store.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return store.Document{}, fserrors.ReadFailure(path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return store.Document{}, fserrors.ReadFailure(abs, err)
	}
	if !utf8.Valid(data) {
		return store.Document{}, fserrors.ReadFailure(abs, ErrInvalidEncoding)
	}

	return store.Document{
		FileName: filepath.Base(abs),
		Content:  string(data),
		FilePath: abs,
	}, nil
}

// Documents maps paths to documents, reading each file only when the
// consumer asks for the next document. Files that cannot be read are
// passed to onFailure, when set, and skipped.
func Documents(paths iter.Seq[string], onFailure func(path string, err error)) iter.Seq[store.Document] {
	return func(yield func(store.Document) bool) {
		for path := range paths {
			doc, err := BuildDocument(path)
			if err != nil {
				if onFailure != nil {
					onFailure(path, err)
				}
				continue
			}
			if !yield(doc) {
				return
			}
		}
	}
}
