// Package index builds a search index from a directory tree: it prepares
// the index schema, turns files into documents and submits them to the
// document store in bounded batches.
package index

import (
	"context"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/store"
)

// EnsureIndex makes name exist with mapping m. An existing index of the
// same name is deleted first, so every run starts from an empty index.
func EnsureIndex(ctx context.Context, s store.DocumentStore, name string, m store.Mapping) error {
	exists, err := s.IndexExists(ctx, name)
	if err != nil {
		return fserrors.SchemaError("check", name, err)
	}
	if exists {
		if err := s.DeleteIndex(ctx, name); err != nil {
			return fserrors.SchemaError("delete", name, err)
		}
	}
	if err := s.CreateIndex(ctx, name, m); err != nil {
		return fserrors.SchemaError("create", name, err)
	}
	return nil
}
