package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by FindOne when no document matches.
var ErrNotFound = errors.New("document not found")

// Filter matches documents whose top-level fields equal the given values.
// A nil or empty Filter matches every document in the collection.
type Filter map[string]any

// Sort orders results by one top-level document field.
type Sort struct {
	Field string
	Desc  bool

	// AsTime compares the field as a timestamp instead of text. Text
	// comparison misorders RFC 3339 values of mixed fractional-second
	// precision.
	AsTime bool
}

// Store is the document persistence capability.
type Store interface {
	// ReplaceAll atomically replaces every document in the collection.
	ReplaceAll(ctx context.Context, collection string, docs []any) error

	// InsertMany appends documents to the collection.
	InsertMany(ctx context.Context, collection string, docs []any) error

	// DeleteMany removes all documents matching the filter.
	DeleteMany(ctx context.Context, collection string, filter Filter) error

	// FindOne decodes the first matching document into dest.
	// Returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, collection string, filter Filter, sort *Sort, dest any) error

	// FindMany returns the raw JSON of every matching document.
	FindMany(ctx context.Context, collection string, filter Filter, sort *Sort) ([]json.RawMessage, error)
}
