// Package store is the content store adapter: a small document store
// abstraction over named collections of schemaless documents. The rest
// of the application never talks to a database directly; repositories
// receive a Store and an implementation is injected at wiring time.
package store

import (
	"context"
	"errors"
	"time"
)

// Fields holds the schemaless body of a document. Updates carry partial
// Fields and are merged into the stored document; absent keys are never
// deleted.
type Fields map[string]any

type Document struct {
	ID        string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt *time.Time
}

var (
	ErrNotFound         = errors.New("document not found")
	ErrUnavailable      = errors.New("store unavailable")
	ErrPermissionDenied = errors.New("store permission denied")
)

// Store is the adapter contract. A path names a collection, either a
// top-level one ("posts", "users") or a sub-collection
// ("posts/{id}/comments"). List and Get return ErrNotFound for missing
// documents and ErrUnavailable when the backend cannot be reached.
type Store interface {
	Get(ctx context.Context, path, id string) (Document, error)
	// List returns all documents of the collection ordered by orderKey.
	// Only "createdAt" ordering is supported by the backends in this
	// repository; descending is the common case (newest first).
	List(ctx context.Context, path, orderKey string, descending bool) ([]Document, error)
	Create(ctx context.Context, path string, fields Fields) (string, error)
	// Set writes a document under a caller-chosen id, merging fields
	// into any existing document (create-or-merge). Used for
	// collections keyed by an external identifier, like user profiles
	// keyed by principal uid.
	Set(ctx context.Context, path, id string, fields Fields) error
	// Update merges fields into the document. Missing document is
	// ErrNotFound. The id and createdAt of a document never change.
	Update(ctx context.Context, path, id string, fields Fields) error
	Delete(ctx context.Context, path, id string) error
}

// StringField reads a string value out of document fields, tolerating
// absent keys and non-string values.
func StringField(fields Fields, key string) string {
	value, _ := fields[key].(string)
	return value
}

// BoolField reads a bool value out of document fields.
func BoolField(fields Fields, key string) bool {
	value, _ := fields[key].(bool)
	return value
}
