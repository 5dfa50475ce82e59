package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mohamedzameer33/blogapp/internal/util"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the merge and ordering semantics of the Postgres backend.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	now         func() time.Time
	seq         int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
		now:         time.Now,
	}
}

// SetClock overrides the timestamp source, for deterministic tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(_ context.Context, path, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[path][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) List(_ context.Context, path, orderKey string, descending bool) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Document, 0, len(s.collections[path]))
	for _, doc := range s.collections[path] {
		items = append(items, cloneDocument(doc))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			if descending {
				return items[i].ID > items[j].ID
			}
			return items[i].ID < items[j].ID
		}
		if descending {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) Create(_ context.Context, path string, fields Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[path] == nil {
		s.collections[path] = make(map[string]Document)
	}
	id := util.NewID("")
	s.seq++
	doc := Document{
		ID:        id,
		Fields:    cloneFields(fields),
		CreatedAt: s.now().Add(time.Duration(s.seq) * time.Nanosecond),
	}
	s.collections[path][id] = doc
	return id, nil
}

func (s *MemoryStore) Set(_ context.Context, path, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[path] == nil {
		s.collections[path] = make(map[string]Document)
	}
	doc, ok := s.collections[path][id]
	if !ok {
		s.seq++
		s.collections[path][id] = Document{
			ID:        id,
			Fields:    cloneFields(fields),
			CreatedAt: s.now().Add(time.Duration(s.seq) * time.Nanosecond),
		}
		return nil
	}
	for key, value := range fields {
		doc.Fields[key] = value
	}
	updated := s.now()
	doc.UpdatedAt = &updated
	s.collections[path][id] = doc
	return nil
}

func (s *MemoryStore) Update(_ context.Context, path, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[path][id]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		doc.Fields[key] = value
	}
	updated := s.now()
	doc.UpdatedAt = &updated
	s.collections[path][id] = doc
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, path, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[path][id]; !ok {
		return ErrNotFound
	}
	delete(s.collections[path], id)
	return nil
}

// Count reports the number of documents in a collection, for tests.
func (s *MemoryStore) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[path])
}

// Put inserts a document with a caller-chosen id, for test seeding.
func (s *MemoryStore) Put(path, id string, fields Fields, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[path] == nil {
		s.collections[path] = make(map[string]Document)
	}
	s.collections[path][id] = Document{
		ID:        id,
		Fields:    cloneFields(fields),
		CreatedAt: createdAt,
	}
}

func cloneDocument(doc Document) Document {
	clone := doc
	clone.Fields = cloneFields(doc.Fields)
	if doc.UpdatedAt != nil {
		t := *doc.UpdatedAt
		clone.UpdatedAt = &t
	}
	return clone
}

func cloneFields(fields Fields) Fields {
	clone := make(Fields, len(fields))
	for key, value := range fields {
		clone[key] = value
	}
	return clone
}
