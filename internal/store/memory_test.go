package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{"title": "hello"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	doc, err := s.Get(ctx, "posts", id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if StringField(doc.Fields, "title") != "hello" {
		t.Fatalf("fields = %v", doc.Fields)
	}
	if doc.UpdatedAt != nil {
		t.Fatal("fresh document must have no updatedAt")
	}

	if _, err := s.Get(ctx, "posts", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateMerges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "posts", Fields{"title": "hello", "content": "body"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Update(ctx, "posts", id, Fields{"title": "changed"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	doc, err := s.Get(ctx, "posts", id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if StringField(doc.Fields, "title") != "changed" {
		t.Fatalf("title = %q", StringField(doc.Fields, "title"))
	}
	// Absent keys survive the merge.
	if StringField(doc.Fields, "content") != "body" {
		t.Fatalf("content = %q", StringField(doc.Fields, "content"))
	}
	if doc.UpdatedAt == nil {
		t.Fatal("update must stamp updatedAt")
	}

	if err := s.Update(ctx, "posts", "missing", Fields{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreSetCreatesOrMerges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "users", "u1", Fields{"displayName": "A", "isVerified": false}); err != nil {
		t.Fatalf("Set() create error = %v", err)
	}
	if err := s.Set(ctx, "users", "u1", Fields{"displayName": "B"}); err != nil {
		t.Fatalf("Set() merge error = %v", err)
	}
	doc, err := s.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if StringField(doc.Fields, "displayName") != "B" {
		t.Fatalf("displayName = %q", StringField(doc.Fields, "displayName"))
	}
	if _, ok := doc.Fields["isVerified"]; !ok {
		t.Fatal("merge dropped an existing key")
	}
}

func TestMemoryStoreListOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Put("posts", "a", Fields{"title": "oldest"}, base)
	s.Put("posts", "b", Fields{"title": "middle"}, base.Add(time.Minute))
	s.Put("posts", "c", Fields{"title": "newest"}, base.Add(2*time.Minute))

	descending, err := s.List(ctx, "posts", "createdAt", true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if descending[0].ID != "c" || descending[2].ID != "a" {
		t.Fatalf("descending order wrong: %s %s %s", descending[0].ID, descending[1].ID, descending[2].ID)
	}

	ascending, err := s.List(ctx, "posts", "createdAt", false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if ascending[0].ID != "a" || ascending[2].ID != "c" {
		t.Fatalf("ascending order wrong: %s %s %s", ascending[0].ID, ascending[1].ID, ascending[2].ID)
	}
}

func TestMemoryStoreCreateOrderIsStrict(t *testing.T) {
	s := NewMemoryStore()
	s.SetClock(func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) })
	ctx := context.Background()

	first, err := s.Create(ctx, "posts", Fields{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := s.Create(ctx, "posts", Fields{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	docs, err := s.List(ctx, "posts", "createdAt", false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if docs[0].ID != first || docs[1].ID != second {
		t.Fatal("creates under a frozen clock must still list in insertion order")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, err := s.Create(ctx, "posts", Fields{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Delete(ctx, "posts", id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "posts", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreGetReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id, err := s.Create(ctx, "posts", Fields{"title": "hello"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	doc, _ := s.Get(ctx, "posts", id)
	doc.Fields["title"] = "mutated"

	again, _ := s.Get(ctx, "posts", id)
	if StringField(again.Fields, "title") != "hello" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestMemoryStoreSubCollectionsAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Create(ctx, "posts/p1/comments", Fields{"text": "one"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(ctx, "posts/p2/comments", Fields{"text": "two"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	docs, err := s.List(ctx, "posts/p1/comments", "createdAt", false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 1 || StringField(docs[0].Fields, "text") != "one" {
		t.Fatalf("sub-collection leak: %v", docs)
	}
}
