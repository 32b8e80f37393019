package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-statics/pkg/store"
	"github.com/goliatone/go-statics/pkg/store/storetest"
	"github.com/google/go-cmp/cmp"
)

func sequentialIDs() store.MemoryOption {
	n := 0
	return store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return store.NewMemoryStore() })
}

func TestMemoryStoreInsertAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(sequentialIDs())

	rec, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Acme"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.ID != "id-1" {
		t.Fatalf("expected id-1, got %q", rec.ID)
	}

	got, ok, err := s.FindOne(ctx, "statics", store.Filter{Key: "title"})
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to be found")
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreFindPreservesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(sequentialIDs())
	for _, key := range []string{"title", "contact", "footer"} {
		if _, err := s.Insert(ctx, "statics", store.Record{Key: key, Value: key + "-value"}); err != nil {
			t.Fatalf("insert %s: %v", key, err)
		}
	}

	all, err := s.Find(ctx, "statics", store.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := []store.Record{
		{ID: "id-1", Key: "title", Value: "title-value"},
		{ID: "id-2", Key: "contact", Value: "contact-value"},
		{ID: "id-3", Key: "footer", Value: "footer-value"},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Fatalf("scan mismatch (-want +got):\n%s", diff)
	}

	filtered, err := s.Find(ctx, "statics", store.Filter{Key: "contact"})
	if err != nil {
		t.Fatalf("find filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Key != "contact" {
		t.Fatalf("unexpected filtered result: %+v", filtered)
	}
}

func TestMemoryStoreUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(sequentialIDs())
	rec, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Acme"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.Update(ctx, "statics", rec.ID, "Acme Corp"); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, _ := s.Find(ctx, "statics", store.Filter{})
	if len(all) != 1 {
		t.Fatalf("expected one record, got %d", len(all))
	}
	if all[0].ID != rec.ID || all[0].Value != "Acme Corp" {
		t.Fatalf("unexpected record after update: %+v", all[0])
	}
}

func TestMemoryStoreUpdateUnknownID(t *testing.T) {
	s := store.NewMemoryStore()
	err := s.Update(context.Background(), "statics", "missing", 1)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRequiresCollection(t *testing.T) {
	s := store.NewMemoryStore()
	if _, err := s.Find(context.Background(), "", store.Filter{}); !errors.Is(err, store.ErrCollectionRequired) {
		t.Fatalf("expected ErrCollectionRequired, got %v", err)
	}
	if _, err := s.Insert(context.Background(), "", store.Record{Key: "k"}); !errors.Is(err, store.ErrCollectionRequired) {
		t.Fatalf("expected ErrCollectionRequired, got %v", err)
	}
}

func TestMemoryStoreDetachesValues(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	value := map[string]any{"street": "Main"}
	if _, err := s.Insert(ctx, "statics", store.Record{Key: "address", Value: value}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	value["street"] = "changed"

	got, _, _ := s.FindOne(ctx, "statics", store.Filter{Key: "address"})
	stored := got.Value.(map[string]any)
	if stored["street"] != "Main" {
		t.Fatalf("expected stored value detached from input, got %v", stored)
	}
	stored["street"] = "mutated"

	again, _, _ := s.FindOne(ctx, "statics", store.Filter{Key: "address"})
	if again.Value.(map[string]any)["street"] != "Main" {
		t.Fatalf("expected stored value detached from output, got %v", again.Value)
	}
}

func TestMemoryStoreEmptyCollectionScan(t *testing.T) {
	s := store.NewMemoryStore()
	all, err := s.Find(context.Background(), "statics", store.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", all)
	}
	if s.Len("statics") != 0 {
		t.Fatalf("expected zero length")
	}
}
