// Package storetest checks that a store.Store implementation honours the
// contract the statics service relies on.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-statics/pkg/store"
	"github.com/google/go-cmp/cmp"
)

// Opener returns an empty store for one subtest.
type Opener func(t *testing.T) store.Store

// Run exercises open's stores against the store.Store contract.
func Run(t *testing.T, open Opener) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{name: "insert assigns identity", fn: testInsertAssignsIdentity},
		{name: "duplicate key rejected", fn: testDuplicateKeyRejected},
		{name: "concurrent inserts keep one record", fn: testConcurrentInserts},
		{name: "find one agrees with scan", fn: testFindOneAgreesWithScan},
		{name: "update unknown id", fn: testUpdateUnknownID},
		{name: "collections are isolated", fn: testCollectionsIsolated},
		{name: "collection required", fn: testCollectionRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func testInsertAssignsIdentity(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Acme"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected an identity to be assigned")
	}
	got, ok, err := s.FindOne(ctx, "statics", store.Filter{Key: "title"})
	if err != nil || !ok {
		t.Fatalf("find one: ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func testDuplicateKeyRejected(t *testing.T, s store.Store) {
	ctx := context.Background()
	first, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Acme"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Other"}); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	all, err := s.Find(ctx, "statics", store.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]store.Record{first}, all); diff != "" {
		t.Fatalf("scan mismatch (-want +got):\n%s", diff)
	}
}

func testConcurrentInserts(t *testing.T, s store.Store) {
	ctx := context.Background()
	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Insert(ctx, "statics", store.Record{Key: "contact", Value: fmt.Sprintf("c%d", i)})
		}(i)
	}
	wg.Wait()

	inserted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			inserted++
		case !errors.Is(err, store.ErrDuplicateKey):
			t.Fatalf("unexpected insert error: %v", err)
		}
	}
	if inserted != 1 {
		t.Fatalf("expected exactly one insert to succeed, got %d", inserted)
	}
	all, err := s.Find(ctx, "statics", store.Filter{Key: "contact"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one record for contact, got %+v", all)
	}
}

func testFindOneAgreesWithScan(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := map[string]string{}
	for _, key := range []string{"title", "contact", "footer"} {
		rec, err := s.Insert(ctx, "statics", store.Record{Key: key, Value: key + "-v1"})
		if err != nil {
			t.Fatalf("insert %s: %v", key, err)
		}
		ids[key] = rec.ID
	}
	for _, key := range []string{"title", "footer"} {
		if err := s.Update(ctx, "statics", ids[key], key+"-v2"); err != nil {
			t.Fatalf("update %s: %v", key, err)
		}
	}

	all, err := s.Find(ctx, "statics", store.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	folded := map[string]any{}
	for _, rec := range all {
		folded[rec.Key] = rec.Value
	}
	want := map[string]any{"title": "title-v2", "contact": "contact-v1", "footer": "footer-v2"}
	if diff := cmp.Diff(want, folded); diff != "" {
		t.Fatalf("scan fold mismatch (-want +got):\n%s", diff)
	}
	for key, value := range want {
		rec, ok, err := s.FindOne(ctx, "statics", store.Filter{Key: key})
		if err != nil || !ok {
			t.Fatalf("find one %s: ok=%v err=%v", key, ok, err)
		}
		if rec.ID != ids[key] || rec.Value != value {
			t.Fatalf("find one %s = %+v, scan folded %v", key, rec, value)
		}
	}
}

func testUpdateUnknownID(t *testing.T, s store.Store) {
	if err := s.Update(context.Background(), "statics", "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCollectionsIsolated(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Acme"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(ctx, "site_statics", store.Record{Key: "title", Value: "Site"}); err != nil {
		t.Fatalf("same key in another collection: %v", err)
	}
	got, ok, err := s.FindOne(ctx, "site_statics", store.Filter{Key: "title"})
	if err != nil || !ok || got.Value != "Site" {
		t.Fatalf("find one = %+v ok=%v err=%v", got, ok, err)
	}
	empty, err := s.Find(ctx, "other", store.Filter{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func testCollectionRequired(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.Find(ctx, "", store.Filter{}); !errors.Is(err, store.ErrCollectionRequired) {
		t.Fatalf("find: expected ErrCollectionRequired, got %v", err)
	}
	if _, _, err := s.FindOne(ctx, "", store.Filter{Key: "title"}); !errors.Is(err, store.ErrCollectionRequired) {
		t.Fatalf("find one: expected ErrCollectionRequired, got %v", err)
	}
	if _, err := s.Insert(ctx, "", store.Record{Key: "title"}); !errors.Is(err, store.ErrCollectionRequired) {
		t.Fatalf("insert: expected ErrCollectionRequired, got %v", err)
	}
	if err := s.Update(ctx, "", "id", 1); !errors.Is(err, store.ErrCollectionRequired) {
		t.Fatalf("update: expected ErrCollectionRequired, got %v", err)
	}
}
