package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/goliatone/go-statics/pkg/store"
	"github.com/goliatone/go-statics/pkg/store/storetest"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestKeyLayout(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s, err := New(client, WithPrefix("site"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := s.recordsKey("statics"); got != "site:statics:records" {
		t.Fatalf("unexpected records key %q", got)
	}
	if got := s.keysKey("statics"); got != "site:statics:keys" {
		t.Fatalf("unexpected keys key %q", got)
	}

	s, _ = New(client, WithPrefix(""))
	if got := s.recordsKey("statics"); got != "statics:statics:records" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}

// dialLive connects to STATICS_REDIS_ADDR under a fresh prefix, skipping the
// test when no server is configured.
func dialLive(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("STATICS_REDIS_ADDR")
	if addr == "" {
		t.Skip("STATICS_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Dial(ctx, addr, WithPrefix("statics-test-"+uuid.NewString()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	if os.Getenv("STATICS_REDIS_ADDR") == "" {
		t.Skip("STATICS_REDIS_ADDR not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store { return dialLive(t) })
}

func TestRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := dialLive(t)

	rec, err := s.Insert(ctx, "statics", store.Record{Key: "title", Value: "Acme"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Update(ctx, "statics", rec.ID, "Acme Corp"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok, err := s.FindOne(ctx, "statics", store.Filter{Key: "title"})
	if err != nil || !ok {
		t.Fatalf("find one: ok=%v err=%v", ok, err)
	}
	if got.ID != rec.ID || got.Value != "Acme Corp" {
		t.Fatalf("unexpected record %+v", got)
	}
	all, err := s.Find(ctx, "statics", store.Filter{})
	if err != nil || len(all) != 1 {
		t.Fatalf("find: %v %+v", err, all)
	}
	if err := s.Update(ctx, "statics", "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
