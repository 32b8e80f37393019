// Package pebblestore implements store.Store on top of a Pebble database.
//
// Key layout per collection:
//
//	<collection>/r/<id>  -> JSON encoded store.Record
//	<collection>/k/<key> -> id
//
// Record identities are UUIDv7 so a prefix scan returns records in insertion
// order.
package pebblestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/goliatone/go-statics/pkg/store"
	"github.com/google/uuid"
)

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval.
	FsyncModeInterval FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every committed write.
	FsyncModeAlways
	// FsyncModeNever leaves WAL syncing entirely to Pebble.
	FsyncModeNever
)

// ParseFsyncMode maps a config string onto a FsyncMode.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch s {
	case "", "interval":
		return FsyncModeInterval, nil
	case "always":
		return FsyncModeAlways, nil
	case "never":
		return FsyncModeNever, nil
	default:
		return FsyncModeInterval, fmt.Errorf("pebblestore: unknown fsync mode %q", s)
	}
}

// Options configures the Pebble store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// FS overrides the filesystem, mostly vfs.NewMem() in tests.
	FS vfs.FS
	// PebbleOptions allows advanced tuning of Pebble.
	PebbleOptions *pebble.Options
}

// Store is a store.Store backed by Pebble.
type Store struct {
	db        *pebble.DB
	writeSync bool
	// serialises read-modify-write sequences (index + record)
	mu sync.Mutex
}

var _ store.Store = (*Store)(nil)

// Open creates or opens a Pebble database.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblestore: Options.DataDir is required")
	}
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	switch opts.Fsync {
	case FsyncModeInterval:
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	case FsyncModeAlways, FsyncModeNever:
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open %q: %w", opts.DataDir, err)
	}
	return &Store{db: db, writeSync: opts.Fsync == FsyncModeAlways}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Find(ctx context.Context, collection string, filter store.Filter) ([]store.Record, error) {
	if collection == "" {
		return nil, store.ErrCollectionRequired
	}
	if filter.Key != "" {
		record, ok, err := s.FindOne(ctx, collection, filter)
		if err != nil || !ok {
			return []store.Record{}, err
		}
		return []store.Record{record}, nil
	}

	prefix := recordPrefix(collection)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: iterate %q: %w", collection, err)
	}
	defer iter.Close()

	out := []store.Record{}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var record store.Record
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return nil, fmt.Errorf("pebblestore: decode %q: %w", iter.Key(), err)
		}
		out = append(out, record)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebblestore: iterate %q: %w", collection, err)
	}
	return out, nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter store.Filter) (store.Record, bool, error) {
	if collection == "" {
		return store.Record{}, false, store.ErrCollectionRequired
	}
	if filter.Key == "" {
		all, err := s.Find(ctx, collection, filter)
		if err != nil || len(all) == 0 {
			return store.Record{}, false, err
		}
		return all[0], true, nil
	}

	id, ok, err := s.get(indexKey(collection, filter.Key))
	if err != nil || !ok {
		return store.Record{}, false, err
	}
	return s.load(collection, string(id))
}

func (s *Store) Insert(_ context.Context, collection string, record store.Record) (store.Record, error) {
	if collection == "" {
		return store.Record{}, store.ErrCollectionRequired
	}
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return store.Record{}, fmt.Errorf("pebblestore: new id: %w", err)
		}
		record.ID = id.String()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return store.Record{}, fmt.Errorf("pebblestore: encode %q: %w", record.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists, err := s.get(indexKey(collection, record.Key)); err != nil {
		return store.Record{}, err
	} else if exists {
		return store.Record{}, fmt.Errorf("%w: %s/%s", store.ErrDuplicateKey, collection, record.Key)
	}
	if _, exists, err := s.get(recordKey(collection, record.ID)); err != nil {
		return store.Record{}, err
	} else if exists {
		return store.Record{}, fmt.Errorf("pebblestore: record %q already exists in %q", record.ID, collection)
	}

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(recordKey(collection, record.ID), payload, nil); err != nil {
		return store.Record{}, err
	}
	if err := b.Set(indexKey(collection, record.Key), []byte(record.ID), nil); err != nil {
		return store.Record{}, err
	}
	if err := b.Commit(s.syncMode()); err != nil {
		return store.Record{}, fmt.Errorf("pebblestore: commit insert %q: %w", record.Key, err)
	}
	return record, nil
}

func (s *Store) Update(_ context.Context, collection, id string, value any) error {
	if collection == "" {
		return store.ErrCollectionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok, err := s.load(collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	record.Value = value
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("pebblestore: encode %q: %w", record.Key, err)
	}
	if err := s.db.Set(recordKey(collection, id), payload, s.syncMode()); err != nil {
		return fmt.Errorf("pebblestore: update %q: %w", record.Key, err)
	}
	return nil
}

func (s *Store) load(collection, id string) (store.Record, bool, error) {
	raw, ok, err := s.get(recordKey(collection, id))
	if err != nil || !ok {
		return store.Record{}, false, err
	}
	var record store.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return store.Record{}, false, fmt.Errorf("pebblestore: decode %s/%s: %w", collection, id, err)
	}
	return record, true, nil
}

// get copies the value for key; ok is false when the key does not exist.
func (s *Store) get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pebblestore: get %q: %w", key, err)
	}
	defer closer.Close()
	return bytes.Clone(val), true, nil
}

func (s *Store) syncMode() *pebble.WriteOptions {
	if s.writeSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func recordPrefix(collection string) []byte {
	return []byte(collection + "/r/")
}

func recordKey(collection, id string) []byte {
	return append(recordPrefix(collection), id...)
}

func indexKey(collection, key string) []byte {
	return []byte(collection + "/k/" + key)
}

func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
