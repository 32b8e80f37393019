// Package redisstore implements store.Store on top of Redis hashes.
//
// Layout per collection:
//
//	<prefix>:<collection>:records  hash id  -> JSON encoded store.Record
//	<prefix>:<collection>:keys     hash key -> id
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-statics/pkg/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "statics"
	// maxTxRetries bounds optimistic transactions aborted by a concurrent
	// write to a watched hash.
	maxTxRetries = 32
)

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every hash written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// Store is a store.Store backed by Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ store.Store = (*Store)(nil)

func New(client redis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", addr, err)
	}
	return New(client, opts...)
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
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

	raw, err := s.client.HGetAll(ctx, s.recordsKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: scan %q: %w", collection, err)
	}
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	// UUIDv7 identities sort in insertion order.
	sort.Strings(ids)

	out := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		record, err := decodeRecord(raw[id])
		if err != nil {
			return nil, fmt.Errorf("redisstore: decode %s/%s: %w", collection, id, err)
		}
		out = append(out, record)
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

	id, err := s.client.HGet(ctx, s.keysKey(collection), filter.Key).Result()
	if errors.Is(err, redis.Nil) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("redisstore: lookup %q: %w", filter.Key, err)
	}
	return s.load(ctx, collection, id)
}

func (s *Store) Insert(ctx context.Context, collection string, record store.Record) (store.Record, error) {
	if collection == "" {
		return store.Record{}, store.ErrCollectionRequired
	}
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return store.Record{}, fmt.Errorf("redisstore: new id: %w", err)
		}
		record.ID = id.String()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return store.Record{}, fmt.Errorf("redisstore: encode %q: %w", record.Key, err)
	}

	records, keys := s.recordsKey(collection), s.keysKey(collection)
	err = s.watch(ctx, func(tx *redis.Tx) error {
		taken, err := tx.HExists(ctx, keys, record.Key).Result()
		if err != nil {
			return fmt.Errorf("redisstore: insert %q: %w", record.Key, err)
		}
		if taken {
			return fmt.Errorf("%w: %s/%s", store.ErrDuplicateKey, collection, record.Key)
		}
		exists, err := tx.HExists(ctx, records, record.ID).Result()
		if err != nil {
			return fmt.Errorf("redisstore: insert %q: %w", record.Key, err)
		}
		if exists {
			return fmt.Errorf("redisstore: record %q already exists in %q", record.ID, collection)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, records, record.ID, payload)
			pipe.HSet(ctx, keys, record.Key, record.ID)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redisstore: insert %q: %w", record.Key, err)
		}
		return nil
	}, records, keys)
	if err != nil {
		return store.Record{}, err
	}
	return record, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, value any) error {
	if collection == "" {
		return store.ErrCollectionRequired
	}
	key := s.recordsKey(collection)
	return s.watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
		}
		if err != nil {
			return fmt.Errorf("redisstore: load %s/%s: %w", collection, id, err)
		}
		record, err := decodeRecord(raw)
		if err != nil {
			return fmt.Errorf("redisstore: decode %s/%s: %w", collection, id, err)
		}
		record.Value = value
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("redisstore: encode %q: %w", record.Key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, payload)
			return nil
		})
		return err
	}, key)
}

// watch runs fn as an optimistic transaction over keys, retrying when a
// concurrent write aborts it.
func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("redisstore: transaction retries exhausted: %w", redis.TxFailedErr)
}

func (s *Store) load(ctx context.Context, collection, id string) (store.Record, bool, error) {
	raw, err := s.client.HGet(ctx, s.recordsKey(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("redisstore: load %s/%s: %w", collection, id, err)
	}
	record, err := decodeRecord(raw)
	if err != nil {
		return store.Record{}, false, fmt.Errorf("redisstore: decode %s/%s: %w", collection, id, err)
	}
	return record, true, nil
}

func (s *Store) recordsKey(collection string) string {
	return s.prefix + ":" + collection + ":records"
}

func (s *Store) keysKey(collection string) string {
	return s.prefix + ":" + collection + ":keys"
}

func decodeRecord(raw string) (store.Record, error) {
	var record store.Record
	err := json.Unmarshal([]byte(raw), &record)
	return record, err
}
