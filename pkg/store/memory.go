package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store intended for tests, examples and
// single-process deployments. Scans return records in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	newID       func() string
}

type memoryCollection struct {
	order   []string
	records map[string]Record
	// key -> record id
	keys map[string]string
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithIDGenerator overrides the uuid based identity generator.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: map[string]*memoryCollection{},
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Find(_ context.Context, collection string, filter Filter) ([]Record, error) {
	if collection == "" {
		return nil, ErrCollectionRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return []Record{}, nil
	}
	out := make([]Record, 0, len(col.order))
	for _, id := range col.order {
		record := col.records[id]
		if !filter.Matches(record) {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	return out, nil
}

func (s *MemoryStore) FindOne(_ context.Context, collection string, filter Filter) (Record, bool, error) {
	if collection == "" {
		return Record{}, false, ErrCollectionRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return Record{}, false, nil
	}
	if filter.Key != "" {
		id, ok := col.keys[filter.Key]
		if !ok {
			return Record{}, false, nil
		}
		return cloneRecord(col.records[id]), true, nil
	}
	for _, id := range col.order {
		record := col.records[id]
		if filter.Matches(record) {
			return cloneRecord(record), true, nil
		}
	}
	return Record{}, false, nil
}

func (s *MemoryStore) Insert(_ context.Context, collection string, record Record) (Record, error) {
	if collection == "" {
		return Record{}, ErrCollectionRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(collection)
	if record.ID == "" {
		record.ID = s.newID()
	}
	if _, exists := col.keys[record.Key]; exists {
		return Record{}, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, collection, record.Key)
	}
	if _, exists := col.records[record.ID]; exists {
		return Record{}, fmt.Errorf("store: record %q already exists in %q", record.ID, collection)
	}
	stored := cloneRecord(record)
	col.records[record.ID] = stored
	col.keys[record.Key] = record.ID
	col.order = append(col.order, record.ID)
	return cloneRecord(stored), nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, value any) error {
	if collection == "" {
		return ErrCollectionRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	record, ok := col.records[id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	record.Value = cloneValue(value)
	col.records[id] = record
	return nil
}

// Len reports the number of records in collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, ok := s.collections[collection]
	if !ok {
		return 0
	}
	return len(col.order)
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	col, ok := s.collections[name]
	if !ok {
		col = &memoryCollection{records: map[string]Record{}, keys: map[string]string{}}
		s.collections[name] = col
	}
	return col
}

func cloneRecord(record Record) Record {
	out := record
	out.Value = cloneValue(record.Value)
	return out
}

// cloneValue detaches JSON-shaped values (maps, slices) so callers cannot
// mutate stored state through a returned reference.
func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = cloneValue(v)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = cloneValue(v)
		}
		return out
	case json.RawMessage:
		return append(json.RawMessage(nil), typed...)
	default:
		return value
	}
}
