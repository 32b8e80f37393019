package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("store: record not found")

var ErrCollectionRequired = errors.New("store: collection is required")

// ErrDuplicateKey is returned by Insert when the collection already holds a
// record for the key.
var ErrDuplicateKey = errors.New("store: key already stored")

// Record is one persisted key/value override. ID is assigned by the store and
// is the identity used for targeted updates.
type Record struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Filter narrows Find/FindOne. The zero value matches every record.
type Filter struct {
	Key string
}

// Matches reports whether record satisfies the filter.
func (f Filter) Matches(record Record) bool {
	return f.Key == "" || f.Key == record.Key
}

// Store is the persistent collection behind the statics service. It only
// needs point lookups, full scans, inserts and in-place value updates.
// A collection holds at most one record per key: Insert fails with
// ErrDuplicateKey instead of adding a second one.
type Store interface {
	Find(ctx context.Context, collection string, filter Filter) ([]Record, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Record, bool, error)
	Insert(ctx context.Context, collection string, record Record) (Record, error)
	Update(ctx context.Context, collection, id string, value any) error
}
