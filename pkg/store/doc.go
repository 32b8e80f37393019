// Package store defines the persistence contract used by the statics service
// and ships an in-memory implementation.
//
// Responsibilities:
//   - Store only finds, inserts and updates records of one named collection.
//   - Record identity (Record.ID) is owned by the store; callers use it to
//     target updates and never invent it.
//   - Stores keep at most one record per key. Insert rejects a key that is
//     already stored with ErrDuplicateKey, so concurrent writers racing on a
//     new key converge on a single record.
//
// Durable implementations live in the pebblestore and redisstore
// subpackages so that consumers only link the backend they use.
package store
