// Package store is the persistence boundary. The engines only ever need
// three operations, so the contract stays that small; anything fancier
// (pooling, replication) belongs to whoever owns the handle.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Filter narrows a Find scan. A nil filter matches everything.
type Filter func(value []byte) bool

// Record is one stored entry. Keys sort lexicographically within a
// collection, which callers use for deterministic ordering.
type Record struct {
	Key   string
	Value []byte
}

// Store is the minimal contract the ingestion core consumes.
//
// UpsertIfAbsent must be atomic on the key: two concurrent calls with the
// same key may not both report an insert.
type Store interface {
	FindOne(ctx context.Context, collection, key string) ([]byte, error)
	Find(ctx context.Context, collection, prefix string, filter Filter) ([]Record, error)
	UpsertIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error)
	Close() error
}

// Collection names used by the engines.
const (
	CollectionTransactions = "transactions"
	CollectionAccounts     = "accounts"
	CollectionInstitutions = "institutions"
)
