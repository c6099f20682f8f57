package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by a Slot when the key holds no record.
	ErrNotFound = errors.New("store: record not found")
	// ErrNotPersisted means the in-memory state changed but the storage
	// medium could not be updated; the change will not survive a restart.
	ErrNotPersisted = errors.New("store: change kept in memory only")
)

// Slot is a durable key/value medium holding opaque records.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
