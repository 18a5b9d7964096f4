package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KeyValueStorage.Get for absent or expired keys.
var ErrNotFound = errors.New("key not found")

// StorageManager owns the persistent stores.
type StorageManager interface {
	KeyValueStorage() KeyValueStorage
	Close() error
}

// KeyValueStorage is a string store with time-bounded entries. Generated
// explanations are kept here keyed by prompt hash.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context, before time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}
