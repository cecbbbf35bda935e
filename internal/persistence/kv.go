package persistence

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KVStore.Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the storage port behind the organization repository. Values are
// opaque bytes; implementations must be safe for concurrent use.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
