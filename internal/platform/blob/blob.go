// Package blob defines the object store contract shared by the storage adapters.
package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

// Store is a flat key/value object store. Keys use "/" separators.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}
