package repository

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by every Backend when a key holds no value.
var ErrKeyNotFound = errors.New("key not found")

// Backend stores opaque values under string keys. Set fully replaces any prior value.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
