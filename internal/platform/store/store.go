// Package store is the local device key/value store. Values are opaque
// strings; callers encrypt before writing.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for a missing or expired key.
var ErrNotFound = errors.New("store: key not found")

// Store is a key/value store with optional per-key expiry. A zero ttl never
// expires.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}
