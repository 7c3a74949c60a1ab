package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not in the cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-oriented cache with TTLs. Used for analytics reads;
// the local store stays the source of truth.
type Cache interface {
	// Get retrieves a value by key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases cache resources.
	Close() error
}
