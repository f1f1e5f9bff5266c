package cache

import (
	"context"
	"time"
)

// Store is the cache contract used by the gateway and the invalidation facade.
//
// Get and Set never fail: a fault is reported as a miss or dropped. A ttl of zero
// means the entry lives until it is removed or the store is cleared.
type Store interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Backend is byte-level storage with per-entry TTL.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the data for key and whether it was found and not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry owned by the backend.
	Clear(ctx context.Context) error
}
