package cache

import (
	"time"
)

// Entry represents a single cached value as held by a backend.
type Entry struct {
	// Data is the encoded value
	Data []byte `json:"data"`

	// ExpiresAt is when the entry becomes stale. Zero means no expiration.
	ExpiresAt time.Time `json:"expires_at"`

	// CachedAt is when the entry was written
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds an entry written at now. A ttl of zero means no expiration.
func NewEntry(data []byte, ttl time.Duration, now time.Time) Entry {
	entry := Entry{
		Data:     data,
		CachedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	return entry
}

// HasExpiry reports whether the entry carries an expiration time.
func (e Entry) HasExpiry() bool {
	return !e.ExpiresAt.IsZero()
}

// IsExpired returns true once now has reached the expiration time.
func (e Entry) IsExpired(now time.Time) bool {
	return e.HasExpiry() && !now.Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired or if the entry never expires.
func (e Entry) TTL(now time.Time) time.Duration {
	if !e.HasExpiry() {
		return 0
	}
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
