package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend. Expired entries are dropped lazily on
// read and by PeriodicCleanUp. It is safe for concurrent use by multiple goroutines.
type MemoryBackend struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	maxEntries int
	now        func() time.Time
}

var _ Backend = (*MemoryBackend)(nil)

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		b.now = now
	}
}

// WithMaxEntries bounds the number of entries. When full, expired entries are
// evicted first, then the oldest one. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(b *MemoryBackend) {
		b.maxEntries = n
	}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get returns the data for key. An expired entry is deleted and reported as missing.
func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	entry, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	now := b.now()
	if entry.IsExpired(now) {
		b.mu.Lock()
		// Another writer may have replaced it in between
		if current, ok := b.entries[key]; ok && current.IsExpired(now) {
			delete(b.entries, key)
			MemoryEntries.Set(float64(len(b.entries)))
		}
		b.mu.Unlock()
		return nil, false, nil
	}

	return entry.Data, true, nil
}

// Set stores a copy of data under key.
func (b *MemoryBackend) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	now := b.now()
	entry := NewEntry(append([]byte(nil), data...), ttl, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[key]; !exists && b.maxEntries > 0 && len(b.entries) >= b.maxEntries {
		b.evictLocked(now)
	}
	b.entries[key] = entry
	MemoryEntries.Set(float64(len(b.entries)))

	return nil
}

// Delete removes key. If the key does not exist, this is a no-op.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	MemoryEntries.Set(float64(len(b.entries)))
	b.mu.Unlock()
	return nil
}

// Clear removes every entry.
func (b *MemoryBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	b.entries = make(map[string]Entry)
	MemoryEntries.Set(0)
	b.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// PeriodicCleanUp runs a loop that periodically deletes expired entries.
// The cleanup runs every interval until stop is closed.
//
// Example usage:
//
//	stop := make(chan struct{})
//	go backend.PeriodicCleanUp(time.Minute, stop)
//	...
//	close(stop)
func (b *MemoryBackend) PeriodicCleanUp(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.deleteExpired()
		case <-stop:
			return
		}
	}
}

// deleteExpired removes all expired entries.
func (b *MemoryBackend) deleteExpired() {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for key, entry := range b.entries {
		if entry.IsExpired(now) {
			delete(b.entries, key)
		}
	}
	MemoryEntries.Set(float64(len(b.entries)))
}

// evictLocked makes room for one entry. Caller holds b.mu.
func (b *MemoryBackend) evictLocked(now time.Time) {
	for key, entry := range b.entries {
		if entry.IsExpired(now) {
			delete(b.entries, key)
		}
	}
	if len(b.entries) < b.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range b.entries {
		if oldestKey == "" || entry.CachedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.CachedAt
		}
	}
	delete(b.entries, oldestKey)
}
