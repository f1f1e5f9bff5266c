package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Manager is the production Store. It encodes values as JSON and swallows
// every read and write fault.
type Manager struct {
	backend Backend
	logger  zerolog.Logger
}

var _ Store = (*Manager)(nil)

// NewManager creates a new cache manager on top of backend.
func NewManager(backend Backend, logger zerolog.Logger) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	return &Manager{
		backend: backend,
		logger:  logger,
	}
}

// Get decodes the value stored under key into dst.
// Returns false on a miss, an expired entry, or any backend or decode fault.
func (m *Manager) Get(ctx context.Context, key string, dst any) bool {
	space := keySpace(key)

	data, found, err := m.backend.Get(ctx, key)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		CacheMisses.WithLabelValues(space).Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache get error, treating as miss")
		return false
	}
	if !found {
		CacheMisses.WithLabelValues(space).Inc()
		m.logger.Debug().Str("key", key).Msg("Cache miss")
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		CacheMisses.WithLabelValues(space).Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache entry could not be decoded, treating as miss")
		return false
	}

	CacheHits.WithLabelValues(space).Inc()
	m.logger.Debug().Str("key", key).Msg("Cache hit")
	return true
}

// Set encodes value and stores it under key. Faults are logged and dropped.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl < 0 {
		// Already expired, don't cache
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache value could not be encoded, skipping")
		return
	}

	if err := m.backend.Set(ctx, key, data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("key", key).Msg("Cache set error, skipping")
		return
	}

	m.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached value")
}

// Remove deletes the entry stored under key.
func (m *Manager) Remove(ctx context.Context, key string) error {
	if err := m.backend.Delete(ctx, key); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("cache remove %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.backend.Clear(ctx); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}
