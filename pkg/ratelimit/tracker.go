package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter counts one request for clientID in the current window.
type Limiter interface {
	Allow(ctx context.Context, clientID string) (State, error)
}

var (
	_ Limiter = (*RedisTracker)(nil)
	_ Limiter = (*MemoryTracker)(nil)
)

// RedisTracker keeps window counters in Redis so that every gateway instance
// shares the same limit.
type RedisTracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisTracker creates a Redis backed limiter.
func NewRedisTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) (*RedisTracker, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RedisTracker{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Key returns the Redis key of the window containing now.
func (t *RedisTracker) Key(clientID string, now time.Time) string {
	return fmt.Sprintf("%s%s:%d", RedisKeyPrefix, clientID, t.config.WindowStart(now).Unix())
}

// Allow increments the client's counter for the current window.
func (t *RedisTracker) Allow(ctx context.Context, clientID string) (State, error) {
	now := t.now()
	start := t.config.WindowStart(now)
	key := t.Key(clientID, now)

	// Count and expire atomically
	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return State{}, fmt.Errorf("count request in redis: %w", err)
	}

	state := State{
		Limit:   t.config.Requests,
		Count:   int(incr.Val()),
		ResetAt: start.Add(t.config.Window),
	}

	t.logger.Debug().
		Str("client_id", clientID).
		Int("count", state.Count).
		Int("limit", state.Limit).
		Msg("Rate limit window updated")

	return state, nil
}

type window struct {
	start time.Time
	count int
}

// MemoryTracker keeps window counters in process memory.
type MemoryTracker struct {
	mu        sync.Mutex
	config    Config
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryTracker creates an in-memory limiter. A nil clock means time.Now.
func NewMemoryTracker(cfg Config, clock func() time.Time) (*MemoryTracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTracker{
		config:  cfg,
		windows: make(map[string]*window),
		now:     clock,
	}, nil
}

// Allow increments the client's counter for the current window.
func (t *MemoryTracker) Allow(_ context.Context, clientID string) (State, error) {
	now := t.now()
	start := t.config.WindowStart(now)

	t.mu.Lock()
	defer t.mu.Unlock()

	if start.After(t.lastSweep) {
		t.sweepLocked(start)
	}

	w, ok := t.windows[clientID]
	if !ok || !w.start.Equal(start) {
		w = &window{start: start}
		t.windows[clientID] = w
	}
	w.count++
	rateLimitTrackedClients.Set(float64(len(t.windows)))

	return State{
		Limit:   t.config.Requests,
		Count:   w.count,
		ResetAt: start.Add(t.config.Window),
	}, nil
}

// Len returns the number of tracked clients.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}

// sweepLocked drops every window older than start. Runs once per window.
func (t *MemoryTracker) sweepLocked(start time.Time) {
	for id, w := range t.windows {
		if w.start.Before(start) {
			delete(t.windows, id)
		}
	}
	t.lastSweep = start
}
