// Package ratelimit implements the inbound fixed-window request limit of the HTTP API.
// Counters live in Redis when several gateway instances share a limit, or in memory
// for a single process.
package ratelimit

import (
	"fmt"
	"time"
)

// RedisKeyPrefix namespaces the per-client window counters in Redis.
const RedisKeyPrefix = "bus:rate_limit:"

// Defaults applied by the HTTP adapter.
const (
	DefaultRequests = 100
	DefaultWindow   = time.Minute
)

// Config describes a fixed window: at most Requests per Window and client.
type Config struct {
	Requests int
	Window   time.Duration
}

// DefaultConfig returns 100 requests per minute.
func DefaultConfig() Config {
	return Config{
		Requests: DefaultRequests,
		Window:   DefaultWindow,
	}
}

// Validate checks the window configuration.
func (c Config) Validate() error {
	if c.Requests <= 0 {
		return fmt.Errorf("requests must be > 0 (got %d)", c.Requests)
	}
	if c.Window < time.Second {
		return fmt.Errorf("window must be >= 1s (got %s)", c.Window)
	}
	return nil
}

// WindowStart returns the start of the window containing now.
func (c Config) WindowStart(now time.Time) time.Time {
	return now.Truncate(c.Window)
}

// State is the outcome of counting one request.
type State struct {
	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Count is the number of requests seen in the current window, this one included.
	Count int `json:"count"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`
}

// Allowed reports whether the request fits in the window.
func (s State) Allowed() bool {
	return s.Count <= s.Limit
}

// Remaining returns how many more requests the window accepts.
func (s State) Remaining() int {
	if s.Count >= s.Limit {
		return 0
	}
	return s.Limit - s.Count
}

// RetryAfter returns the wait until the window resets, rounded up to whole
// seconds and never below one second.
func (s State) RetryAfter(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d <= time.Second {
		return time.Second
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}
