// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key space)
//   - Outgoing provider requests
//   - Rate limit window updates
//
// Info: Normal operation events
//   - Successful searches with result counts
//   - Sessions issued or reused
//   - Cache invalidations
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts and exhausted retries
//   - Cache errors (treated as a miss)
//   - Parameter errors from callers
//   - Rate limit rejections
//
// Error: Error conditions requiring attention
//   - Failed provider calls (after retries)
//   - Invalidation failures
//   - Configuration errors
//
// Context Fields:
//   - component: emitting component (provider-gateway, cache, session, invalidation, http)
//   - operation: gateway operation (create_session, search_locations, search_journeys)
//   - call_id: correlation id of one gateway call
//   - status_code: HTTP status code
//   - kind: failure kind (parameter, external_api, transient_network, unexpected)
//   - error_class: transient failure class (timeout, network)
//   - attempt / delay: retry attempt number and backoff
//   - cache_hit: Boolean indicating cache hit
//   - client_id: rate limit identity of an inbound request
