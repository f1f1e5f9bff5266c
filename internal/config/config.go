// Package config loads the gateway configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config aggregates the service configuration.
type Config struct {
	Server    ServerConfig
	Provider  ProviderConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// ProviderConfig describes the outbound provider API.
type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	CacheJourneys bool
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxEntries    int
}

// RateLimitConfig describes the inbound fixed window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LogConfig describes logger output.
type LogConfig struct {
	Level  string
	Pretty bool
}

// LoadDotEnv preloads variables from .env files. Missing files are ignored and
// variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	provider, err := loadProviderConfig()
	if err != nil {
		return nil, err
	}

	cache, err := loadCacheConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Provider:  provider,
		Cache:     cache,
		RateLimit: rateLimit,
		Log:       logCfg,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := env("PORT", "8080")

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080"
		return ServerConfig{Addr: port}, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadProviderConfig() (ProviderConfig, error) {
	baseURL := env("PROVIDER_BASE_URL", "https://v2-api.obilet.com")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ProviderConfig{}, fmt.Errorf("invalid PROVIDER_BASE_URL value: %q", baseURL)
	}

	timeout, err := envDuration("PROVIDER_TIMEOUT", 30*time.Second)
	if err != nil {
		return ProviderConfig{}, err
	}

	cacheJourneys, err := envBool("JOURNEY_CACHE", true)
	if err != nil {
		return ProviderConfig{}, err
	}

	return ProviderConfig{
		BaseURL:       baseURL,
		APIKey:        strings.TrimSpace(os.Getenv("PROVIDER_API_KEY")),
		Timeout:       timeout,
		CacheJourneys: cacheJourneys,
	}, nil
}

func loadCacheConfig() (CacheConfig, error) {
	backend := strings.ToLower(env("CACHE_BACKEND", CacheBackendMemory))
	if backend != CacheBackendMemory && backend != CacheBackendRedis {
		return CacheConfig{}, fmt.Errorf("invalid CACHE_BACKEND value: %q (want %s or %s)",
			backend, CacheBackendMemory, CacheBackendRedis)
	}

	db, err := envInt("REDIS_DB", 0)
	if err != nil {
		return CacheConfig{}, err
	}

	maxEntries, err := envInt("CACHE_MAX_ENTRIES", 10000)
	if err != nil {
		return CacheConfig{}, err
	}

	return CacheConfig{
		Backend:       backend,
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       db,
		MaxEntries:    maxEntries,
	}, nil
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	requests, err := envInt("RATE_LIMIT_REQUESTS", 100)
	if err != nil {
		return RateLimitConfig{}, err
	}
	if requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0 (got %d)", requests)
	}

	window, err := envDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return RateLimitConfig{}, err
	}

	return RateLimitConfig{Requests: requests, Window: window}, nil
}

func loadLogConfig() (LogConfig, error) {
	level := strings.ToLower(env("LOG_LEVEL", "info"))
	switch level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL value: %q", level)
	}

	pretty, err := envBool("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{Level: level, Pretty: pretty}, nil
}

func env(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s value: %q", key, raw)
	}
	return v, nil
}
