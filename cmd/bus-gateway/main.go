package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/bus-search-gateway/internal/config"
	"github.com/Sternrassler/bus-search-gateway/pkg/cache"
	"github.com/Sternrassler/bus-search-gateway/pkg/invalidation"
	"github.com/Sternrassler/bus-search-gateway/pkg/logging"
	"github.com/Sternrassler/bus-search-gateway/pkg/provider"
	"github.com/Sternrassler/bus-search-gateway/pkg/ratelimit"
	"github.com/Sternrassler/bus-search-gateway/pkg/session"
)

// redisNamespace prefixes every cache key the gateway writes to Redis.
const redisNamespace = "bus:"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Gateway stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("main")

	rateLimitCfg := ratelimit.Config{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	}

	var (
		backend cache.Backend
		limiter ratelimit.Limiter
		ready   = func(context.Context) error { return nil }
	)

	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to Redis")

		backend = cache.NewRedisBackend(redisClient, redisNamespace)
		limiter, err = ratelimit.NewRedisTracker(redisClient, rateLimitCfg, logging.NewLogger("ratelimit"))
		if err != nil {
			return fmt.Errorf("create rate limiter: %w", err)
		}
		ready = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

	default:
		memory := cache.NewMemoryBackend(cache.WithMaxEntries(cfg.Cache.MaxEntries))
		cleanupStop := make(chan struct{})
		defer close(cleanupStop)
		go memory.PeriodicCleanUp(time.Minute, cleanupStop)

		backend = memory
		limiter, err = ratelimit.NewMemoryTracker(rateLimitCfg, nil)
		if err != nil {
			return fmt.Errorf("create rate limiter: %w", err)
		}
	}

	store := cache.NewManager(backend, logging.NewLogger("cache"))

	gatewayLogger := logging.NewLogger("provider-gateway")
	gatewayCfg := provider.DefaultConfig(store, cfg.Provider.BaseURL)
	gatewayCfg.APIKey = cfg.Provider.APIKey
	gatewayCfg.Timeout = cfg.Provider.Timeout
	gatewayCfg.CacheJourneys = cfg.Provider.CacheJourneys
	gatewayCfg.Logger = &gatewayLogger

	gateway, err := provider.New(gatewayCfg)
	if err != nil {
		return fmt.Errorf("create provider gateway: %w", err)
	}

	handler := newRouter(routerConfig{
		Provider:     gateway,
		Sessions:     session.NewCoordinator(gateway, logging.NewLogger("session")),
		Invalidation: invalidation.New(store, logging.NewLogger("invalidation")),
		Limiter:      limiter,
		Ready:        ready,
		Logger:       logging.NewLogger("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("provider", cfg.Provider.BaseURL).
			Str("cache_backend", cfg.Cache.Backend).
			Msg("Starting bus search gateway")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
