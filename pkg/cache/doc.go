// Package cache provides the TTL-keyed response cache used by the provider gateway.
//
// The package is split in two layers:
//
// - Backend: byte-level storage with per-entry TTL (MemoryBackend, RedisBackend)
// - Manager: the Store used by business code; JSON codec, metrics and failure swallowing
//
// A cache fault never fails a request. Reads that hit a backend or decode error are
// reported as a miss, writes that fail are dropped. Remove and Clear return the error
// so the invalidation facade can log it.
//
// # Basic Usage
//
//	store := cache.NewManager(cache.NewMemoryBackend(), logger)
//
//	var locations []model.Location
//	if store.Get(ctx, cache.LocationsKey("Istanbul"), &locations) {
//		return locations, nil
//	}
//
//	// ... fetch from the provider ...
//	store.Set(ctx, cache.LocationsKey("Istanbul"), locations, cache.LocationsTTL)
//
// # Redis Backend
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	store := cache.NewManager(cache.NewRedisBackend(redisClient, "bus:"), logger)
//
// # Key Grammar
//
// Keys are shared with the invalidation facade and must stay stable:
//
//	session:<sessionId>
//	locations:search:<lower(searchTerm) | "all">
//	journeys:<originId>:<destinationId>:<yyyy-MM-dd>
//
// # Metrics
//
//   - bus_cache_hits_total{key_space} - Cache hits
//   - bus_cache_misses_total{key_space} - Cache misses
//   - bus_cache_errors_total{operation} - Swallowed cache faults
//   - bus_cache_memory_entries - Entries held by the in-memory backend
package cache
