// Package invalidation evicts gateway cache entries on demand.
//
// Every operation derives its key with the same functions the gateway uses and is
// best-effort: store failures, including panics, are logged and swallowed.
package invalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/bus-search-gateway/pkg/cache"
)

var invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bus_cache_invalidations_total",
	Help: "Total cache invalidation requests by target",
}, []string{"target"})

// Facade exposes targeted and bulk eviction over a cache.Store.
type Facade struct {
	store  cache.Store
	logger zerolog.Logger
}

// New creates a facade over store.
func New(store cache.Store, logger zerolog.Logger) *Facade {
	if store == nil {
		panic("cache store must not be nil")
	}
	return &Facade{
		store:  store,
		logger: logger,
	}
}

// InvalidateSession removes a cached session.
func (f *Facade) InvalidateSession(ctx context.Context, sessionID string) {
	f.remove(ctx, "session", cache.SessionKey(sessionID))
}

// InvalidateLocations removes the cached result for one search term; an empty
// term targets the unfiltered list.
func (f *Facade) InvalidateLocations(ctx context.Context, searchTerm string) {
	f.remove(ctx, "locations", cache.LocationsKey(searchTerm))
}

// InvalidateJourneys removes the cached result for one route and date.
func (f *Facade) InvalidateJourneys(ctx context.Context, originID, destinationID string, departureDate time.Time) {
	f.remove(ctx, "journeys", cache.JourneysKey(originID, destinationID, departureDate))
}

// InvalidateAllLocations removes only the unfiltered location list.
// Entries cached per search term are left to expire.
func (f *Facade) InvalidateAllLocations(ctx context.Context) {
	f.remove(ctx, "all_locations", cache.LocationsKey(""))
}

// InvalidateAllJourneys evicts nothing: journey keys are only addressable one
// route and date at a time.
func (f *Facade) InvalidateAllJourneys(_ context.Context) {
	invalidationsTotal.WithLabelValues("all_journeys").Inc()
	f.logger.Warn().Msg("Pattern-based journey invalidation is not supported; entries expire after their TTL")
}

// ClearAll removes every cache entry.
func (f *Facade) ClearAll(ctx context.Context) {
	invalidationsTotal.WithLabelValues("all").Inc()
	f.guard("all", "", func() error {
		return f.store.Clear(ctx)
	})
}

func (f *Facade) remove(ctx context.Context, target, key string) {
	invalidationsTotal.WithLabelValues(target).Inc()
	f.guard(target, key, func() error {
		return f.store.Remove(ctx, key)
	})
}

func (f *Facade) guard(target, key string, op func() error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error().
				Str("target", target).
				Str("key", key).
				Str("panic", fmt.Sprint(r)).
				Msg("Cache invalidation panicked")
		}
	}()

	if err := op(); err != nil {
		f.logger.Error().
			Err(err).
			Str("target", target).
			Str("key", key).
			Msg("Cache invalidation failed")
		return
	}

	f.logger.Info().
		Str("target", target).
		Str("key", key).
		Msg("Cache invalidated")
}

// CacheType describes one kind of cached data.
type CacheType struct {
	Name      string        `json:"name"`
	KeyPrefix string        `json:"key_prefix"`
	TTL       time.Duration `json:"-"`
	TTLText   string        `json:"ttl"`
}

// Status describes the cache layout.
type Status struct {
	CacheTypes []CacheType `json:"cache_types"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Status reports the cache types and their TTLs.
func (f *Facade) Status() Status {
	types := []CacheType{
		{Name: "session", KeyPrefix: cache.SessionPrefix, TTL: cache.SessionTTL},
		{Name: "locations", KeyPrefix: cache.LocationsSearchPrefix, TTL: cache.LocationsTTL},
		{Name: "journeys", KeyPrefix: cache.JourneysPrefix, TTL: cache.JourneysTTL},
	}
	for i := range types {
		types[i].TTLText = types[i].TTL.String()
	}
	return Status{
		CacheTypes: types,
		Timestamp:  time.Now().UTC(),
	}
}
