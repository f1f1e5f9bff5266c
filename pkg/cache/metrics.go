package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by key space (session, locations, journeys)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"key_space"},
	)

	// CacheMisses tracks cache misses by key space
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"key_space"},
	)

	// CacheErrors tracks swallowed cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "clear"
	)

	// MemoryEntries tracks the number of entries in the in-memory backend
	MemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_cache_memory_entries",
			Help: "Current number of entries held by the in-memory cache backend",
		},
	)
)
