// Package metrics is the catalogue of Prometheus metrics exported by the gateway
// and the handler that serves them. The metrics themselves are defined with promauto
// in the packages that update them (provider, retry, cache, invalidation, ratelimit).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Provider Metrics (pkg/provider):
//   - bus_provider_requests_total{operation, status} (Counter): Provider HTTP attempts by operation and status
//   - bus_provider_request_duration_seconds{operation} (Histogram): Call duration including retries
//   - bus_provider_errors_total{kind} (Counter): Gateway failures by kind
//   - bus_journeys_filtered_total (Counter): Journeys dropped for having no available seats
//
// Retry Metrics (pkg/retry):
//   - bus_retry_attempts_total{error_class} (Counter): Retry attempts by error class (timeout, network)
//   - bus_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - bus_retry_exhausted_total{error_class} (Counter): Calls that exhausted max retries
//
// Cache Metrics (pkg/cache, pkg/invalidation):
//   - bus_cache_hits_total{key_space} (Counter): Cache hits by key space (session, locations, journeys)
//   - bus_cache_misses_total{key_space} (Counter): Cache misses by key space
//   - bus_cache_errors_total{operation} (Counter): Swallowed cache faults
//   - bus_cache_memory_entries (Gauge): Entries held by the in-memory backend
//   - bus_cache_invalidations_total{target} (Counter): Invalidation requests by target
//
// Rate Limit Metrics (pkg/ratelimit):
//   - bus_rate_limit_requests_total{result} (Counter): Inbound requests by result (allowed, blocked, error)
//   - bus_rate_limit_tracked_clients (Gauge): Clients with a live in-memory window
//
// Example Prometheus Queries:
//
//   # Location cache hit rate
//   sum(rate(bus_cache_hits_total{key_space="locations"}[5m])) /
//   (sum(rate(bus_cache_hits_total{key_space="locations"}[5m])) + sum(rate(bus_cache_misses_total{key_space="locations"}[5m])))
//
//   # Provider unreachable rate
//   rate(bus_provider_errors_total{kind="transient_network"}[5m])
//
//   # P95 journey search latency
//   histogram_quantile(0.95, rate(bus_provider_request_duration_seconds_bucket{operation="search_journeys"}[5m]))
//
//   # Share of full journeys
//   rate(bus_journeys_filtered_total[1h])
