package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for provider gateway operations.
var (
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_provider_requests_total",
		Help: "Total provider requests by operation and status",
	}, []string{"operation", "status"})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bus_provider_request_duration_seconds",
		Help:    "Provider call duration in seconds by operation, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	providerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_provider_errors_total",
		Help: "Total gateway failures by kind",
	}, []string{"kind"})

	journeysFilteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_journeys_filtered_total",
		Help: "Total provider journeys dropped for having no available seats",
	})
)
