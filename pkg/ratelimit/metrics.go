package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for inbound rate limiting.
var (
	rateLimitRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_rate_limit_requests_total",
		Help: "Total inbound requests seen by the rate limiter by result (allowed, blocked, error)",
	}, []string{"result"})

	rateLimitTrackedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bus_rate_limit_tracked_clients",
		Help: "Number of clients with a live window in the in-memory limiter",
	})
)
