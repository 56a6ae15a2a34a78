package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts logical fetches by how they resolved:
	// fresh_cache, provider, stale_cache, exhausted, cancelled.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_fetches_total",
			Help: "Total number of logical fetches by resolution",
		},
		[]string{"category", "resolution"},
	)

	// AttemptsTotal counts individual provider attempts. Outcome is
	// "success" or the failure kind.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_provider_attempts_total",
			Help: "Total number of provider attempts",
		},
		[]string{"category", "resource", "outcome"},
	)

	// AttemptLatency tracks provider attempt latency.
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregator_provider_attempt_latency_seconds",
			Help:    "Provider attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category", "resource"},
	)

	// ResourcesInCooldown tracks how many resources are currently suspended.
	ResourcesInCooldown = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aggregator_resources_in_cooldown",
			Help: "Number of resources currently in cooldown",
		},
	)
)
