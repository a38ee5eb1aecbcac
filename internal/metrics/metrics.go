package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for keydrop
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Cache Metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Distribution Metrics
	ClaimsTotal        prometheus.CounterVec
	KeysRestockedTotal prometheus.Counter
	KeysAssignedTotal  prometheus.CounterVec
	KeysAvailable      prometheus.Gauge
	WaitlistSize       prometheus.Gauge
	DrainDuration      prometheus.Histogram

	// Delivery Metrics
	NotificationsTotal prometheus.CounterVec
	UpdatesTotal       prometheus.CounterVec

	// Job Metrics
	JobDuration prometheus.HistogramVec
}

// NewMetricsRegistry registers every metric on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keydrop_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keydrop_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Cache Metrics
		CacheHitsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_cache_hits_total",
				Help: "Total cache hits by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),
		CacheMissesTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_cache_misses_total",
				Help: "Total cache misses by cache key pattern",
			},
			[]string{"cache_key_pattern"},
		),

		// Distribution Metrics
		ClaimsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_claims_total",
				Help: "Claim attempts by outcome (assigned, waitlisted, denied_<reason>)",
			},
			[]string{"outcome"},
		),
		KeysRestockedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "keydrop_keys_restocked_total",
				Help: "Total keys added to inventory",
			},
		),
		KeysAssignedTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_keys_assigned_total",
				Help: "Total keys bound to users, by path (claim or waitlist)",
			},
			[]string{"path"},
		),
		KeysAvailable: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "keydrop_keys_available",
				Help: "Unused keys in inventory after the last mutation",
			},
		),
		WaitlistSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "keydrop_waitlist_size",
				Help: "Users queued for inventory after the last mutation",
			},
		),
		DrainDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "keydrop_waitlist_drain_duration_seconds",
				Help:    "Time spent reconciling the waitlist against inventory",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		// Delivery Metrics
		NotificationsTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_notifications_total",
				Help: "Outbound chat messages by kind and result",
			},
			[]string{"kind", "result"},
		),
		UpdatesTotal: *factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keydrop_updates_total",
				Help: "Inbound chat updates by kind",
			},
			[]string{"kind"},
		),

		// Job Metrics
		JobDuration: *factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keydrop_job_duration_seconds",
				Help:    "Background job execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"job_name"},
		),
	}
}
