package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage facade metrics
	CacheObjectsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fabrik_cache_objects_total",
			Help: "Total number of objects currently present in the cache",
		},
	)

	CacheBytesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fabrik_cache_bytes_total",
			Help: "Total number of bytes currently occupied by cached objects",
		},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_cache_hits_total",
			Help: "Total number of cache hits served by the Fabrik protocol",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_cache_misses_total",
			Help: "Total number of cache misses served by the Fabrik protocol",
		},
	)

	// Touch batcher metrics
	TouchQueueDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_touch_queue_dropped_total",
			Help: "Total number of touch messages dropped because the batcher queue was full",
		},
	)

	TouchBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fabrik_touch_batch_size",
			Help:    "Number of touches flushed per batcher drain",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	// Eviction engine metrics
	EvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_evictions_total",
			Help: "Total number of objects evicted",
		},
	)

	BytesEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_bytes_evicted_total",
			Help: "Total number of bytes reclaimed by eviction",
		},
	)

	EvictionRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_eviction_runs_total",
			Help: "Total number of eviction loop iterations that ran a scan",
		},
	)

	EvictionRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fabrik_eviction_run_duration_seconds",
			Help:    "Time taken for a single eviction run, from scan to completion",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cache service (gRPC) metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabrik_api_requests_total",
			Help: "Total number of Fabrik protocol RPCs by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fabrik_api_request_duration_seconds",
			Help:    "Fabrik protocol RPC duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PutBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_put_bytes_total",
			Help: "Total number of bytes accepted via Put RPCs",
		},
	)

	GetBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fabrik_get_bytes_total",
			Help: "Total number of bytes served via Get RPCs",
		},
	)

	// Hot-reload metrics
	ConfigReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabrik_config_reloads_total",
			Help: "Total number of config reload attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		CacheObjectsTotal,
		CacheBytesTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		TouchQueueDroppedTotal,
		TouchBatchSize,
		EvictionsTotal,
		BytesEvictedTotal,
		EvictionRunsTotal,
		EvictionRunDuration,
		APIRequestsTotal,
		APIRequestDuration,
		PutBytesTotal,
		GetBytesTotal,
		ConfigReloadsTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
