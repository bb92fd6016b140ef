/*
Package metrics provides Prometheus metrics collection and exposition for
the Fabrik cache daemon.

The metrics package defines and registers all Fabrik metrics using the
Prometheus client library, giving observability into cache occupancy,
hit/miss rates, eviction activity, touch-batcher queue health, and RPC
latency. Metrics are exposed via an HTTP endpoint for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  Prometheus Registry (MustRegister at package init)      │
	│                     │                                      │
	│  Gauge:     fabrik_cache_objects_total                   │
	│             fabrik_cache_bytes_total                     │
	│  Counter:   fabrik_cache_hits_total / _misses_total       │
	│             fabrik_evictions_total / _bytes_evicted_total │
	│             fabrik_touch_queue_dropped_total              │
	│             fabrik_config_reloads_total{outcome}          │
	│  Histogram: fabrik_eviction_run_duration_seconds          │
	│             fabrik_api_request_duration_seconds{method}   │
	│                     │                                      │
	│  promhttp.Handler() served at /metrics on health_bind    │
	└────────────────────────────────────────────────────────┘

# Usage

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.APIRequestDuration, "Get")

	metrics.CacheHitsTotal.Inc()
	metrics.CacheObjectsTotal.Set(float64(stats.ObjectCount))

# Dashboards

Cache occupancy: fabrik_cache_bytes_total vs. configured max_size.
Hit ratio: rate(fabrik_cache_hits_total[5m]) / (rate(fabrik_cache_hits_total[5m]) + rate(fabrik_cache_misses_total[5m])).
Eviction pressure: rate(fabrik_bytes_evicted_total[5m]).
RPC latency: histogram_quantile(0.95, fabrik_api_request_duration_seconds_bucket).
*/
package metrics
