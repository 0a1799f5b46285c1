// Package observability provides logging, metrics, and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostMutations counts coordinated post mutations by operation and result.
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clon_post_mutations_total",
		Help: "Total number of post mutations by operation and result",
	}, []string{"op", "result"})

	// PostMutationConflicts counts version conflicts that forced a re-read.
	PostMutationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clon_post_mutation_conflicts_total",
		Help: "Total number of optimistic version conflicts retried by the coordinator",
	})

	// PostLockWait records how long mutations waited for the per-post lock.
	PostLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clon_post_lock_wait_seconds",
		Help:    "Time spent waiting for the per-post mutation lock",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	// BroadcastEvents counts fan-out events by kind and audience.
	BroadcastEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clon_broadcast_events_total",
		Help: "Total number of fan-out events dispatched",
	}, []string{"kind", "audience"})

	// BroadcastDrops counts events that were not dispatched.
	BroadcastDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clon_broadcast_drops_total",
		Help: "Total number of fan-out events dropped before dispatch",
	}, []string{"reason"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clon_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records repository latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clon_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clon_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clon_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
