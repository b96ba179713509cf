package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mandinex_tracking"

var (
	TripsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "trips_started_total", Help: "Trip start requests by outcome"},
		[]string{"outcome"}, // started | resumed
	)

	LocationsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "locations_ingested_total", Help: "Ingested location fixes by result"},
		[]string{"result"}, // applied | stale
	)

	SnapshotsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "snapshots_captured_total", Help: "Snapshots written by kind"},
		[]string{"kind"},
	)
	SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "snapshot_failures_total", Help: "Snapshot writes that failed and were swallowed",
	})
	ClockSkewClamped = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "clock_skew_clamped_total", Help: "Elapsed trip times clamped into range"},
		[]string{"direction"}, // negative | excessive | future
	)

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "event_publish_failures_total", Help: "Tracking events that could not be delivered",
	})
	LiveIndexFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "live_index_failures_total", Help: "Redis live position updates that failed",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
