package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	DegradedPricingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_degraded_pricing_total",
		Help: "Line items priced via the degraded fallback path",
	})

	StatusTransitionsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_accepted_total",
		Help: "Accepted order status transitions",
	}, []string{"to"})

	StatusTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_rejected_total",
		Help: "Rejected order status transitions",
	}, []string{"to"})

	FanoutEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_published_total",
		Help: "Realtime events delivered to subscriber buffers",
	}, []string{"event"})

	FanoutEventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_dropped_total",
		Help: "Realtime events dropped because a client buffer was full",
	}, []string{"event"})

	StreamConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_stream_connections",
		Help: "Currently open realtime stream connections",
	})

	SnapshotWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_snapshot_writes_total",
		Help: "Writes of the shared order snapshot",
	})

	SnapshotWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_snapshot_write_failures_total",
		Help: "Failed writes of the shared order snapshot",
	})

	SyncPollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_poll_cycles_total",
		Help: "Completed sync bridge poll cycles",
	})

	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Notification events published to the broker",
	}, []string{"type"})

	NotificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notification events that failed to publish or dispatch",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
