package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 指標
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmgw_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dmgw_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// 業務指標
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmgw_messages_sent_total",
			Help: "Total direct messages persisted",
		},
	)

	MessagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmgw_messages_deleted_total",
			Help: "Total direct messages soft-deleted",
		},
	)

	LocalDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmgw_local_deliveries_total",
			Help: "Events delivered to connections on this instance",
		},
		[]string{"event"},
	)

	PushNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmgw_push_notifications_total",
			Help: "Push notification attempts on the offline path",
		},
		[]string{"result"}, // "ok" 或 "failed"
	)

	// 事件總線指標
	BusEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmgw_bus_events_published_total",
			Help: "Events published to the cross-instance bus",
		},
		[]string{"type"},
	)

	BusEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dmgw_bus_events_received_total",
			Help: "Events received from the cross-instance bus",
		},
		[]string{"type"},
	)

	BusPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dmgw_bus_publish_failures_total",
			Help: "Bus publish attempts that failed (non-fatal)",
		},
	)

	// 連接指標
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmgw_ws_connections",
			Help: "Live WebSocket connections on this instance",
		},
	)

	WSUsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dmgw_ws_users_online",
			Help: "Distinct users with at least one connection on this instance",
		},
	)
)
