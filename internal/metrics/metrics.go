// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "circulink_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_response_cache_total",
			Help: "Response cache lookups by result (hit, miss, bypass)",
		},
		[]string{"result"},
	)

	// Reservations
	ReservationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_reservation_requests_total",
			Help: "Reservation requests by outcome; rejections carry their reason code",
		},
		[]string{"outcome"},
	)

	SweepCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circulink_sweep_completed_total",
			Help: "Reservations moved to Completed by the expiry sweep",
		},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_sweep_runs_total",
			Help: "Expiry sweep runs by result",
		},
		[]string{"result"},
	)

	// Notifications
	NotificationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_notifications_stored_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)

	NotificationEmitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circulink_notification_emit_failures_total",
			Help: "Real-time emits that failed after the notification was stored",
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circulink_websocket_connections_active",
			Help: "Number of connected WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circulink_websocket_messages_sent_total",
			Help: "Messages queued to WebSocket clients",
		},
	)

	WSDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circulink_websocket_clients_dropped_total",
			Help: "Clients disconnected because their send buffer was full",
		},
	)

	// Audit
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_audit_events_total",
			Help: "Audit events by stage (published, stored, failed)",
		},
		[]string{"stage"},
	)

	// Mail
	MailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulink_mail_sent_total",
			Help: "Outgoing mail by result",
		},
		[]string{"kind", "result"},
	)
)

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordReservation counts a reservation attempt.  outcome is "created",
// "error" or a rejection reason code.
func RecordReservation(outcome string) {
	ReservationOutcomes.WithLabelValues(outcome).Inc()
}

// RecordSweep counts one sweep run.
func RecordSweep(completed int64, err error) {
	if err != nil {
		SweepRuns.WithLabelValues("error").Inc()
		return
	}
	SweepRuns.WithLabelValues("ok").Inc()
	SweepCompleted.Add(float64(completed))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordMail counts one outgoing mail.
func RecordMail(kind string, err error) {
	MailSent.WithLabelValues(kind, result(err)).Inc()
}
