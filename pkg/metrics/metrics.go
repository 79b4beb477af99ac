// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClientRequestDuration tracks outbound API call duration.
	ClientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_client_request_duration_seconds",
			Help:    "Outbound API request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "outcome"},
	)

	// ClientRequestsTotal counts outbound API calls by classified outcome.
	ClientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_requests_total",
			Help: "Total outbound API requests",
		},
		[]string{"method", "path", "outcome"},
	)

	// SessionExpiredTotal counts session-expired signals raised by the transport.
	SessionExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_session_expired_total",
			Help: "Session expiry signals raised after a 401 on an authenticated request",
		},
	)

	// OperationsTotal counts store operations by final result.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_operations_total",
			Help: "Store operations by result",
		},
		[]string{"store", "operation", "result"},
	)

	// MessagesSentTotal counts user messages accepted by the server.
	MessagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_client_messages_sent_total",
			Help: "User messages accepted by the server",
		},
	)

	// NotificationsPublishFailures counts outcome notifications that could not be delivered.
	NotificationsPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_client_notification_failures_total",
			Help: "Outcome notifications that failed to publish",
		},
		[]string{"sink"},
	)

	// ServerRequestDuration tracks request duration on the mock server.
	ServerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mockserver_request_duration_seconds",
			Help:    "Mock server request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path", "status"},
	)

	// ServerRequestsTotal counts requests on the mock server.
	ServerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mockserver_requests_total",
			Help: "Total mock server requests",
		},
		[]string{"method", "path", "status"},
	)
)

// RecordClientRequest records metrics for an outbound API call.
func RecordClientRequest(method, path, outcome string, duration float64) {
	ClientRequestDuration.WithLabelValues(method, path, outcome).Observe(duration)
	ClientRequestsTotal.WithLabelValues(method, path, outcome).Inc()
}

// RecordOperation records the final result of a store operation.
func RecordOperation(store, operation string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	OperationsTotal.WithLabelValues(store, operation, result).Inc()
}

// RecordServerRequest records metrics for a mock server request.
func RecordServerRequest(method, path, status string, duration float64) {
	ServerRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	ServerRequestsTotal.WithLabelValues(method, path, status).Inc()
}
