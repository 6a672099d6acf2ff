// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	engineOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_engine_operations_total",
		Help: "Shift engine operations by name and result",
	}, []string{"operation", "result"})

	engineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_engine_operation_duration_seconds",
		Help:    "Duration of shift engine operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ledgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_ledger_entries_total",
		Help: "Cash entries appended by type and method",
	}, []string{"type", "method"})

	ledgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_ledger_amount_minor_total",
		Help: "Sum of appended cash entry magnitudes in minor units",
	}, []string{"type", "method"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_notifications_total",
		Help: "Notification deliveries by kind and result",
	}, []string{"kind", "result"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_login_attempts_total",
		Help: "Login attempts by method and result",
	}, []string{"method", "result"})

	openShifts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_open_shifts",
		Help: "Shifts opened minus shifts closed since process start",
	})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveOperation records one engine operation. result is "ok", "conflict",
// "denied", "invalid", "not_found" or "error".
func ObserveOperation(operation, result string, duration time.Duration) {
	engineOperations.WithLabelValues(operation, result).Inc()
	engineDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func ObserveLedgerEntry(entryType, method string, amount int64) {
	ledgerEntries.WithLabelValues(entryType, method).Inc()
	ledgerAmount.WithLabelValues(entryType, method).Add(float64(amount))
}

func ObserveNotification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}

func ObserveLogin(method, result string) {
	loginAttempts.WithLabelValues(method, result).Inc()
}

func ShiftOpened() { openShifts.Inc() }
func ShiftClosed() { openShifts.Dec() }
