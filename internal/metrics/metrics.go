// Package metrics exposes Prometheus collectors for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DosesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dosetrack",
		Name:      "doses_logged_total",
		Help:      "Dose log entries recorded, by status.",
	}, []string{"status"})

	UndosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dosetrack",
		Name:      "undos_total",
		Help:      "Log entries undone.",
	})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dosetrack",
		Name:      "reminders_sent_total",
		Help:      "Reminder notifications dispatched, by channel.",
	}, []string{"channel"})

	RemindersDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dosetrack",
		Name:      "reminders_deduped_total",
		Help:      "Reminder firings suppressed by the delivery dedup key.",
	})

	ReminderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dosetrack",
		Name:      "reminder_failures_total",
		Help:      "Failed reminder deliveries, by channel.",
	}, []string{"channel"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dosetrack",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method and status code.",
	}, []string{"method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dosetrack",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
