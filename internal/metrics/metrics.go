// Package metrics exposes Prometheus collectors for the booking service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Orders created, by initial status.",
		},
		[]string{"status"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order status transitions, by target status and result.",
		},
		[]string{"status", "result"},
	)

	invitationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "invitations",
			Name:      "events_total",
			Help:      "Invitation lifecycle events, by outcome.",
		},
		[]string{"outcome"},
	)

	ledgerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "ledger",
			Name:      "failures_total",
			Help:      "Ledger operations that were skipped after a storage or decode failure.",
		},
		[]string{"op"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		ordersCreated,
		orderTransitions,
		invitationEvents,
		ledgerFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// OrderCreated counts a created order by its initial status label.
func OrderCreated(status string) {
	ordersCreated.WithLabelValues(status).Inc()
}

// OrderTransition counts a status transition attempt.
func OrderTransition(status string, ok bool) {
	result := "applied"
	if !ok {
		result = "rejected"
	}
	orderTransitions.WithLabelValues(status, result).Inc()
}

// Invitation outcomes.
const (
	InvitationCreated   = "created"
	InvitationAccepted  = "accepted"
	InvitationRejected  = "rejected"
	InvitationExpired   = "expired"
	InvitationCancelled = "cancelled"
)

// InvitationEvent counts invitation lifecycle events.
func InvitationEvent(outcome string, n int) {
	invitationEvents.WithLabelValues(outcome).Add(float64(n))
}

// LedgerFailure counts a swallowed ledger failure.
func LedgerFailure(op string) {
	ledgerFailures.WithLabelValues(op).Inc()
}
