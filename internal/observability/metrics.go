package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	requestsTotal           *prometheus.CounterVec
	latencySeconds          *prometheus.HistogramVec
	errorsTotal             *prometheus.CounterVec
	joinsTotal              *prometheus.CounterVec
	waitlistPromotionsTotal prometheus.Counter
	invitationsTotal        *prometheus.CounterVec
	confirmationsTotal      prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used for participation observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "participation_requests_total",
			Help: "Total number of participation API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "participation_latency_seconds",
			Help:    "Latency distribution for participation API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "participation_errors_total",
			Help: "Total number of error responses returned by participation endpoints.",
		}, []string{"method", "route", "status"})

		joinsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "participation_joins_total",
			Help: "Join attempts by outcome.",
		}, []string{"result"})

		waitlistPromotionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "participation_waitlist_promotions_total",
			Help: "Waitlist entries promoted into a registered slot.",
		})

		invitationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "participation_invitations_total",
			Help: "Invitation lifecycle events by outcome.",
		}, []string{"result"})

		confirmationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "participation_attendance_confirmations_total",
			Help: "Peer attendance confirmations recorded.",
		})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			joinsTotal,
			waitlistPromotionsTotal,
			invitationsTotal,
			confirmationsTotal,
		)
	})
}

// Requests exposes the counter for participation requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for participation requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for participation error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// Joins exposes the join outcome counter.
func Joins() *prometheus.CounterVec {
	RegisterMetrics()
	return joinsTotal
}

// Promotions exposes the waitlist promotion counter.
func Promotions() prometheus.Counter {
	RegisterMetrics()
	return waitlistPromotionsTotal
}

// Invitations exposes the invitation outcome counter.
func Invitations() *prometheus.CounterVec {
	RegisterMetrics()
	return invitationsTotal
}

// Confirmations exposes the attendance confirmation counter.
func Confirmations() prometheus.Counter {
	RegisterMetrics()
	return confirmationsTotal
}
