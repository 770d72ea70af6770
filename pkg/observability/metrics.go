package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ghostdriver",
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live WebDriver sessions",
		},
	)

	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostdriver",
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Total number of session creation attempts",
		},
		[]string{"result"}, // "success" or "failure"
	)

	SessionsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostdriver",
			Subsystem: "session",
			Name:      "deleted_total",
			Help:      "Total number of sessions destroyed",
		},
		[]string{"reason"}, // "client", "fatal", "shutdown"
	)

	// Command metrics
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostdriver",
			Subsystem: "command",
			Name:      "total",
			Help:      "Total number of WebDriver commands handled",
		},
		[]string{"command", "outcome"},
	)

	CommandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ghostdriver",
			Subsystem: "command",
			Name:      "latency_seconds",
			Help:      "WebDriver command latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"command"},
	)

	// HTTP metrics
	HTTPResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ghostdriver",
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "HTTP responses by status code",
		},
		[]string{"code"},
	)

	InternalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ghostdriver",
			Subsystem: "http",
			Name:      "internal_errors_total",
			Help:      "Errors that fell outside the protocol taxonomy, including panics",
		},
	)
)
