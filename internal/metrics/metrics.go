package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Execution metrics
	SwapExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapexec_executions_total",
			Help: "Total number of swap executions by terminal result",
		},
		[]string{"result", "category"},
	)

	SwapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapexec_execution_duration_seconds",
		Help:    "End-to-end swap execution duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 180},
	})

	// Attempt metrics
	SwapAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapexec_attempts_total",
			Help: "Total number of swap attempts by outcome and failing stage",
		},
		[]string{"outcome", "stage", "kind"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapexec_stage_duration_seconds",
			Help:    "Duration of each execution stage in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	BackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapexec_backoff_seconds",
		Help:    "Backoff waited before a retry in seconds",
		Buckets: []float64{0.5, 1, 1.5, 2, 3, 4, 5},
	})

	SigningFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapexec_signing_fallbacks_total",
		Help: "Total number of attempts submitted unsigned for sign-and-send",
	})

	LookupTablesMissing = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapexec_lookup_tables_missing_total",
		Help: "Total number of requested lookup tables that could not be resolved",
	})

	ConfirmationPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapexec_confirmation_poll_errors_total",
		Help: "Total number of signature status polls that failed while waiting for confirmation",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapexec_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)
)
