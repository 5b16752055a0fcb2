// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_fetch_attempts_total",
			Help: "Total number of insights API attempts",
		},
		[]string{"kind", "outcome"},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_fetch_failures_total",
			Help: "Fetches that gave up and surfaced an absent collection",
		},
		[]string{"kind", "reason"},
	)

	ViewResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "view_results_total",
			Help: "View generator outcomes (produced, absent, failed)",
		},
		[]string{"view", "outcome"},
	)

	NarrativeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_requests_total",
			Help: "Language model requests by turn and outcome",
		},
		[]string{"turn", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"route", "status"},
	)
)
