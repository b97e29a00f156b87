// Package metrics provides Prometheus metrics for the payment-order service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionsTotal counts extraction attempts by outcome (ok, cached, failed, declined)
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payorders",
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Total number of document extractions by outcome",
		},
		[]string{"outcome"},
	)

	// ExtractionDuration tracks time spent waiting on the extraction service
	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "payorders",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Duration of document extractions in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		},
	)

	// FieldsMerged tracks how many form fields a merge filled
	FieldsMerged = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "payorders",
			Subsystem: "merge",
			Name:      "fields_populated",
			Help:      "Number of form fields populated per merge",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
	)

	// EntityMisses counts extracted entity names that matched nothing
	EntityMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payorders",
			Subsystem: "merge",
			Name:      "entity_misses_total",
			Help:      "Extracted entity names with no reference match",
		},
		[]string{"field"},
	)

	// DiscrepanciesTotal counts discrepancies found at submit time by field
	DiscrepanciesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payorders",
			Subsystem: "consistency",
			Name:      "discrepancies_total",
			Help:      "Discrepancies between submitted forms and their documents",
		},
		[]string{"field"},
	)

	// SubmissionsTotal counts submit attempts by result (accepted, incomplete, inconsistent, error)
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "payorders",
			Subsystem: "session",
			Name:      "submissions_total",
			Help:      "Total number of form submissions by result",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks open form sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "payorders",
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of open form sessions",
		},
	)

	// SessionsExpired counts sessions removed by the sweep
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "payorders",
			Subsystem: "session",
			Name:      "expired_total",
			Help:      "Form sessions removed after their TTL",
		},
	)
)
