// Package metrics provides Prometheus metrics for the reed service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes
const (
	OutcomeMatched   = "matched"
	OutcomeCreated   = "created"
	OutcomeAmbiguous = "ambiguous"
	OutcomeOverride  = "override"
	OutcomeNotFound  = "not_found"
)

var (
	// ImportJobsTotal counts import jobs by terminal status
	ImportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reed",
			Subsystem: "import",
			Name:      "jobs_total",
			Help:      "Total number of import jobs by terminal status",
		},
		[]string{"status"},
	)

	// ImportJobsInFlight tracks jobs whose row loop is running
	ImportJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "reed",
			Subsystem: "import",
			Name:      "jobs_in_flight",
			Help:      "Number of import jobs currently running",
		},
	)

	ImportJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reed",
			Subsystem: "import",
			Name:      "job_duration_seconds",
			Help:      "Duration of import jobs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ImportRowsTotal counts processed rows by outcome (added, failed)
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reed",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Total number of import rows by outcome",
		},
		[]string{"outcome"},
	)

	// ResolutionDecisionsTotal counts entity resolution outcomes
	ResolutionDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reed",
			Subsystem: "resolver",
			Name:      "decisions_total",
			Help:      "Total number of entity resolution decisions by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)

	// EventsPublishedTotal counts catalog events written to Kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reed",
			Subsystem: "kafka",
			Name:      "events_published_total",
			Help:      "Total number of catalog events published by type and result",
		},
		[]string{"type", "result"},
	)
)

// RecordDecision counts one resolution outcome for an entity kind
func RecordDecision(entity, outcome string) {
	ResolutionDecisionsTotal.WithLabelValues(entity, outcome).Inc()
}
