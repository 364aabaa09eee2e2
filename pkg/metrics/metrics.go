package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the step commit engine
type Metrics struct {
	StepCommits        *prometheus.CounterVec
	StepCommitDuration *prometheus.HistogramVec
	Uploads            *prometheus.CounterVec
	Compensations      *prometheus.CounterVec
	OrphanDeletes      *prometheus.CounterVec
	DroppedCodes       prometheus.Counter
	Notifications      *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates all engine metrics and registers them with reg.
// A nil registerer leaves them unregistered, which tests rely on.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_commits_total",
			Help:      "Total number of wizard step commits",
		}, []string{"step", "status"}),
		StepCommitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_commit_duration_seconds",
			Help:      "Duration of wizard step commits",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"step"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of object storage uploads",
		}, []string{"status"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Total number of compensation actions run after a failed commit",
		}, []string{"result"}),
		OrphanDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_deletes_total",
			Help:      "Total number of orphaned object deletions",
		}, []string{"result"}),
		DroppedCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "taxonomy_dropped_codes_total",
			Help:      "Treatment codes dropped because no catalog entry matched",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_notifications_total",
			Help:      "Feedback notification emails by result",
		}, []string{"result"}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.StepCommits,
			m.StepCommitDuration,
			m.Uploads,
			m.Compensations,
			m.OrphanDeletes,
			m.DroppedCodes,
			m.Notifications,
			m.DatabaseOperations,
		)
	}
	return m
}

// Nop returns unregistered collectors.
func Nop() *Metrics {
	return NewMetrics("test", nil)
}
