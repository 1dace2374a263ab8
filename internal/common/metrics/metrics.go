// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculations_total",
			Help: "Total number of calculator runs",
		},
		[]string{"tool", "status"},
	)

	CalculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calculation_duration_seconds",
			Help:    "Duration of a single calculation in seconds",
			Buckets: []float64{.00001, .0001, .001, .01, .1},
		},
		[]string{"tool"},
	)

	PlatformInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_invocations_total",
			Help: "Total number of remote platform calls",
		},
		[]string{"function", "status"},
	)

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Wizard step transitions by direction and result",
		},
		[]string{"wizard", "direction", "result"},
	)

	HistorySaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_saves_total",
			Help: "Saved calculations by backend and status",
		},
		[]string{"backend", "status"},
	)

	BulkActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_actions_total",
			Help: "Bulk document and share actions",
		},
		[]string{"action", "status"},
	)
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status maps an error to the status label value.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
