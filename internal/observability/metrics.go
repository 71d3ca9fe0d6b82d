package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	submissionsProcessed *prometheus.CounterVec
	submissionsFlagged   *prometheus.CounterVec
	runDurationSeconds   *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used for pipeline observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradeflow_submissions_processed_total",
			Help: "Total number of submissions processed by the batch pipeline.",
		}, []string{"assignment", "status"})

		submissionsFlagged = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradeflow_submissions_flagged_total",
			Help: "Total number of results routed to human review.",
		}, []string{"assignment"})

		runDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradeflow_run_duration_seconds",
			Help:    "Duration distribution of whole batch runs.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		}, []string{"assignment"})

		prometheus.MustRegister(submissionsProcessed, submissionsFlagged, runDurationSeconds)
	})
}

// SubmissionsProcessed exposes the processed-submission counter.
func SubmissionsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsProcessed
}

// SubmissionsFlagged exposes the flagged-result counter.
func SubmissionsFlagged() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsFlagged
}

// RunDuration exposes the run duration histogram.
func RunDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return runDurationSeconds
}
