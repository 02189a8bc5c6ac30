package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobRunsTotal, jobDuration) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job runs, labeled by job and outcome.",
		},
		[]string{"job", "status"}, // 'ok', 'error', 'skipped'
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Wall time of scheduled job runs.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"job"},
	)
)

func ObserveJobRun(job, status string, d time.Duration) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
	jobDuration.WithLabelValues(norm(job)).Observe(d.Seconds())
}
