package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podfree_jobs_created_total",
			Help: "Total number of jobs created.",
		},
		[]string{"type"},
	)

	jobsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "podfree_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status.",
		},
		[]string{"type", "status"},
	)

	jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "podfree_jobs_active",
			Help: "Number of jobs not yet in a terminal status.",
		},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podfree_job_duration_seconds",
			Help:    "Time from job creation to terminal status, in seconds.",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(jobsCreated)
	prometheus.MustRegister(jobsFinished)
	prometheus.MustRegister(jobsActive)
	prometheus.MustRegister(jobDuration)
}
