package worker

import (
	"startup-radar/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics tracks scheduled pass execution alongside the shared
// configuration metrics.
type WorkerMetrics struct {
	*config.ConfigMetrics

	CronJobRunsTotal *prometheus.CounterVec

	CronJobDurationSeconds prometheus.Histogram

	CronJobRecordsProcessedTotal prometheus.Counter

	CronJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metrics.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of cron job runs by status (success/failure)",
		}, []string{"status"}),

		CronJobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of cron job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600}, // 1s to 1h
		}),

		CronJobRecordsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_records_processed_total",
			Help: "Total number of company records processed across all cron job runs",
		}),

		CronJobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful cron job run",
		}),
	}
}

// RecordJobRun counts one scheduled pass by outcome.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes how long a scheduled pass took.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CronJobDurationSeconds.Observe(seconds)
}

// RecordRecordsProcessed adds to the processed record total.
func (m *WorkerMetrics) RecordRecordsProcessed(count int) {
	m.CronJobRecordsProcessedTotal.Add(float64(count))
}

// RecordLastSuccess marks the time of the last successful pass.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}
