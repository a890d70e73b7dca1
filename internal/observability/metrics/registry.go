// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scraper metrics track reconciliation passes and per-record outcomes
var (
	// ScraperPassesTotal counts completed passes by source and terminal status
	ScraperPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_passes_total",
			Help: "Total number of completed scraper passes",
		},
		[]string{"source", "status"},
	)

	// ScraperPassDuration measures pass duration in seconds
	ScraperPassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_pass_duration_seconds",
			Help:    "Scraper pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"source"},
	)

	// ReconcileDecisionsTotal counts per-record decisions by source
	ReconcileDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_decisions_total",
			Help: "Total number of reconciliation decisions",
		},
		[]string{"source", "decision"},
	)

	// RecordErrorsTotal counts record-local failures by source and stage
	RecordErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_record_errors_total",
			Help: "Total number of records that failed normalization or persistence",
		},
		[]string{"source", "stage"},
	)

	// StartupsTotal tracks the number of stored startups per source
	StartupsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "startups_total",
			Help: "Number of startups currently stored",
		},
		[]string{"source"},
	)

	// DirectoryFetchesTotal counts page fetches by the directory adapter
	DirectoryFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_fetches_total",
			Help: "Total number of directory page fetches",
		},
		[]string{"source", "result"},
	)
)
