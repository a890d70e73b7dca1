package metrics

import "time"

// RecordPass records a completed scraper pass with its terminal status.
func RecordPass(source, status string, duration time.Duration) {
	ScraperPassesTotal.WithLabelValues(source, status).Inc()
	ScraperPassDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordDecision records one reconciliation decision.
// Decision should be "inserted", "updated" or "unchanged".
func RecordDecision(source, decision string) {
	ReconcileDecisionsTotal.WithLabelValues(source, decision).Inc()
}

// RecordRecordError records a record-local failure.
// Stage should be "normalize" or "persist".
func RecordRecordError(source, stage string) {
	RecordErrorsTotal.WithLabelValues(source, stage).Inc()
}

// UpdateStartupsTotal updates the stored-startup gauge for a source.
// This gauge should be refreshed after each pass.
func UpdateStartupsTotal(source string, count int64) {
	StartupsTotal.WithLabelValues(source).Set(float64(count))
}

// RecordDirectoryFetch records the outcome of one directory page fetch.
// Result should be "success" or "failure".
func RecordDirectoryFetch(source, result string) {
	DirectoryFetchesTotal.WithLabelValues(source, result).Inc()
}
