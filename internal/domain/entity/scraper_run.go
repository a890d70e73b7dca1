package entity

import "time"

// RunStatus represents the state of one scraper pass.
type RunStatus string

// Run statuses. Every run that is opened must eventually reach one of the
// terminal statuses, even when the pass aborts partway.
const (
	RunStatusRunning        RunStatus = "running"
	RunStatusSuccess        RunStatus = "success"
	RunStatusPartialFailure RunStatus = "partial_failure"
	RunStatusFailed         RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusPartialFailure || s == RunStatusFailed
}

// ScraperRun is the audit record for one reconciliation pass over a source.
// It is created when the pass starts and closed with a terminal status,
// counters and an optional error summary when the pass ends.
type ScraperRun struct {
	ID        int64
	Source    string
	StartTime time.Time
	EndTime   *time.Time
	Status    RunStatus

	StartupsAdded     int
	StartupsUpdated   int
	StartupsUnchanged int
	ErrorCount        int
	TotalProcessed    int

	ErrorMessage string
}
