package reconcile

import (
	"context"
	"time"

	"startup-radar/internal/domain/entity"
)

// DefaultUpdateInterval is how long to wait between full passes over a
// source when no explicit interval is configured. Accelerator directories
// change slowly; three months matches the cohort cadence.
const DefaultUpdateInterval = 90 * 24 * time.Hour

// IsUpdateDue decides whether a full pass over a source is due. It is a pure
// function consulted by the scheduler before invoking a pass, not by the
// reconciliation logic itself.
//
// Returns true unconditionally when force is set, when no prior successful
// run exists, or when the interval has elapsed since the last successful
// run finished.
func IsUpdateDue(last *entity.ScraperRun, force bool, interval time.Duration) bool {
	if force {
		return true
	}
	if last == nil || last.EndTime == nil {
		return true
	}
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	return time.Since(*last.EndTime) >= interval
}

// UpdateDue looks up the last successful run for the source and applies
// IsUpdateDue. A lookup failure defaults to running rather than silently
// skipping a due pass; the error is returned alongside so callers can log it.
func (s *Service) UpdateDue(ctx context.Context, source string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	last, err := s.runs.LastSuccessful(ctx, source)
	if err != nil {
		return true, err
	}
	return IsUpdateDue(last, false, s.updateInterval), nil
}
