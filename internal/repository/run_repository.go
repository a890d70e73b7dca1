package repository

import (
	"context"

	"startup-radar/internal/domain/entity"
)

// RunRepository persists scraper run audit records.
type RunRepository interface {
	// Create opens a new run for the source with status running and
	// start time now. The generated ID is written back to the entity.
	Create(ctx context.Context, source string) (*entity.ScraperRun, error)
	// Complete closes a run: end time, terminal status, counters and the
	// optional error summary are taken from the entity.
	Complete(ctx context.Context, run *entity.ScraperRun) error
	// Get returns a run by ID, or (nil, nil) when it does not exist.
	Get(ctx context.Context, id int64) (*entity.ScraperRun, error)
	// LastSuccessful returns the most recently completed successful run
	// for the source, or (nil, nil) when there is none.
	LastSuccessful(ctx context.Context, source string) (*entity.ScraperRun, error)
	// FindRunning returns a run for the source that is still in status
	// running, or (nil, nil) when no pass is in flight. Used as the
	// advisory overlap guard before starting a pass.
	FindRunning(ctx context.Context, source string) (*entity.ScraperRun, error)
}
