package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/repository"
)

type RunRepo struct{ db *sql.DB }

func NewRunRepo(db *sql.DB) repository.RunRepository {
	return &RunRepo{db: db}
}

const runColumns = `
id, source, start_time, end_time, status,
startups_added, startups_updated, startups_unchanged,
error_count, total_processed, error_message`

func scanRun(row *sql.Row) (*entity.ScraperRun, error) {
	var run entity.ScraperRun
	var status string
	var errorMessage sql.NullString
	err := row.Scan(
		&run.ID, &run.Source, &run.StartTime, &run.EndTime, &status,
		&run.StartupsAdded, &run.StartupsUpdated, &run.StartupsUnchanged,
		&run.ErrorCount, &run.TotalProcessed, &errorMessage,
	)
	if err != nil {
		return nil, err
	}
	run.Status = entity.RunStatus(status)
	run.ErrorMessage = errorMessage.String
	return &run, nil
}

func (repo *RunRepo) Create(ctx context.Context, source string) (*entity.ScraperRun, error) {
	const query = `
INSERT INTO scraper_runs (source, start_time, status)
VALUES ($1, $2, $3)
RETURNING id`
	run := &entity.ScraperRun{
		Source:    source,
		StartTime: time.Now(),
		Status:    entity.RunStatusRunning,
	}
	if err := repo.db.QueryRowContext(ctx, query,
		run.Source, run.StartTime, string(run.Status),
	).Scan(&run.ID); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return run, nil
}

func (repo *RunRepo) Complete(ctx context.Context, run *entity.ScraperRun) error {
	if !run.Status.Terminal() {
		return fmt.Errorf("Complete: status %q is not terminal: %w", run.Status, entity.ErrInvalidInput)
	}
	const query = `
UPDATE scraper_runs
SET end_time = $1, status = $2,
    startups_added = $3, startups_updated = $4, startups_unchanged = $5,
    error_count = $6, total_processed = $7, error_message = $8
WHERE id = $9`
	var errorMessage sql.NullString
	if run.ErrorMessage != "" {
		errorMessage = sql.NullString{String: run.ErrorMessage, Valid: true}
	}
	res, err := repo.db.ExecContext(ctx, query,
		run.EndTime, string(run.Status),
		run.StartupsAdded, run.StartupsUpdated, run.StartupsUnchanged,
		run.ErrorCount, run.TotalProcessed, errorMessage,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("Complete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Complete: RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Complete: run id=%d: %w", run.ID, entity.ErrNotFound)
	}
	return nil
}

func (repo *RunRepo) Get(ctx context.Context, id int64) (*entity.ScraperRun, error) {
	const query = `
SELECT ` + runColumns + `
FROM scraper_runs
WHERE id = $1
LIMIT 1`
	run, err := scanRun(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return run, nil
}

func (repo *RunRepo) LastSuccessful(ctx context.Context, source string) (*entity.ScraperRun, error) {
	const query = `
SELECT ` + runColumns + `
FROM scraper_runs
WHERE source = $1 AND status = 'success' AND end_time IS NOT NULL
ORDER BY end_time DESC
LIMIT 1`
	run, err := scanRun(repo.db.QueryRowContext(ctx, query, source))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LastSuccessful: %w", err)
	}
	return run, nil
}

func (repo *RunRepo) FindRunning(ctx context.Context, source string) (*entity.ScraperRun, error) {
	const query = `
SELECT ` + runColumns + `
FROM scraper_runs
WHERE source = $1 AND status = 'running'
ORDER BY start_time DESC
LIMIT 1`
	run, err := scanRun(repo.db.QueryRowContext(ctx, query, source))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindRunning: %w", err)
	}
	return run, nil
}
