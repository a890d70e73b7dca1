// Package reconcile implements the reconciliation engine: it takes raw
// records from a source adapter, normalizes and fingerprints them, decides
// insert/update/skip against the stored state, and tracks each pass in a
// ScraperRun that is guaranteed to close with a terminal status.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"startup-radar/internal/domain/entity"
	"startup-radar/internal/observability/metrics"
	"startup-radar/internal/repository"
	"startup-radar/internal/usecase/normalize"
)

// Service orchestrates reconciliation passes over configured sources.
type Service struct {
	startups       repository.StartupRepository
	runs           repository.RunRepository
	sources        map[string]RecordSource
	updateInterval time.Duration
}

// NewService creates a reconcile Service.
//
// Parameters:
//   - startups: repository for startup/founder state
//   - runs: repository for scraper run audit records
//   - sources: source adapters keyed by source name
//   - updateInterval: minimum time between full passes per source;
//     zero falls back to DefaultUpdateInterval
func NewService(
	startups repository.StartupRepository,
	runs repository.RunRepository,
	sources map[string]RecordSource,
	updateInterval time.Duration,
) *Service {
	if updateInterval <= 0 {
		updateInterval = DefaultUpdateInterval
	}
	return &Service{
		startups:       startups,
		runs:           runs,
		sources:        sources,
		updateInterval: updateInterval,
	}
}

// RunOptions configure one pass.
type RunOptions struct {
	Source string // required, must exist in the source catalog
	Year   int    // optional batch-year filter, 0 = all
	Force  bool   // bypass the update gate (checked by the caller)
	Limit  int    // optional cap on records processed, 0 = unlimited
}

// RunStats accumulates the per-record outcomes of one pass.
type RunStats struct {
	Added     int
	Updated   int
	Unchanged int
	Errors    int
	Processed int
	Duration  time.Duration
}

// Run executes one full pass over the configured source: fetch each raw
// record, normalize, fingerprint and reconcile it, then close the run
// record with a terminal status.
//
// Error containment: per-record failures (normalization, persistence) are
// counted and the pass continues. Only a source failure before the first
// record, or an abort mid-stream, stops the pass -- and even then the run
// record is closed, on an uncancelable context, on every exit path
// including panics and external cancellation.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*entity.ScraperRun, error) {
	src, ok := s.sources[opts.Source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, opts.Source)
	}

	// 同一ソースの多重実行を防ぐ（advisory check）
	if running, err := s.runs.FindRunning(ctx, opts.Source); err != nil {
		return nil, fmt.Errorf("check running pass: %w", err)
	} else if running != nil {
		return nil, fmt.Errorf("%w: run #%d started at %s",
			ErrPassInProgress, running.ID, running.StartTime.Format(time.RFC3339))
	}

	run, err := s.runs.Create(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("create scraper run: %w", err)
	}

	logger := slog.Default().With(
		slog.String("pass_id", uuid.NewString()),
		slog.String("source", opts.Source),
		slog.Int64("run_id", run.ID),
	)
	logger.Info("pass started",
		slog.Int("year", opts.Year),
		slog.Bool("force", opts.Force),
		slog.Int("limit", opts.Limit))

	start := time.Now()
	stats := &RunStats{}
	var passErr error

	defer func() {
		stats.Duration = time.Since(start)
		if r := recover(); r != nil {
			passErr = fmt.Errorf("pass panicked: %v", r)
			s.closeRun(ctx, logger, run, stats, passErr)
			panic(r)
		}
		s.closeRun(ctx, logger, run, stats, passErr)
	}()

	it, err := src.Open(ctx, FetchOptions{Year: opts.Year, Limit: opts.Limit})
	if err != nil {
		passErr = fmt.Errorf("open source %s: %w", opts.Source, err)
		return run, passErr
	}
	defer func() { _ = it.Close() }()

	for {
		if opts.Limit > 0 && stats.Processed >= opts.Limit {
			logger.Info("record limit reached", slog.Int("limit", opts.Limit))
			break
		}

		rec, err := it.Next(ctx)
		if errors.Is(err, ErrEndOfRecords) {
			break
		}
		if err != nil {
			// fetch broke mid-stream: abort but keep the work already done
			passErr = fmt.Errorf("fetch record: %w", err)
			break
		}

		s.processRecord(ctx, logger, opts.Source, rec, stats)
	}

	return run, passErr
}

// processRecord routes one raw record through normalization and
// reconciliation. Failures are record-local: counted, logged, never
// propagated past this boundary.
func (s *Service) processRecord(ctx context.Context, logger *slog.Logger, source string, raw *normalize.RawRecord, stats *RunStats) {
	stats.Processed++

	rec, err := normalize.Record(raw)
	if err != nil {
		stats.Errors++
		metrics.RecordRecordError(source, "normalize")
		logger.Warn("record failed normalization, skipping",
			slog.String("blob", truncate(raw.Text, 120)),
			slog.Any("error", err))
		return
	}

	decision, err := s.reconcileOne(ctx, source, rec)
	if err != nil {
		stats.Errors++
		metrics.RecordRecordError(source, "persist")
		logger.Warn("record failed persistence, skipping",
			slog.String("name", rec.Name),
			slog.String("external_id", rec.ExternalID),
			slog.Any("error", err))
		return
	}

	metrics.RecordDecision(source, decision.String())
	switch decision {
	case DecisionInserted:
		stats.Added++
		logger.Info("startup created", slog.String("name", rec.Name))
	case DecisionUpdated:
		stats.Updated++
		logger.Info("startup updated", slog.String("name", rec.Name))
	default:
		stats.Unchanged++
		logger.Debug("startup unchanged", slog.String("name", rec.Name))
	}
}

// closeRun writes the terminal status and counters to the run record. It
// runs on a context detached from cancellation so an aborted pass still
// never leaves a run stuck in status running.
func (s *Service) closeRun(ctx context.Context, logger *slog.Logger, run *entity.ScraperRun, stats *RunStats, passErr error) {
	now := time.Now()
	run.EndTime = &now
	run.StartupsAdded = stats.Added
	run.StartupsUpdated = stats.Updated
	run.StartupsUnchanged = stats.Unchanged
	run.ErrorCount = stats.Errors
	run.TotalProcessed = stats.Processed
	run.Status = finalStatus(stats, passErr)
	if passErr != nil {
		run.ErrorMessage = passErr.Error()
	}

	safeCtx := context.WithoutCancel(ctx)
	if err := s.runs.Complete(safeCtx, run); err != nil {
		logger.Error("failed to close scraper run", slog.Any("error", err))
	}

	// 保存済み件数ゲージをパスごとに更新する
	if count, err := s.startups.CountBySource(safeCtx, run.Source); err != nil {
		logger.Warn("failed to refresh stored startup count", slog.Any("error", err))
	} else {
		metrics.UpdateStartupsTotal(run.Source, count)
	}

	metrics.RecordPass(run.Source, string(run.Status), stats.Duration)
	logger.Info("pass completed",
		slog.String("status", string(run.Status)),
		slog.Int("processed", stats.Processed),
		slog.Int("added", stats.Added),
		slog.Int("updated", stats.Updated),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("errors", stats.Errors),
		slog.Duration("duration", stats.Duration),
	)
}

// finalStatus classifies a finished pass:
// success when nothing failed, partial_failure when at least one record
// made it through, failed when no record could be processed at all.
func finalStatus(stats *RunStats, passErr error) entity.RunStatus {
	succeeded := stats.Added + stats.Updated + stats.Unchanged
	switch {
	case passErr == nil && stats.Errors == 0:
		return entity.RunStatusSuccess
	case succeeded > 0:
		return entity.RunStatusPartialFailure
	default:
		return entity.RunStatusFailed
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
