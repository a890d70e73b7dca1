package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	pgRepo "startup-radar/internal/infra/adapter/persistence/postgres"
	"startup-radar/internal/infra/db"
	"startup-radar/internal/infra/source"
	workerPkg "startup-radar/internal/infra/worker"
	"startup-radar/internal/observability/logging"
	"startup-radar/internal/usecase/reconcile"
)

func main() {
	logger := initLogger()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("scrape_timeout", workerConfig.ScrapeTimeout),
		slog.Duration("update_interval", workerConfig.UpdateInterval),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.String("catalog", workerConfig.CatalogPath))

	svc, sourceNames, err := setupReconcileService(logger, database, workerConfig)
	if err != nil {
		logger.Error("failed to set up reconcile service", slog.Any("error", err))
		os.Exit(1)
	}

	// Start metrics HTTP server
	startMetricsServer(ctx, logger)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startCronWorker(ctx, logger, svc, sourceNames, workerConfig, workerMetrics, healthServer)
}

// initLogger initializes the process-wide structured logger.
// Log level is controlled via the LOG_LEVEL environment variable.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies migrations.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// setupReconcileService wires repositories and the source catalog into the
// reconcile service. Returns the configured source names for scheduling.
func setupReconcileService(logger *slog.Logger, database *sql.DB, cfg *workerPkg.WorkerConfig) (*reconcile.Service, []string, error) {
	catalog, err := source.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	sources, err := catalog.Build(createScraperHTTPClient())
	if err != nil {
		return nil, nil, fmt.Errorf("build sources: %w", err)
	}

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	logger.Info("source catalog loaded", slog.Int("sources", len(names)))

	startupRepo := pgRepo.NewStartupRepo(database)
	runRepo := pgRepo.NewRunRepo(database)
	svc := reconcile.NewService(startupRepo, runRepo, sources, cfg.UpdateInterval)
	return svc, names, nil
}

// createScraperHTTPClient creates an HTTP client for directory scraping.
// TLS 1.2+ is enforced for security.
func createScraperHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}

// startCronWorker starts the cron scheduler and runs scrape passes periodically.
func startCronWorker(ctx context.Context, logger *slog.Logger, svc *reconcile.Service, sourceNames []string, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runScrapeJob(ctx, logger, svc, sourceNames, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping scheduler")
	<-c.Stop().Done()
	logger.Info("worker stopped")
}

// runScrapeJob executes one scheduled pass over every due source.
// Sources run concurrently but bounded, each under its own timeout.
func runScrapeJob(ctx context.Context, logger *slog.Logger, svc *reconcile.Service, sourceNames []string, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("scrape job started", slog.Int("sources", len(sourceNames)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	var processed atomic.Int64
	for _, name := range sourceNames {
		name := name
		g.Go(func() error {
			due, err := svc.UpdateDue(gctx, name, false)
			if err != nil {
				logger.Warn("update gate lookup failed, running anyway",
					slog.String("source", name), slog.Any("error", err))
			}
			if !due {
				logger.Info("source not due for update, skipping", slog.String("source", name))
				return nil
			}

			passCtx, cancel := context.WithTimeout(gctx, cfg.ScrapeTimeout)
			defer cancel()

			run, err := svc.Run(passCtx, reconcile.RunOptions{Source: name})
			if err != nil {
				if errors.Is(err, reconcile.ErrPassInProgress) {
					logger.Warn("pass already in progress, skipping", slog.String("source", name))
					return nil
				}
				logger.Error("scrape pass failed", slog.String("source", name), slog.Any("error", err))
				return err
			}
			metrics.RecordRecordsProcessed(run.TotalProcessed)
			processed.Add(int64(run.TotalProcessed))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		logger.Error("scrape job finished with errors", slog.Any("error", err))
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordLastSuccess()
	logger.Info("scrape job completed",
		slog.Int("sources", len(sourceNames)),
		slog.Int64("records", processed.Load()),
		slog.Duration("duration", time.Since(startTime)))
}
