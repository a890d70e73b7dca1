// Package main provides a CLI command for running one scrape pass by hand.
// Usage: startup-radar-scrape --source yc [--year 2024] [--force] [--limit N]
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"startup-radar/internal/domain/entity"
	pgRepo "startup-radar/internal/infra/adapter/persistence/postgres"
	"startup-radar/internal/infra/db"
	"startup-radar/internal/infra/source"
	"startup-radar/internal/observability/logging"
	"startup-radar/internal/usecase/reconcile"
)

func main() {
	var (
		sourceName  string
		year        int
		force       bool
		limit       int
		catalogPath string
		timeout     time.Duration
	)

	flag.StringVar(&sourceName, "source", "", "Source name from the catalog (required)")
	flag.IntVar(&year, "year", 0, "Only process batches from this program year (0 = all)")
	flag.BoolVar(&force, "force", false, "Run even if the source was updated recently")
	flag.IntVar(&limit, "limit", 0, "Stop after this many records (0 = unlimited)")
	flag.StringVar(&catalogPath, "catalog", "sources.yaml", "Path to the source catalog file")
	flag.DurationVar(&timeout, "timeout", 1*time.Hour, "Maximum duration for the pass")
	flag.Parse()

	if sourceName == "" {
		fmt.Fprintln(os.Stderr, "Error: --source is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: startup-radar-scrape --source yc [--year 2024] [--force] [--limit N]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  startup-radar-scrape --source yc")
		fmt.Fprintln(os.Stderr, "  startup-radar-scrape --source yc --year 2024 --force")
		fmt.Fprintln(os.Stderr, "  startup-radar-scrape --source sample --limit 5")
		os.Exit(1)
	}

	logger := initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	catalog, err := source.LoadCatalog(catalogPath)
	if err != nil {
		logger.Error("failed to load catalog", slog.Any("error", err))
		os.Exit(1)
	}
	sources, err := catalog.Build(newHTTPClient())
	if err != nil {
		logger.Error("failed to build sources", slog.Any("error", err))
		os.Exit(1)
	}

	startupRepo := pgRepo.NewStartupRepo(database)
	runRepo := pgRepo.NewRunRepo(database)
	svc := reconcile.NewService(startupRepo, runRepo, sources, 0)

	due, err := svc.UpdateDue(ctx, sourceName, force)
	if err != nil {
		logger.Warn("update gate lookup failed, running anyway", slog.Any("error", err))
	}
	if !due {
		fmt.Printf("Source %q was updated within the interval; use --force to run anyway.\n", sourceName)
		return
	}

	run, err := svc.Run(ctx, reconcile.RunOptions{
		Source: sourceName,
		Year:   year,
		Force:  force,
		Limit:  limit,
	})
	if err != nil {
		logger.Error("scrape pass failed", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(run)
	if run.Status == entity.RunStatusFailed {
		os.Exit(1)
	}
}

// printSummary mirrors the run record on stdout the way an operator wants
// to read it after a manual pass.
func printSummary(run *entity.ScraperRun) {
	duration := time.Duration(0)
	if run.EndTime != nil {
		duration = run.EndTime.Sub(run.StartTime).Round(time.Millisecond)
	}
	fmt.Printf("Run #%d (%s) finished: %s\n", run.ID, run.Source, run.Status)
	fmt.Printf("  added:     %d\n", run.StartupsAdded)
	fmt.Printf("  updated:   %d\n", run.StartupsUpdated)
	fmt.Printf("  unchanged: %d\n", run.StartupsUnchanged)
	fmt.Printf("  errors:    %d\n", run.ErrorCount)
	fmt.Printf("  total:     %d in %s\n", run.TotalProcessed, duration)
	if run.ErrorMessage != "" {
		fmt.Printf("  last error: %s\n", run.ErrorMessage)
	}
}

func initLogger() *slog.Logger {
	// テキスト形式の方が手動実行時に読みやすい
	logger := logging.NewTextLogger()
	slog.SetDefault(logger)
	return logger
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
