package worker

import (
	"fmt"
	"log/slog"
	"time"

	"startup-radar/internal/pkg/config"
	"startup-radar/internal/usecase/reconcile"
)

// WorkerConfig holds the configuration for the scraper worker.
// It controls when passes run, how long a pass may take, how often a source
// is re-harvested in full, and where the worker exposes its health endpoint.
//
// Every field has a default and a validation rule; loading is fail-open, so
// the worker always starts with a usable configuration even when the
// environment carries garbage.
type WorkerConfig struct {
	// CronSchedule is the cron expression for scheduled passes.
	// Format: "minute hour day month weekday", e.g. "0 6 * * *".
	// Default: "0 6 * * 1" (every Monday at 6:00)
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Default: "UTC"
	Timezone string

	// ScrapeTimeout is the maximum duration for one pass over one source.
	// Default: 1 hour
	ScrapeTimeout time.Duration

	// UpdateInterval is the minimum age of the last successful run before a
	// scheduled pass re-harvests a source in full.
	// Default: 90 days
	UpdateInterval time.Duration

	// HealthPort is the port for the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// CatalogPath is the path to the YAML source catalog.
	// Default: "sources.yaml"
	CatalogPath string
}

// DefaultConfig returns a WorkerConfig with production defaults.
// Directory contents move slowly, so the schedule is weekly and the full
// re-harvest interval is three months.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:   "0 6 * * 1",
		Timezone:       "UTC",
		ScrapeTimeout:  1 * time.Hour,
		UpdateInterval: reconcile.DefaultUpdateInterval,
		HealthPort:     9091,
		CatalogPath:    "sources.yaml",
	}
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.ScrapeTimeout); err != nil {
		errs = append(errs, fmt.Errorf("scrape timeout: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.UpdateInterval); err != nil {
		errs = append(errs, fmt.Errorf("update interval: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if c.CatalogPath == "" {
		errs = append(errs, fmt.Errorf("catalog path: cannot be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to defaults on failure.
//
// Environment variables:
//   - SCRAPE_CRON: cron expression (default: "0 6 * * 1")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - SCRAPE_TIMEOUT: duration string, 1m-6h (default: "1h")
//   - UPDATE_INTERVAL: duration string, 24h-1 year (default: 90 days)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - SOURCE_CATALOG: catalog file path (default: "sources.yaml")
//
// The error return is always nil; it exists so call sites read naturally.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	applyFallback := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field)
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("SCRAPE_CRON", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	applyFallback("cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	applyFallback("timezone", result)

	result = config.LoadEnvDuration("SCRAPE_TIMEOUT", cfg.ScrapeTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 6*time.Hour)
	})
	cfg.ScrapeTimeout = result.Value.(time.Duration)
	applyFallback("scrape_timeout", result)

	result = config.LoadEnvDuration("UPDATE_INTERVAL", cfg.UpdateInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 24*time.Hour, 365*24*time.Hour)
	})
	cfg.UpdateInterval = result.Value.(time.Duration)
	applyFallback("update_interval", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	applyFallback("health_port", result)

	cfg.CatalogPath = config.LoadEnvString("SOURCE_CATALOG", cfg.CatalogPath)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
