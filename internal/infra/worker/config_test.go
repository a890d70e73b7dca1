package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// globalTestMetrics is a shared metrics instance for tests to avoid
// duplicate Prometheus registration errors. In production, metrics are
// created once at startup, so this simulates that behavior.
var globalTestMetrics = NewWorkerMetrics()

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CronSchedule != "0 6 * * 1" {
		t.Errorf("CronSchedule = %q", cfg.CronSchedule)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.ScrapeTimeout != 1*time.Hour {
		t.Errorf("ScrapeTimeout = %v", cfg.ScrapeTimeout)
	}
	if cfg.UpdateInterval != 90*24*time.Hour {
		t.Errorf("UpdateInterval = %v", cfg.UpdateInterval)
	}
	if cfg.HealthPort != 9091 {
		t.Errorf("HealthPort = %d", cfg.HealthPort)
	}
	if cfg.CatalogPath != "sources.yaml" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate, got: %v", err)
	}
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WorkerConfig)
		valid  bool
	}{
		{"defaults", func(*WorkerConfig) {}, true},
		{"invalid cron", func(c *WorkerConfig) { c.CronSchedule = "not a cron" }, false},
		{"empty cron", func(c *WorkerConfig) { c.CronSchedule = "" }, false},
		{"invalid timezone", func(c *WorkerConfig) { c.Timezone = "Invalid/Zone" }, false},
		{"zero scrape timeout", func(c *WorkerConfig) { c.ScrapeTimeout = 0 }, false},
		{"negative update interval", func(c *WorkerConfig) { c.UpdateInterval = -time.Hour }, false},
		{"port below range", func(c *WorkerConfig) { c.HealthPort = 1023 }, false},
		{"port above range", func(c *WorkerConfig) { c.HealthPort = 65536 }, false},
		{"port at lower bound", func(c *WorkerConfig) { c.HealthPort = 1024 }, true},
		{"port at upper bound", func(c *WorkerConfig) { c.HealthPort = 65535 }, true},
		{"empty catalog path", func(c *WorkerConfig) { c.CatalogPath = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWorkerConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := WorkerConfig{
		CronSchedule: "invalid",
		Timezone:     "Invalid/Zone",
		HealthPort:   100,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors for multiple invalid fields")
	}
	// 全フィールドのエラーがまとめて返る
	for _, want := range []string{"cron schedule", "timezone", "health port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadConfigFromEnv_AllEnvVarsValid(t *testing.T) {
	t.Setenv("SCRAPE_CRON", "30 4 * * *")
	t.Setenv("WORKER_TIMEZONE", "America/New_York")
	t.Setenv("SCRAPE_TIMEOUT", "2h")
	t.Setenv("UPDATE_INTERVAL", "720h")
	t.Setenv("WORKER_HEALTH_PORT", "8080")
	t.Setenv("SOURCE_CATALOG", "/etc/startup-radar/sources.yaml")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv err=%v", err)
	}

	if cfg.CronSchedule != "30 4 * * *" {
		t.Errorf("CronSchedule = %q", cfg.CronSchedule)
	}
	if cfg.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
	if cfg.ScrapeTimeout != 2*time.Hour {
		t.Errorf("ScrapeTimeout = %v", cfg.ScrapeTimeout)
	}
	if cfg.UpdateInterval != 720*time.Hour {
		t.Errorf("UpdateInterval = %v", cfg.UpdateInterval)
	}
	if cfg.HealthPort != 8080 {
		t.Errorf("HealthPort = %d", cfg.HealthPort)
	}
	if cfg.CatalogPath != "/etc/startup-radar/sources.yaml" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}

	if buf.Len() > 0 {
		t.Errorf("expected no fallback warnings, got: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_MissingEnvVarsUseDefaults(t *testing.T) {
	for _, key := range []string{
		"SCRAPE_CRON", "WORKER_TIMEZONE", "SCRAPE_TIMEOUT",
		"UPDATE_INTERVAL", "WORKER_HEALTH_PORT", "SOURCE_CATALOG",
	} {
		t.Setenv(key, "")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv err=%v", err)
	}

	defaults := DefaultConfig()
	if *cfg != defaults {
		t.Errorf("config = %+v, want defaults %+v", *cfg, defaults)
	}
	// 未設定はフォールバックではないので警告なし
	if strings.Contains(buf.String(), "Configuration fallback applied") {
		t.Errorf("unexpected fallback warning: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCRAPE_CRON", "not a cron")
	t.Setenv("WORKER_TIMEZONE", "Invalid/Zone")
	t.Setenv("SCRAPE_TIMEOUT", "10h") // 上限6hを超過
	t.Setenv("UPDATE_INTERVAL", "1h") // 下限24h未満
	t.Setenv("WORKER_HEALTH_PORT", "80")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv err=%v", err)
	}

	defaults := DefaultConfig()
	if *cfg != defaults {
		t.Errorf("config = %+v, want defaults %+v", *cfg, defaults)
	}

	warnings := strings.Count(buf.String(), "Configuration fallback applied")
	if warnings != 5 {
		t.Errorf("fallback warnings = %d, want 5:\n%s", warnings, buf.String())
	}
}

func TestLoadConfigFromEnv_PartiallyValid(t *testing.T) {
	t.Setenv("SCRAPE_CRON", "15 3 * * 2")
	t.Setenv("WORKER_TIMEZONE", "Invalid/Zone")
	t.Setenv("WORKER_HEALTH_PORT", "9200")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv err=%v", err)
	}

	if cfg.CronSchedule != "15 3 * * 2" || cfg.HealthPort != 9200 {
		t.Errorf("valid env values not applied: %+v", cfg)
	}
	if cfg.Timezone != DefaultConfig().Timezone {
		t.Errorf("Timezone = %q, want default", cfg.Timezone)
	}

	warnings := strings.Count(buf.String(), "Configuration fallback applied")
	if warnings != 1 {
		t.Errorf("fallback warnings = %d, want 1", warnings)
	}
}
