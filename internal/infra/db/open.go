package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"startup-radar/internal/pkg/config"
)

// PoolConfig holds connection pool settings. The worker runs at most a
// couple of concurrent passes, so the pool is sized smaller than a
// request-serving API would need.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the default pool settings.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open connects to the database named by DATABASE_URL, applies pool
// settings from the environment and verifies the connection with a ping.
func Open(ctx context.Context) (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("db.Open: DATABASE_URL not set")
	}

	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db.Open: %w", err)
	}

	cfg := poolConfigFromEnv()
	database.SetMaxOpenConns(cfg.MaxOpenConns)
	database.SetMaxIdleConns(cfg.MaxIdleConns)
	database.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	database.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("db.Open: ping: %w", err)
	}

	slog.Info("database connection established",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime))
	return database, nil
}

// poolConfigFromEnv overlays pool settings from the environment onto the
// defaults. Invalid values fall back with a warning, same as the worker
// config.
func poolConfigFromEnv() PoolConfig {
	cfg := DefaultPoolConfig()

	open := config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns,
		func(v int) error { return config.ValidateIntRange(v, 1, 200) })
	idle := config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns,
		func(v int) error { return config.ValidateIntRange(v, 0, 200) })
	lifetime := config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, config.ValidatePositiveDuration)
	idleTime := config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, config.ValidatePositiveDuration)

	for _, result := range []config.ConfigLoadResult{open, idle, lifetime, idleTime} {
		for _, warning := range result.Warnings {
			slog.Warn("database pool fallback applied", slog.String("warning", warning))
		}
	}

	cfg.MaxOpenConns = open.Value.(int)
	cfg.MaxIdleConns = idle.Value.(int)
	cfg.ConnMaxLifetime = lifetime.Value.(time.Duration)
	cfg.ConnMaxIdleTime = idleTime.Value.(time.Duration)
	return cfg
}
