package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"startup-radar/internal/pkg/config"
)

// startMetricsServer exposes /metrics on METRICS_PORT (default 9090) and
// shuts the server down when the context ends. Liveness and readiness
// probes live on the separate health server, this one is scrape-only.
func startMetricsServer(ctx context.Context, logger *slog.Logger) *http.Server {
	port := metricsPort()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
			return
		}
		logger.Info("metrics server stopped")
	}()

	return server
}

func metricsPort() int {
	result := config.LoadEnvInt("METRICS_PORT", 9090,
		func(v int) error { return config.ValidateIntRange(v, 1024, 65535) })
	for _, warning := range result.Warnings {
		slog.Warn("metrics server fallback applied", slog.String("warning", warning))
	}
	return result.Value.(int)
}
