// Package retry wraps flaky operations, mostly outbound fetches, with
// exponential backoff. Classification lives here too so callers can share
// one notion of what counts as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// HTTPError carries a status code through the retry classifier. Fetch
// helpers return it for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Config controls the backoff schedule.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Multiplier grows the delay between attempts.
	Multiplier float64

	// JitterFraction spreads retries out, 0 disables jitter.
	JitterFraction float64
}

// DefaultConfig is the schedule used when no profile fits.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// DirectoryFetchConfig keeps directory page retries short so a slow batch
// page does not stall the whole pass.
func DirectoryFetchConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxDelay = 10 * time.Second
	return cfg
}

// FeedFetchConfig retries feeds harder, a missed poll costs a week.
func FeedFetchConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 5
	return cfg
}

// DBConfig is tuned for transient connection errors, fast and short.
func DBConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   100 * time.Millisecond,
		MaxDelay:       1 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// WithBackoff runs op until it succeeds, returns a non-retryable error,
// the context ends, or the schedule is exhausted. The last error is
// wrapped so callers can still errors.Is against it.
func WithBackoff(ctx context.Context, cfg Config, op func() error) error {
	wait := cfg.InitialDelay

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		if !IsRetryable(lastErr) {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			return lastErr
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
		}

		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", wait),
			slog.Any("error", lastErr))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		wait = nextDelay(wait, cfg)
	}
}

func nextDelay(current time.Duration, cfg Config) time.Duration {
	next := time.Duration(float64(current) * cfg.Multiplier)
	if next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return addJitter(next, cfg.JitterFraction)
}

// IsRetryable reports whether an error looks transient. Context errors
// never are, the caller already gave up.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode >= 500:
			return true
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return true
		case httpErr.StatusCode == http.StatusRequestTimeout:
			return true
		default:
			// 4xx はこちらの問題なので再試行しない
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ETIMEDOUT,
		syscall.ENETUNREACH,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	return false
}

// addJitter pushes the delay up by at most fraction*duration.
func addJitter(duration time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return duration
	}
	if fraction > 1.0 {
		fraction = 1.0
	}
	// #nosec G404 -- backoff jitter does not need crypto randomness
	return duration + time.Duration(rand.Float64()*float64(duration)*fraction)
}
