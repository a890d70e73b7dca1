// Package circuitbreaker guards outbound fetches with sony/gobreaker so a
// broken directory or feed stops costing retries for a while.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config maps onto gobreaker settings plus the trip condition.
type Config struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval resets the closed-state counters.
	Interval time.Duration

	// Timeout is how long the circuit stays open before probing again.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit,
	// evaluated only once MinRequests calls have been counted.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultConfig is the baseline profile for an external call site.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// DirectoryFetchConfig trips late and recovers slowly. Directory sites
// change markup without notice and a tripped circuit should ride out a
// bad deploy on their side rather than flap.
func DirectoryFetchConfig() Config {
	cfg := DefaultConfig("directory-fetch")
	cfg.Interval = 60 * time.Second
	cfg.Timeout = 10 * time.Minute
	cfg.FailureThreshold = 0.8
	return cfg
}

// FeedFetchConfig tolerates more noise, feeds fail transiently all the time.
func FeedFetchConfig() Config {
	cfg := DefaultConfig("feed-fetch")
	cfg.MaxRequests = 5
	cfg.Interval = 60 * time.Second
	cfg.Timeout = 2 * time.Minute
	cfg.FailureThreshold = 0.7
	cfg.MinRequests = 10
	return cfg
}

// CircuitBreaker is a thin wrapper that adds state logging and a stable
// name for metrics.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		name: cfg.Name,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed",
					slog.String("circuit", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		}),
	}
}

// Execute runs fn through the breaker. While the circuit is open it fails
// fast with gobreaker.ErrOpenState.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
