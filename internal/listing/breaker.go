package listing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around repository reads.
type BreakerConfig struct {
	MaxRequests      uint32        `env:"BREAKER_MAX_REQUESTS" envDefault:"5"`
	Interval         time.Duration `env:"BREAKER_INTERVAL" envDefault:"30s"`
	Timeout          time.Duration `env:"BREAKER_TIMEOUT" envDefault:"60s"`
	FailureThreshold float64       `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"0.6"`
	MinRequests      uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`
}

// BreakerRepository short-circuits reads while the wrapped repository keeps
// failing, returning ErrUnavailable without a round trip. Writes pass through.
type BreakerRepository struct {
	Repository
	cb *gobreaker.CircuitBreaker
}

// NewBreakerRepository wraps next with a circuit breaker named name.
func NewBreakerRepository(next Repository, name string, cfg BreakerConfig, log *slog.Logger) *BreakerRepository {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
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
			log.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// A missing row or a caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerRepository{Repository: next, cb: cb}
}

// State reports the current breaker state.
func (r *BreakerRepository) State() gobreaker.State {
	return r.cb.State()
}

func (r *BreakerRepository) List(ctx context.Context, f Filter) ([]Property, error) {
	return execute(r.cb, func() ([]Property, error) {
		return r.Repository.List(ctx, f)
	})
}

func (r *BreakerRepository) Get(ctx context.Context, id uuid.UUID) (Property, error) {
	return execute(r.cb, func() (Property, error) {
		return r.Repository.Get(ctx, id)
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, errors.Join(ErrUnavailable, err)
	}
	v, _ := res.(T)
	return v, err
}
