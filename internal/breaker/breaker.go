// Package breaker wraps gobreaker with the settings shared by the platform
// client and the interviewer model calls.
package breaker

import (
	"errors"

	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker guards calls returning T. A nil *Breaker runs calls directly and
// reports itself healthy.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// Option adjusts the gobreaker settings before the breaker is built
type Option func(*gobreaker.Settings)

// WithSuccessCheck decides which errors count as failures. Errors for which
// fn returns true leave the failure ratio untouched.
func WithSuccessCheck(fn func(error) bool) Option {
	return func(s *gobreaker.Settings) { s.IsSuccessful = fn }
}

// New builds a breaker named name. It returns nil when cfg disables breaking.
func New[T any](name string, cfg config.CircuitBreakerConfig, logger *appErrors.Logger, opts ...Option) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests == 0 || c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureThreshold
		},
	}
	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		}
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn unless the breaker is open
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Healthy reports whether the breaker is closed
func (b *Breaker[T]) Healthy() bool {
	return b == nil || b.cb.State() == gobreaker.StateClosed
}

// Stats describes the breaker for /health and diagnostics output
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil {
		return map[string]any{"enabled": false}
	}
	counts := b.cb.Counts()
	return map[string]any{
		"enabled": true,
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts": map[string]uint32{
			"requests":              counts.Requests,
			"total_failures":        counts.TotalFailures,
			"consecutive_failures":  counts.ConsecutiveFailures,
			"total_successes":       counts.TotalSuccesses,
			"consecutive_successes": counts.ConsecutiveSuccesses,
		},
	}
}

// IsRejection reports whether err came from an open or saturated breaker
// rather than from the guarded call
func IsRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
