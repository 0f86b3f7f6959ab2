// Package remote guards calls the cart store makes to the catalog and the
// coupon service with circuit breakers.
package remote

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// Failures is the number of consecutive failures that opens the circuit.
	Failures uint32 `default:"5"`
	// OpenFor is how long the circuit stays open before probing again.
	OpenFor time.Duration `default:"10s"`
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32 `default:"1"`
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Failures == 0 {
		c.Failures = 5
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 10 * time.Second
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	return c
}

// newBreaker builds a breaker where errors matched by expected do not count
// as failures.
func newBreaker[T any](name string, cfg BreakerConfig, lg *zap.Logger, expected func(error) bool) *gobreaker.CircuitBreaker[T] {
	cfg = cfg.withDefaults()
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			lg.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || expected(err) ||
				errors.Is(err, context.Canceled)
		},
	})
}
