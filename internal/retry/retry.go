// Package retry provides the bounded linear-backoff executor every outbound
// call in the pipeline goes through.
package retry

import (
	"context"
	"time"
)

// Config bounds a retried operation. Attempts counts total executions, not
// re-executions; Delay is the base wait, multiplied by the 1-based attempt
// index between failures (linear backoff, no jitter).
type Config struct {
	Attempts int
	Delay    time.Duration
}

// DefaultConfig mirrors the poller's stock settings: two attempts, 800ms base.
func DefaultConfig() Config {
	return Config{Attempts: 2, Delay: 800 * time.Millisecond}
}

func (c Config) normalized() Config {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	return c
}

// Do runs fn up to cfg.Attempts times and returns the last error once the
// budget is exhausted. The wait between attempt i and i+1 is cfg.Delay * (i+1).
// Callers must not wrap operations whose failure is a permanent rejection.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg = cfg.normalized()
	var last error
	for i := 0; i < cfg.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = fn(); last == nil {
			return nil
		}
		if i < cfg.Attempts-1 {
			if err := sleep(ctx, cfg.Delay*time.Duration(i+1)); err != nil {
				return err
			}
		}
	}
	return last
}

// DoValue is Do for operations that produce a value. On exhaustion the zero
// value is returned alongside the last error.
func DoValue[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, cfg, func() error {
		var inner error
		out, inner = fn()
		return inner
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
