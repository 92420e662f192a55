package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig shapes the backoff between attempts. Zero fields take the
// defaults: 3 attempts, 100ms doubling up to 10s, 10% jitter.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	// Retryable reports whether a failure is worth another attempt. Nil
	// retries every error.
	Retryable func(error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	return c
}

// Backoff returns the wait after the given failed attempt, counting from 1.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	c = c.withDefaults()
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	d += d * c.JitterFraction * (2*rand.Float64() - 1)
	switch {
	case d > float64(c.MaxDelay):
		d = float64(c.MaxDelay)
	case d <= 0:
		d = float64(c.InitialDelay)
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, returns an error Retryable rejects, runs
// out of attempts or ctx ends. A rejected error is returned unwrapped.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				slog.DebugContext(ctx, "retry succeeded", "operation", name, "attempt", attempt)
			}
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}

		delay := cfg.Backoff(attempt)
		slog.WarnContext(ctx, "retrying",
			"operation", name,
			"attempt", attempt,
			"error", err,
			"delay", delay,
		)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
}
