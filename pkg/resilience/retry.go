package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential delays with proportional jitter. Zero
// fields take the defaults 100ms, 10s, x2 and 10%.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Initial <= 0 {
		b.Initial = 100 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 10 * time.Second
	}
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	if b.Jitter <= 0 {
		b.Jitter = 0.1
	}
	d := float64(b.Initial)
	for i := 1; i < attempt && d < float64(b.Max); i++ {
		d *= b.Multiplier
	}
	d += d * b.Jitter * (2*rand.Float64() - 1)
	return time.Duration(min(max(d, float64(b.Initial)/2), float64(b.Max)))
}

type RetryConfig struct {
	// MaxAttempts counts the first call. Default 3.
	MaxAttempts int
	Backoff     Backoff
	// Retryable filters which errors are retried. Nil retries all.
	Retryable func(err error) bool
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx ends. A non-retryable error is returned unwrapped.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				slog.Debug("retry succeeded", "component", "retry", "operation", name, "attempt", attempt)
			}
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}
		delay := cfg.Backoff.Delay(attempt)
		slog.Warn("attempt failed, retrying",
			"component", "retry",
			"operation", name,
			"attempt", attempt,
			"next_delay", delay,
			"error", err,
		)
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: retry abandoned: %w (last error: %v)", name, ctx.Err(), err)
		}
	}
}
