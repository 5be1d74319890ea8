// Package retry runs an operation with exponential backoff. The chat
// assistant uses it around rate-limited LLM calls; the message pipeline
// deliberately does not retry.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
)

// Config controls the retry behaviour.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Zero or negative means a single attempt.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt; each further wait
	// doubles, capped at MaxDelay.
	InitialDelay time.Duration
	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration
	// ShouldRetry classifies errors as retryable. When nil, every non-nil
	// error is retried.
	ShouldRetry func(err error) bool
}

// Do calls fn up to cfg.MaxAttempts times with exponential backoff between
// attempts. It stops early when fn succeeds, ShouldRetry rejects the error,
// or ctx is cancelled. The error from the last attempt is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxAttempts {
			slog.Debug("retrying after failed attempt",
				"attempt", attempt, "max", cfg.MaxAttempts,
				"err", lastErr, "delay", delay)

			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(delay):
			}

			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return lastErr
}
