package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryPolicy bounds how often a provider call is attempted.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy makes three attempts with 1s, 2s backoff between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second}
}

// Backoff returns the wait before the given retry (1-based).
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << (retry - 1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts are
// exhausted. Failures are reported as *ProviderError; context errors are returned as is.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, provider, op string, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := p.Backoff(attempt - 1)
			logger.Debug("retrying provider call", "provider", provider, "op", op,
				"attempt", attempt, "backoff", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		made = attempt
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !IsRetryable(lastErr) {
			break
		}
	}

	var pe *ProviderError
	if errors.As(lastErr, &pe) {
		pe.Attempts = made
		return pe
	}
	return &ProviderError{Provider: provider, Op: op, Attempts: made, Err: lastErr}
}
