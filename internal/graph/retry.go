package graph

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures exponential backoff for throttled directory calls.
type RetryConfig struct {
	MaxAttempts int           // maximum number of attempts (default: DefaultMaxRetryAttempts)
	BaseDelay   time.Duration // initial delay between retries (default: DefaultRetryBaseDelay)
	MaxDelay    time.Duration // maximum delay cap (default: DefaultRetryMaxDelay)
}

const (
	DefaultMaxRetryAttempts = 3
	DefaultRetryBaseDelay   = 1 * time.Second
	DefaultRetryMaxDelay    = 30 * time.Second
)

// DefaultRetryConfig returns the defaults used by the HTTP transport.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxRetryAttempts,
		BaseDelay:   DefaultRetryBaseDelay,
		MaxDelay:    DefaultRetryMaxDelay,
	}
}

// retry executes fn, retrying only throttled failures (429/503) with
// exponential backoff and jitter. Other error kinds are returned as-is:
// a permission or validation failure does not get better by waiting.
func retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxRetryAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryMaxDelay
	}

	var lastErr error
	var zero T
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if KindOf(err) != KindThrottled {
			return zero, err
		}
		lastErr = err

		if attempt < cfg.MaxAttempts-1 {
			select {
			case <-time.After(backoffDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// backoffDelay computes delay with exponential backoff and jitter.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max {
		delay = max
	}
	// ±25% jitter, no need for crypto/rand here
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	return delay/2 + jitter
}
