package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetry_SucceedsAfterThrottle(t *testing.T) {
	attempts := 0
	got, err := retry(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", FromStatus(429, "throttled")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := retry(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		return "", FromStatus(429, "throttled")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, KindThrottled, KindOf(err))
}

func TestRetry_NonThrottledFailsImmediately(t *testing.T) {
	attempts := 0
	_, err := retry(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		return "", FromStatus(403, "denied")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "permission errors must not be retried")
}

func TestRetry_PlainErrorFailsImmediately(t *testing.T) {
	attempts := 0
	_, err := retry(context.Background(), fastRetryConfig(), func() (int, error) {
		attempts++
		return 0, errors.New("network down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := retry(ctx, RetryConfig{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}, func() (string, error) {
		attempts++
		cancel()
		return "", FromStatus(429, "throttled")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetry_DefaultsApplied(t *testing.T) {
	got, err := retry(context.Background(), RetryConfig{}, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}
