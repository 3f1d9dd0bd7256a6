package smbkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() *Config {
	return &Config{
		Host: "server",
		RetryPolicy: &RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	cfg := fastRetryConfig()

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return ErrConnectionClosed // retryable
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryNonRetryableStopsImmediately(t *testing.T) {
	cfg := fastRetryConfig()

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		return ErrLoginDenied
	})

	require.ErrorIs(t, err, ErrLoginDenied)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	cfg := fastRetryConfig()

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		return ErrConnectionClosed
	})

	require.ErrorIs(t, err, ErrConnectionClosed)
	assert.Equal(t, cfg.RetryPolicy.MaxAttempts, attempts)
}

func TestWithRetrySingleAttemptPolicy(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.RetryPolicy = &RetryPolicy{MaxAttempts: 1}

	attempts := 0
	err := withRetry(context.Background(), cfg, func() error {
		attempts++
		return ErrConnectionClosed
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetryContextCanceled(t *testing.T) {
	cfg := fastRetryConfig()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, cfg, func() error {
		return ErrConnectionClosed
	})
	require.ErrorIs(t, err, context.Canceled)
}
