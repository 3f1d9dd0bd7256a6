package smbkit

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for connection establishment. The
// protocol engines never retry anything themselves; only dialing and the
// initial handshake are eligible. The defaults noted below are the values
// used when Config.RetryPolicy is nil; zero fields of a supplied policy
// are used as they are.
type RetryPolicy struct {
	MaxAttempts  int           // Maximum number of attempts (default: 3)
	InitialDelay time.Duration // Initial delay between retries (default: 100ms)
	MaxDelay     time.Duration // Maximum delay between retries (default: 5s)
	Multiplier   float64       // Backoff multiplier (default: 2.0)
}

// defaultRetryPolicy is the default retry policy.
var defaultRetryPolicy = &RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
}

// withRetry executes an operation with exponential backoff. Protocol
// failures (denied logins, missing files, malformed frames) abort
// immediately; only transient network errors are retried.
func withRetry(ctx context.Context, cfg *Config, operation func() error) error {
	policy := cfg.RetryPolicy
	if policy == nil {
		policy = defaultRetryPolicy
	}

	// If MaxAttempts is 0 or 1, don't retry
	if policy.MaxAttempts <= 1 {
		return operation()
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if attempt == policy.MaxAttempts {
			break
		}

		if cfg.Logger != nil {
			cfg.Logger.Printf("connect failed (attempt %d/%d), retrying in %v: %v",
				attempt, policy.MaxAttempts, delay, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return lastErr
}
