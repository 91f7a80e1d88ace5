package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxRetries is the default maximum number of retries for RetryBackoff.
	DefaultMaxRetries = 5
	// DefaultMaxElapsedTime is the default maximum elapsed time for backoff.
	DefaultMaxElapsedTime = 5 * time.Minute
	// DefaultMaxInterval is the default maximum interval between retries.
	DefaultMaxInterval = 5 * time.Minute
	// DefaultInitialDelay is the default initial delay for exponential backoff.
	DefaultInitialDelay = 1 * time.Second
	// RetryAfterMultiplier is the multiplier used when the backend supplied a
	// retry-after hint.
	RetryAfterMultiplier = 1.5
	// RetryAfterRandomizationFactor is the randomization factor for
	// retry-after seeded backoff.
	RetryAfterRandomizationFactor = 0.1
	// StandardMultiplier is the multiplier for standard exponential backoff.
	StandardMultiplier = 2.0
	// StandardRandomizationFactor is the randomization factor for standard
	// exponential backoff.
	StandardRandomizationFactor = 0.2
)

// RetryBackoff builds an exponential backoff policy for callers that choose
// to retry a retryable error. The core never retries implicitly; this helper
// only packages the backend's retry-after hint (when present) into a policy.
// Returns nil for errors that are not retryable.
func RetryBackoff(err error) backoff.BackOff {
	if !IsRetryableError(err) {
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	if retryAfter := ExtractRetryAfter(err); retryAfter != nil && *retryAfter > 0 {
		eb.InitialInterval = *retryAfter
		eb.Multiplier = RetryAfterMultiplier
		eb.RandomizationFactor = RetryAfterRandomizationFactor
	} else {
		eb.InitialInterval = DefaultInitialDelay
		eb.Multiplier = StandardMultiplier
		eb.RandomizationFactor = StandardRandomizationFactor
	}
	eb.MaxInterval = DefaultMaxInterval
	eb.MaxElapsedTime = DefaultMaxElapsedTime
	eb.Reset()

	return backoff.WithMaxRetries(eb, DefaultMaxRetries)
}

// WaitForRetry waits for the specified delay, respecting context cancellation.
func WaitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
