package domain

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy is a bounded, parameterized retry with exponential backoff.
// Adapters mark non-transient failures with backoff.Permanent so only
// timeouts and 5xx-equivalent errors are retried.
type RetryPolicy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy matches the external services' documented limits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2.0,
	}
}

// Retry runs op under the policy, returning the last error once attempts are
// exhausted. Context cancellation stops retrying immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.Multiplier = policy.Multiplier

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxAttempts),
	)
}
