package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-orchestrator/internal/domain"
)

func fastPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 1.5}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0

	got, err := domain.Retry(context.Background(), fastPolicy(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	boom := errors.New("still failing")

	_, err := domain.Retry(context.Background(), fastPolicy(), func() (int, error) {
		attempts++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	bad := errors.New("bad request")

	_, err := domain.Retry(context.Background(), fastPolicy(), func() (int, error) {
		attempts++
		return 0, backoff.Permanent(bad)
	})

	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, attempts)
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := domain.Retry(ctx, fastPolicy(), func() (int, error) {
		return 0, errors.New("transient")
	})
	assert.Error(t, err)
}
