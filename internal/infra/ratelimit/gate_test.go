package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-orchestrator/internal/infra/ratelimit"
)

func TestGate_SpacesCalls(t *testing.T) {
	gate := ratelimit.NewGate(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	// First call passes immediately, the next two wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestGate_CancelledContext(t *testing.T) {
	gate := ratelimit.NewGate(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, gate.Wait(ctx))
	cancel()
	assert.Error(t, gate.Wait(ctx))
}

func TestGate_ZeroIntervalNeverBlocks(t *testing.T) {
	gate := ratelimit.NewGate(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, gate.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second)
}
