package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate serializes calls against an external per-account quota. A single
// shared Gate is passed into every call site that needs throttling;
// concurrent tasks must Wait before each call.
type Gate interface {
	Wait(ctx context.Context) error
}

type limiterGate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate enforcing a minimum interval between calls.
func NewGate(minInterval time.Duration) Gate {
	if minInterval <= 0 {
		return NopGate{}
	}
	return &limiterGate{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

func (g *limiterGate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// NopGate never blocks. Used in tests and when throttling is disabled.
type NopGate struct{}

func (NopGate) Wait(context.Context) error { return nil }
