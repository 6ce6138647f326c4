// Package worker runs a sequence of independent units through a bounded
// concurrent pipeline, restoring input order in the result list.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run processes units with at most concurrency goroutines. Results land at
// the index of their unit, so output order equals input order regardless of
// completion order. The first error cancels the remaining units.
func Run[In, Out any](ctx context.Context, concurrency int, units []In, fn func(ctx context.Context, unit In) (Out, error)) ([]Out, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Out, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, unit := range units {
		g.Go(func() error {
			// Stop picking up new units once the batch is cancelled; the
			// in-flight ones finish on their own.
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(gctx, unit)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunCollect is Run without fail-fast: every unit produces a result even
// when others fail, which batch answer synthesis needs (one bad question
// must not abort the run). fn itself decides how to encode failure in Out.
func RunCollect[In, Out any](ctx context.Context, concurrency int, units []In, fn func(ctx context.Context, unit In) Out) []Out {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Out, len(units))
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, unit := range units {
		g.Go(func() error {
			results[i] = fn(ctx, unit)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
