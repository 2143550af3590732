package abstraction

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ctxCheckInterval is how many items a worker processes between context checks.
const ctxCheckInterval = 1024

// partition splits [0, n) into at most workers contiguous, non-overlapping
// ranges. Every index belongs to exactly one range.
func partition(n, workers int) [][2]int {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	per := (n + workers - 1) / workers

	ranges := make([][2]int, 0, workers)
	for start := 0; start < n; start += per {
		ranges = append(ranges, [2]int{start, min(start+per, n)})
	}
	return ranges
}

// parallelRange runs fn over the ranges produced by partition, one goroutine
// per range, and returns the first error. Ranges never overlap, so fn may
// write to its own slice of a shared buffer without synchronization.
// With workers <= 1 it calls fn once on the calling goroutine.
func parallelRange(ctx context.Context, n, workers int, fn func(ctx context.Context, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 1 || n == 1 {
		return fn(ctx, 0, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range partition(n, workers) {
		g.Go(func() error {
			return fn(gctx, r[0], r[1])
		})
	}
	return g.Wait()
}
