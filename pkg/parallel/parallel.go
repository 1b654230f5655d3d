// Package parallel maps functions over independent partitions with a bounded
// number of goroutines and collects the results in submission order.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Range is the half-open row interval [Start, End).
type Range struct {
	Start, End int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// ChunkSize splits n items for workers: n/workers, at least 1.
func ChunkSize(n, workers int) int {
	if workers < 1 {
		workers = 1
	}
	return max(1, n/workers)
}

// Chunks splits [0, n) into contiguous ranges of size chunkSize. The last
// range may be shorter.
func Chunks(n, chunkSize int) []Range {
	if chunkSize < 1 {
		chunkSize = 1
	}
	var result []Range
	for start := 0; start < n; start += chunkSize {
		result = append(result, Range{Start: start, End: min(start+chunkSize, n)})
	}
	return result
}

// Map calls fn for every partition using at most workers goroutines.
// results[i] always holds the result for parts[i], regardless of completion
// order. The first error cancels the context passed to the remaining calls.
func Map[P, R any](ctx context.Context, workers int, parts []P, fn func(ctx context.Context, part P) (R, error)) ([]R, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]R, len(parts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, part := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, part)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
