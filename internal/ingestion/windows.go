package ingestion

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Window is a half-open time range [From, To) in unix seconds.
type Window struct {
	From int64
	To   int64
}

// Windows splits the inclusive range [from, to] into consecutive windows of size.
func Windows(from, to int64, size time.Duration) []Window {
	if to < from {
		return nil
	}
	step := int64(size / time.Second)
	if step <= 0 {
		return []Window{{From: from, To: to + 1}}
	}

	var out []Window
	for start := from; start <= to; start += step {
		end := start + step
		if end > to+1 {
			end = to + 1
		}
		out = append(out, Window{From: start, To: end})
	}
	return out
}

// fanOut runs fn for every task with at most limit in flight and concatenates
// results in task order. The first error cancels the remaining tasks.
func fanOut[T, R any](ctx context.Context, limit int, tasks []T, fn func(context.Context, T) ([]R, error)) ([]R, error) {
	results := make([][]R, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			rows, err := fn(gctx, task)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var n int
	for _, r := range results {
		n += len(r)
	}
	out := make([]R, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// chunk splits items into slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) <= size {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
