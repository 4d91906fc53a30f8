package subgraph

import (
	"context"
	"iter"
)

// MaxPageSize is the largest page the indexing service returns.
const MaxPageSize = 1000

// PageFunc fetches the page of rows whose cursor is strictly greater than cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) ([]T, error)

// Pages returns a lazy sequence of pages ordered by an ascending cursor.
// Paging continues while a page is full and its last cursor moves forward;
// a page whose last cursor repeats the requested cursor is a stall and ends
// the sequence without being yielded. Ranging again restarts from start.
func Pages[T any](ctx context.Context, pageSize int, start string, fetch PageFunc[T], cursorOf func(T) string) iter.Seq2[[]T, error] {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return func(yield func([]T, error) bool) {
		cursor := start
		for {
			rows, err := fetch(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(rows) == 0 {
				return
			}

			next := cursorOf(rows[len(rows)-1])
			if next == cursor {
				return
			}
			if !yield(rows, nil) {
				return
			}
			if len(rows) < pageSize {
				return
			}
			cursor = next
		}
	}
}

// Paginate collects every page of Pages into one slice.
func Paginate[T any](ctx context.Context, pageSize int, start string, fetch PageFunc[T], cursorOf func(T) string) ([]T, error) {
	var all []T
	for rows, err := range Pages(ctx, pageSize, start, fetch, cursorOf) {
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}
