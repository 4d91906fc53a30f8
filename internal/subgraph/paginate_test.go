package subgraph

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type row struct {
	ID string
}

// pagedFetcher serves pages of the given sizes with monotonically increasing ids.
type pagedFetcher struct {
	sizes   []int
	calls   int
	cursors []string
	next    int
}

func (f *pagedFetcher) fetch(_ context.Context, cursor string) ([]row, error) {
	f.cursors = append(f.cursors, cursor)
	if f.calls >= len(f.sizes) {
		f.calls++
		return nil, nil
	}
	size := f.sizes[f.calls]
	f.calls++

	rows := make([]row, size)
	for i := range rows {
		f.next++
		rows[i] = row{ID: fmt.Sprintf("%08d", f.next)}
	}
	return rows, nil
}

func rowCursor(r row) string { return r.ID }

func TestPaginate_StopsOnShortPage(t *testing.T) {
	f := &pagedFetcher{sizes: []int{1000, 1000, 500}}

	rows, err := Paginate(context.Background(), MaxPageSize, "", f.fetch, rowCursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 3 {
		t.Errorf("expected 3 fetch calls, got %d", f.calls)
	}
	if len(rows) != 2500 {
		t.Errorf("expected 2500 rows, got %d", len(rows))
	}
	if f.cursors[1] != rows[999].ID || f.cursors[2] != rows[1999].ID {
		t.Errorf("cursor did not advance to last row id: %v", f.cursors)
	}
}

func TestPaginate_StopsOnRepeatedCursor(t *testing.T) {
	calls := 0
	var last string
	fetch := func(_ context.Context, cursor string) ([]row, error) {
		calls++
		if calls > 10 {
			t.Fatal("pagination did not terminate")
		}
		if calls <= 3 {
			rows := make([]row, 1000)
			for i := range rows {
				rows[i] = row{ID: fmt.Sprintf("%d-%04d", calls, i)}
			}
			last = rows[len(rows)-1].ID
			return rows, nil
		}
		// Stalled indexer: a full page ending on the requested cursor.
		rows := make([]row, 1000)
		for i := range rows {
			rows[i] = row{ID: last}
		}
		return rows, nil
	}

	rows, err := Paginate(context.Background(), MaxPageSize, "", fetch, rowCursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 fetch calls, got %d", calls)
	}
	if len(rows) != 3000 {
		t.Errorf("expected 3000 rows, got %d", len(rows))
	}
}

func TestPaginate_EmptyFirstPage(t *testing.T) {
	f := &pagedFetcher{}

	rows, err := Paginate(context.Background(), MaxPageSize, "", f.fetch, rowCursor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 || f.calls != 1 {
		t.Errorf("expected 0 rows and 1 call, got %d rows and %d calls", len(rows), f.calls)
	}
}

func TestPaginate_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	fetch := func(_ context.Context, _ string) ([]row, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		rows := make([]row, 1000)
		for i := range rows {
			rows[i] = row{ID: fmt.Sprintf("%04d", i)}
		}
		return rows, nil
	}

	_, err := Paginate(context.Background(), MaxPageSize, "", fetch, rowCursor)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPages_Restartable(t *testing.T) {
	f := &pagedFetcher{sizes: []int{1000, 10, 1000, 10}}
	seq := Pages(context.Background(), MaxPageSize, "", f.fetch, rowCursor)

	var first, second int
	for rows, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first += len(rows)
	}
	for rows, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second += len(rows)
	}

	if first != 1010 || second != 1010 {
		t.Errorf("expected 1010 rows per pass, got %d and %d", first, second)
	}
	if f.cursors[2] != "" {
		t.Errorf("second pass should restart from the start cursor, got %q", f.cursors[2])
	}
}
