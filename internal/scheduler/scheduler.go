// Package scheduler decides when the next daily snapshot is taken.
//
// The only persistent state is the next snapshot timestamp per chain: an
// instant drawn uniformly within one UTC day. It is stored the first time it
// is drawn, so every later run sees the same instant until a successful
// persisted run commits the next day's draw. Re-running before the stored
// instant is reached, or before the indexers have caught up with it, is a
// no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"seer-airdrop/internal/storage"
)

// DaySeconds is the length of one snapshot day.
const DaySeconds = int64(24 * time.Hour / time.Second)

// Horizon reports the latest timestamp the indexers have data for.
type Horizon interface {
	LatestIndexedTimestamp(ctx context.Context) (int64, error)
}

// Decision is the outcome of Next.
type Decision struct {
	Snapshot        int64 // candidate snapshot timestamp
	LatestAvailable int64
	Proceed         bool
	Reason          string // why the run does not proceed
}

// Options configures a Scheduler.
type Options struct {
	Chain   string
	Store   storage.SchedulerStateStore
	Horizon Horizon
	// Rand draws candidate instants. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// Scheduler picks pseudo-random daily snapshot instants.
type Scheduler struct {
	chain   string
	store   storage.SchedulerStateStore
	horizon Horizon
	rnd     *rand.Rand
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		chain:   opts.Chain,
		store:   opts.Store,
		horizon: opts.Horizon,
		rnd:     rnd,
	}
}

// Key returns the scheduler_state key of a chain.
func Key(chain string) string {
	return "next_snapshot_timestamp:" + chain
}

// NextUTCDayStart returns the first UTC midnight strictly after ts.
func NextUTCDayStart(ts int64) int64 {
	day := ts / DaySeconds
	if ts < 0 && ts%DaySeconds != 0 {
		day--
	}
	return (day + 1) * DaySeconds
}

// Next returns the stored candidate and reports whether it is due. With no
// stored candidate it draws one within the current UTC day and stores it.
func (s *Scheduler) Next(ctx context.Context, now int64) (Decision, error) {
	latest, err := s.horizon.LatestIndexedTimestamp(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("read data horizon: %w", err)
	}

	candidate, err := s.store.Get(ctx, Key(s.chain))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		candidate = s.draw(NextUTCDayStart(now - DaySeconds))
		if err := s.store.Set(ctx, Key(s.chain), candidate); err != nil {
			return Decision{}, fmt.Errorf("write scheduler state: %w", err)
		}
	case err != nil:
		return Decision{}, fmt.Errorf("read scheduler state: %w", err)
	}

	d := Decision{Snapshot: candidate, LatestAvailable: latest}
	switch {
	case candidate > now:
		d.Reason = "snapshot not due yet"
	case candidate > latest:
		d.Reason = "indexed data behind snapshot"
	default:
		d.Proceed = true
	}
	return d, nil
}

// Commit stores the candidate of the UTC day following snapshot. It must only
// be called after the snapshot's distribution has been persisted.
func (s *Scheduler) Commit(ctx context.Context, snapshot int64) (int64, error) {
	next := s.draw(NextUTCDayStart(snapshot))
	if err := s.store.Set(ctx, Key(s.chain), next); err != nil {
		return 0, fmt.Errorf("write scheduler state: %w", err)
	}
	return next, nil
}

// draw picks an instant in [dayStart, dayStart+1d).
func (s *Scheduler) draw(dayStart int64) int64 {
	return dayStart + s.rnd.Int63n(DaySeconds)
}
