package ingestion

import (
	"errors"
	"sort"

	"seer-airdrop/internal/domain"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortTransfers orders transfers by (timestamp ASC, block ASC, id ASC).
func SortTransfers(events []*domain.TransferEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareTransfers(events[i], events[j]) < 0
	})
}

// SortPositionSnapshots orders snapshots by (timestamp ASC, block ASC, id ASC).
func SortPositionSnapshots(snaps []*domain.PositionSnapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		return compareKeys(snaps[i].Timestamp, snaps[i].BlockNumber, snaps[i].ID,
			snaps[j].Timestamp, snaps[j].BlockNumber, snaps[j].ID) < 0
	})
}

// SortLiquidityEvents orders events by (timestamp ASC, block ASC, id ASC).
func SortLiquidityEvents(events []*domain.LiquidityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return compareKeys(events[i].Timestamp, events[i].BlockNumber, events[i].ID,
			events[j].Timestamp, events[j].BlockNumber, events[j].ID) < 0
	})
}

// ValidateTransferOrdering checks if transfers are strictly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateTransferOrdering(events []*domain.TransferEvent) error {
	for i := 1; i < len(events); i++ {
		if compareTransfers(events[i-1], events[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

func compareTransfers(a, b *domain.TransferEvent) int {
	return compareKeys(a.Timestamp, a.BlockNumber, a.ID, b.Timestamp, b.BlockNumber, b.ID)
}

// compareKeys returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareKeys(aTs, aBlock int64, aID string, bTs, bBlock int64, bID string) int {
	switch {
	case aTs != bTs:
		if aTs < bTs {
			return -1
		}
		return 1
	case aBlock != bBlock:
		if aBlock < bBlock {
			return -1
		}
		return 1
	case aID != bID:
		if aID < bID {
			return -1
		}
		return 1
	}
	return 0
}
