package ingestion

import (
	"errors"
	"testing"

	"seer-airdrop/internal/domain"
)

func TestSortTransfers(t *testing.T) {
	// Intentionally unordered transfers
	events := []*domain.TransferEvent{
		{ID: "c", Timestamp: 200, BlockNumber: 20},
		{ID: "b", Timestamp: 100, BlockNumber: 11},
		{ID: "a", Timestamp: 100, BlockNumber: 11},
		{ID: "z", Timestamp: 100, BlockNumber: 10},
		{ID: "d", Timestamp: 300, BlockNumber: 30},
	}

	SortTransfers(events)

	// Verify order: (timestamp ASC, block ASC, id ASC)
	expected := []string{"z", "a", "b", "c", "d"}
	for i, id := range expected {
		if events[i].ID != id {
			t.Errorf("Index %d: got %s, want %s", i, events[i].ID, id)
		}
	}

	if err := ValidateTransferOrdering(events); err != nil {
		t.Errorf("expected sorted events to validate, got %v", err)
	}
}

func TestSortTransfers_Empty(t *testing.T) {
	var events []*domain.TransferEvent
	SortTransfers(events) // Should not panic
}

func TestSortPositionSnapshots(t *testing.T) {
	snaps := []*domain.PositionSnapshot{
		{ID: "2", Timestamp: 50},
		{ID: "1", Timestamp: 50},
		{ID: "0", Timestamp: 10},
	}

	SortPositionSnapshots(snaps)

	if snaps[0].ID != "0" || snaps[1].ID != "1" || snaps[2].ID != "2" {
		t.Errorf("unexpected order: %s %s %s", snaps[0].ID, snaps[1].ID, snaps[2].ID)
	}
}

func TestSortLiquidityEvents(t *testing.T) {
	events := []*domain.LiquidityEvent{
		{ID: "x", Timestamp: 20, BlockNumber: 2},
		{ID: "y", Timestamp: 10, BlockNumber: 2},
		{ID: "w", Timestamp: 10, BlockNumber: 1},
	}

	SortLiquidityEvents(events)

	if events[0].ID != "w" || events[1].ID != "y" || events[2].ID != "x" {
		t.Errorf("unexpected order: %s %s %s", events[0].ID, events[1].ID, events[2].ID)
	}
}

func TestValidateTransferOrdering_Invalid(t *testing.T) {
	events := []*domain.TransferEvent{
		{ID: "b", Timestamp: 100},
		{ID: "a", Timestamp: 100},
	}

	err := ValidateTransferOrdering(events)
	if !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering, got %v", err)
	}
}

func TestValidateTransferOrdering_Duplicate(t *testing.T) {
	events := []*domain.TransferEvent{
		{ID: "a", Timestamp: 100},
		{ID: "a", Timestamp: 100},
	}

	if err := ValidateTransferOrdering(events); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering for duplicate key, got %v", err)
	}
}
