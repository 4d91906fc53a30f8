package memory

import (
	"context"
	"math/big"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/storage"
)

// TransferHistoryStore is an in-memory implementation of storage.TransferHistoryStore.
type TransferHistoryStore struct {
	h *history[*domain.TransferEvent]
}

// NewTransferHistoryStore creates a new in-memory transfer history store.
func NewTransferHistoryStore() *TransferHistoryStore {
	return &TransferHistoryStore{
		h: newHistory(
			func(e *domain.TransferEvent) string { return e.ID },
			func(e *domain.TransferEvent) int64 { return e.Timestamp },
			transferLess,
			cloneTransfer,
		),
	}
}

// Insert adds a transfer. Returns ErrDuplicateKey if (chain_id, id) exists.
func (s *TransferHistoryStore) Insert(ctx context.Context, chainID int64, e *domain.TransferEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, chainID, []*domain.TransferEvent{e})
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferHistoryStore) InsertBulk(ctx context.Context, chainID int64, events []*domain.TransferEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
	}
	return s.h.insertBulk(chainID, events)
}

// MaxTimestamp returns the latest stored transfer timestamp of a chain.
func (s *TransferHistoryStore) MaxTimestamp(ctx context.Context, chainID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.h.maxTimestamp(chainID)
}

// GetByTimeRange retrieves transfers within [start, end] (inclusive).
func (s *TransferHistoryStore) GetByTimeRange(_ context.Context, chainID, start, end int64) ([]*domain.TransferEvent, error) {
	return s.h.byTimeRange(chainID, start, end), nil
}

func transferLess(a, b *domain.TransferEvent) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.ID < b.ID
}

func cloneTransfer(e *domain.TransferEvent) *domain.TransferEvent {
	c := *e
	if e.Value != nil {
		c.Value = new(big.Int).Set(e.Value)
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.TransferHistoryStore = (*TransferHistoryStore)(nil)
