package memory

import (
	"context"
	"math/big"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/storage"
)

// LiquidityHistoryStore is an in-memory implementation of storage.LiquidityHistoryStore.
type LiquidityHistoryStore struct {
	h *history[*domain.LiquidityEvent]
}

// NewLiquidityHistoryStore creates a new in-memory liquidity history store.
func NewLiquidityHistoryStore() *LiquidityHistoryStore {
	return &LiquidityHistoryStore{
		h: newHistory(
			// Mints and burns have separate id spaces.
			func(e *domain.LiquidityEvent) string { return string(e.Kind) + "|" + e.ID },
			func(e *domain.LiquidityEvent) int64 { return e.Timestamp },
			liquidityLess,
			cloneLiquidity,
		),
	}
}

// Insert adds a mint or burn. Returns ErrDuplicateKey if (chain_id, kind, id) exists.
func (s *LiquidityHistoryStore) Insert(ctx context.Context, chainID int64, e *domain.LiquidityEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, chainID, []*domain.LiquidityEvent{e})
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityHistoryStore) InsertBulk(ctx context.Context, chainID int64, events []*domain.LiquidityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range events {
		if e == nil || !e.Kind.IsValid() {
			return storage.ErrInvalidInput
		}
	}
	return s.h.insertBulk(chainID, events)
}

// MaxTimestamp returns the latest stored event timestamp of a chain.
func (s *LiquidityHistoryStore) MaxTimestamp(ctx context.Context, chainID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.h.maxTimestamp(chainID)
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *LiquidityHistoryStore) GetByTimeRange(_ context.Context, chainID, start, end int64) ([]*domain.LiquidityEvent, error) {
	return s.h.byTimeRange(chainID, start, end), nil
}

func liquidityLess(a, b *domain.LiquidityEvent) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	if a.BlockNumber != b.BlockNumber {
		return a.BlockNumber < b.BlockNumber
	}
	return a.ID < b.ID
}

func cloneLiquidity(e *domain.LiquidityEvent) *domain.LiquidityEvent {
	c := *e
	if e.Amount0 != nil {
		c.Amount0 = new(big.Int).Set(e.Amount0)
	}
	if e.Amount1 != nil {
		c.Amount1 = new(big.Int).Set(e.Amount1)
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.LiquidityHistoryStore = (*LiquidityHistoryStore)(nil)
