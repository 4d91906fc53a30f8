package storage

import (
	"context"

	"seer-airdrop/internal/domain"
)

// DistributionStore provides access to airdrop_distributions storage.
type DistributionStore interface {
	// UpsertBatch writes records in a single transaction, replacing rows with the
	// same (address, chain_id, timestamp). On failure nothing is written and the
	// returned error wraps ErrPersistence.
	UpsertBatch(ctx context.Context, records []*domain.DistributionRecord) error

	// GetBySnapshot retrieves the records of one snapshot, ordered by address ASC.
	GetBySnapshot(ctx context.Context, chainID, timestamp int64) ([]*domain.DistributionRecord, error)
}

// SchedulerStateStore provides access to scheduler_state storage.
type SchedulerStateStore interface {
	// Get returns the value stored under key. Returns ErrNotFound if unset.
	Get(ctx context.Context, key string) (int64, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value int64) error
}

// TransferHistoryStore provides access to transfer_history storage.
type TransferHistoryStore interface {
	// Insert adds a transfer. Returns ErrDuplicateKey if (chain_id, id) exists.
	Insert(ctx context.Context, chainID int64, e *domain.TransferEvent) error

	// InsertBulk adds multiple transfers. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, chainID int64, events []*domain.TransferEvent) error

	// MaxTimestamp returns the latest stored transfer timestamp of a chain.
	// Returns ErrNotFound if the chain has no rows.
	MaxTimestamp(ctx context.Context, chainID int64) (int64, error)

	// GetByTimeRange retrieves transfers within [start, end] (inclusive), ordered by (timestamp, block, id).
	GetByTimeRange(ctx context.Context, chainID, start, end int64) ([]*domain.TransferEvent, error)
}

// LiquidityHistoryStore provides access to liquidity_history storage.
type LiquidityHistoryStore interface {
	// Insert adds a mint or burn. Returns ErrDuplicateKey if (chain_id, kind, id) exists.
	Insert(ctx context.Context, chainID int64, e *domain.LiquidityEvent) error

	// InsertBulk adds multiple events. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, chainID int64, events []*domain.LiquidityEvent) error

	// MaxTimestamp returns the latest stored event timestamp of a chain.
	// Returns ErrNotFound if the chain has no rows.
	MaxTimestamp(ctx context.Context, chainID int64) (int64, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by (timestamp, block, id).
	GetByTimeRange(ctx context.Context, chainID, start, end int64) ([]*domain.LiquidityEvent, error)
}
