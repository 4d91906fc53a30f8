package postgres

import (
	"context"
	"fmt"

	"seer-airdrop/internal/storage"
)

// SchedulerStateStore is a PostgreSQL implementation of storage.SchedulerStateStore.
type SchedulerStateStore struct {
	pool *Pool
}

// NewSchedulerStateStore creates a new PostgreSQL scheduler state store.
func NewSchedulerStateStore(pool *Pool) *SchedulerStateStore {
	return &SchedulerStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SchedulerStateStore = (*SchedulerStateStore)(nil)

// Get returns the value stored under key.
func (s *SchedulerStateStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, storage.ErrInvalidInput
	}

	var value int64
	err := s.pool.QueryRow(ctx, `SELECT value FROM scheduler_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get scheduler state: %w", err)
	}
	return value, nil
}

// Set stores value under key. Uses upsert to handle initial insert and subsequent updates.
func (s *SchedulerStateStore) Set(ctx context.Context, key string, value int64) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduler_state (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("%w: set scheduler state: %w", storage.ErrPersistence, err)
	}
	return nil
}
