package memory

import (
	"context"
	"sync"

	"seer-airdrop/internal/storage"
)

// SchedulerStateStore is an in-memory implementation of storage.SchedulerStateStore.
type SchedulerStateStore struct {
	mu     sync.RWMutex
	values map[string]int64
}

// NewSchedulerStateStore creates a new in-memory scheduler state store.
func NewSchedulerStateStore() *SchedulerStateStore {
	return &SchedulerStateStore{values: make(map[string]int64)}
}

// Get returns the value stored under key.
func (s *SchedulerStateStore) Get(_ context.Context, key string) (int64, error) {
	if key == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *SchedulerStateStore) Set(_ context.Context, key string, value int64) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SchedulerStateStore = (*SchedulerStateStore)(nil)
