package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/storage"
)

// distributionKey is the natural key of a distribution record.
type distributionKey struct {
	holder    common.Address
	chainID   int64
	timestamp int64
}

// DistributionStore is an in-memory implementation of storage.DistributionStore.
type DistributionStore struct {
	mu   sync.RWMutex
	data map[distributionKey]domain.DistributionRecord
}

// NewDistributionStore creates a new in-memory distribution store.
func NewDistributionStore() *DistributionStore {
	return &DistributionStore{
		data: make(map[distributionKey]domain.DistributionRecord),
	}
}

// UpsertBatch writes all records or none.
func (s *DistributionStore) UpsertBatch(ctx context.Context, records []*domain.DistributionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.data[distributionKey{r.Holder, r.ChainID, r.Timestamp}] = *r
	}
	return nil
}

// GetBySnapshot retrieves the records of one snapshot ordered by address.
func (s *DistributionStore) GetBySnapshot(_ context.Context, chainID, timestamp int64) ([]*domain.DistributionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.DistributionRecord
	for k, r := range s.data {
		if k.chainID == chainID && k.timestamp == timestamp {
			rec := r
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Holder[:], out[j].Holder[:]) < 0
	})
	return out, nil
}

// Count returns the number of stored records.
func (s *DistributionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Verify interface compliance at compile time.
var _ storage.DistributionStore = (*DistributionStore)(nil)
