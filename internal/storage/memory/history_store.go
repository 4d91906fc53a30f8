// Package memory provides in-memory implementations of the storage
// interfaces, used in tests and --use-memory runs.
package memory

import (
	"sort"
	"sync"

	"seer-airdrop/internal/storage"
)

// historyKey is the composite key for append-only history rows.
type historyKey struct {
	chainID int64
	id      string
}

// history is an append-only, per-chain event log shared by the history stores.
type history[E any] struct {
	mu        sync.RWMutex
	data      map[int64][]E
	keys      map[historyKey]bool
	keyOf     func(E) string
	timestamp func(E) int64
	less      func(a, b E) bool
	clone     func(E) E
}

func newHistory[E any](keyOf func(E) string, timestamp func(E) int64, less func(a, b E) bool, clone func(E) E) *history[E] {
	return &history[E]{
		data:      make(map[int64][]E),
		keys:      make(map[historyKey]bool),
		keyOf:     keyOf,
		timestamp: timestamp,
		less:      less,
		clone:     clone,
	}
}

// insertBulk adds events atomically. Fails entire batch on any duplicate.
func (h *history[E]) insertBulk(chainID int64, events []E) error {
	if len(events) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Check for duplicates (both existing and intra-batch)
	batchKeys := make(map[historyKey]bool, len(events))
	for _, e := range events {
		key := historyKey{chainID: chainID, id: h.keyOf(e)}
		if h.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, e := range events {
		h.data[chainID] = append(h.data[chainID], h.clone(e))
	}
	for key := range batchKeys {
		h.keys[key] = true
	}
	return nil
}

func (h *history[E]) maxTimestamp(chainID int64) (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows := h.data[chainID]
	if len(rows) == 0 {
		return 0, storage.ErrNotFound
	}
	var maxTs int64
	for _, e := range rows {
		if ts := h.timestamp(e); ts > maxTs {
			maxTs = ts
		}
	}
	return maxTs, nil
}

// byTimeRange returns copies of rows with timestamp in [start, end], sorted.
func (h *history[E]) byTimeRange(chainID, start, end int64) []E {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var result []E
	for _, e := range h.data[chainID] {
		if ts := h.timestamp(e); ts >= start && ts <= end {
			result = append(result, h.clone(e))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return h.less(result[i], result[j])
	})
	return result
}
