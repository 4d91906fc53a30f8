package clickhouse

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/storage"
)

// TransferHistoryStore implements storage.TransferHistoryStore using ClickHouse.
type TransferHistoryStore struct {
	conn *Conn
}

// NewTransferHistoryStore creates a new TransferHistoryStore.
func NewTransferHistoryStore(conn *Conn) *TransferHistoryStore {
	return &TransferHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferHistoryStore = (*TransferHistoryStore)(nil)

// Insert adds a transfer. Returns ErrDuplicateKey if (chain_id, id) exists.
func (s *TransferHistoryStore) Insert(ctx context.Context, chainID int64, e *domain.TransferEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, chainID, []*domain.TransferEvent{e})
}

// InsertBulk adds multiple transfers. Fails entire batch on duplicate (chain_id, id).
// ReplacingMergeTree does not reject duplicates, so they are checked explicitly.
func (s *TransferHistoryStore) InsertBulk(ctx context.Context, chainID int64, events []*domain.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}

	exists, err := s.anyExists(ctx, chainID, ids)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_history (
			chain_id, id, token, from_address, to_address, value, timestamp, block_number
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			uint64(chainID), e.ID, hexAddr(e.Token), hexAddr(e.From), hexAddr(e.To),
			bigString(e.Value), uint64(e.Timestamp), uint64(e.BlockNumber),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// MaxTimestamp returns the latest stored transfer timestamp of a chain.
func (s *TransferHistoryStore) MaxTimestamp(ctx context.Context, chainID int64) (int64, error) {
	return maxTimestamp(ctx, s.conn, "transfer_history", chainID)
}

// GetByTimeRange retrieves transfers within [start, end] (inclusive).
func (s *TransferHistoryStore) GetByTimeRange(ctx context.Context, chainID, start, end int64) ([]*domain.TransferEvent, error) {
	query := `
		SELECT id, token, from_address, to_address, value, timestamp, block_number
		FROM transfer_history FINAL
		WHERE chain_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, block_number ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(chainID), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

func (s *TransferHistoryStore) anyExists(ctx context.Context, chainID int64, ids []string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM transfer_history
		WHERE chain_id = ? AND id IN ?
	`, uint64(chainID), ids).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanTransfers(rows chRows) ([]*domain.TransferEvent, error) {
	var events []*domain.TransferEvent

	for rows.Next() {
		var (
			e                      domain.TransferEvent
			token, from, to, val   string
			timestamp, blockNumber uint64
		)
		if err := rows.Scan(&e.ID, &token, &from, &to, &val, &timestamp, &blockNumber); err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		value, err := parseBig(val)
		if err != nil {
			return nil, err
		}
		e.Token = common.HexToAddress(token)
		e.From = common.HexToAddress(from)
		e.To = common.HexToAddress(to)
		e.Value = value
		e.Timestamp = int64(timestamp)
		e.BlockNumber = int64(blockNumber)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return events, nil
}
