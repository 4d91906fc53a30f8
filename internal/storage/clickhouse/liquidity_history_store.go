package clickhouse

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/storage"
)

// LiquidityHistoryStore implements storage.LiquidityHistoryStore using ClickHouse.
type LiquidityHistoryStore struct {
	conn *Conn
}

// NewLiquidityHistoryStore creates a new LiquidityHistoryStore.
func NewLiquidityHistoryStore(conn *Conn) *LiquidityHistoryStore {
	return &LiquidityHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LiquidityHistoryStore = (*LiquidityHistoryStore)(nil)

// Insert adds a mint or burn. Returns ErrDuplicateKey if (chain_id, kind, id) exists.
func (s *LiquidityHistoryStore) Insert(ctx context.Context, chainID int64, e *domain.LiquidityEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, chainID, []*domain.LiquidityEvent{e})
}

// InsertBulk adds multiple events. Fails entire batch on duplicate (chain_id, kind, id).
func (s *LiquidityHistoryStore) InsertBulk(ctx context.Context, chainID int64, events []*domain.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}

	type key struct {
		kind domain.LiquidityEventKind
		id   string
	}
	seen := make(map[key]struct{}, len(events))
	byKind := make(map[domain.LiquidityEventKind][]string)
	for _, e := range events {
		if e == nil || !e.Kind.IsValid() {
			return storage.ErrInvalidInput
		}
		k := key{e.Kind, e.ID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		byKind[e.Kind] = append(byKind[e.Kind], e.ID)
	}

	for kind, ids := range byKind {
		exists, err := s.anyExists(ctx, chainID, kind, ids)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO liquidity_history (
			chain_id, id, kind, pool, token0, token1, amount0, amount1, origin, timestamp, block_number
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			uint64(chainID), e.ID, string(e.Kind), hexAddr(e.Pool), hexAddr(e.Token0), hexAddr(e.Token1),
			bigString(e.Amount0), bigString(e.Amount1), hexAddr(e.Origin),
			uint64(e.Timestamp), uint64(e.BlockNumber),
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

// MaxTimestamp returns the latest stored event timestamp of a chain.
func (s *LiquidityHistoryStore) MaxTimestamp(ctx context.Context, chainID int64) (int64, error) {
	return maxTimestamp(ctx, s.conn, "liquidity_history", chainID)
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *LiquidityHistoryStore) GetByTimeRange(ctx context.Context, chainID, start, end int64) ([]*domain.LiquidityEvent, error) {
	query := `
		SELECT id, kind, pool, token0, token1, amount0, amount1, origin, timestamp, block_number
		FROM liquidity_history FINAL
		WHERE chain_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, block_number ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(chainID), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanLiquidityEvents(rows)
}

func (s *LiquidityHistoryStore) anyExists(ctx context.Context, chainID int64, kind domain.LiquidityEventKind, ids []string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM liquidity_history
		WHERE chain_id = ? AND kind = ? AND id IN ?
	`, uint64(chainID), string(kind), ids).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanLiquidityEvents(rows chRows) ([]*domain.LiquidityEvent, error) {
	var events []*domain.LiquidityEvent

	for rows.Next() {
		var (
			e                                     domain.LiquidityEvent
			kind, pool, token0, token1, a0, a1, o string
			timestamp, blockNumber                uint64
		)
		err := rows.Scan(&e.ID, &kind, &pool, &token0, &token1, &a0, &a1, &o, &timestamp, &blockNumber)
		if err != nil {
			return nil, fmt.Errorf("scan liquidity row: %w", err)
		}

		if e.Amount0, err = parseBig(a0); err != nil {
			return nil, err
		}
		if e.Amount1, err = parseBig(a1); err != nil {
			return nil, err
		}
		e.Kind = domain.LiquidityEventKind(kind)
		e.Pool = common.HexToAddress(pool)
		e.Token0 = common.HexToAddress(token0)
		e.Token1 = common.HexToAddress(token1)
		e.Origin = common.HexToAddress(o)
		e.Timestamp = int64(timestamp)
		e.BlockNumber = int64(blockNumber)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidity rows: %w", err)
	}

	return events, nil
}
