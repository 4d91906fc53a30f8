// Package stub provides fixed in-memory event sources for tests.
package stub

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"seer-airdrop/internal/domain"
)

// Sources returns fixed data and implements every ingestion source interface.
// Range filters mirror the indexer: [from, to] inclusive. Returned events are
// copies, intentionally left in insertion order so callers' sorting is exercised.
type Sources struct {
	MarketList   []domain.Market
	TransferList []*domain.TransferEvent
	PoolList     []domain.Pool
	Prices       map[common.Address][]domain.PricePoint
	Snapshots    []*domain.PositionSnapshot
	Liquidity    []*domain.LiquidityEvent
	Humans       []common.Address
	Horizon      int64

	// Err, when set, is returned by every call.
	Err error

	// Calls counts Transfers calls.
	Calls atomic.Int64
}

// Markets returns MarketList.
func (s *Sources) Markets(_ context.Context) ([]domain.Market, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]domain.Market(nil), s.MarketList...), nil
}

// Transfers returns transfers of tokens within [from, to].
func (s *Sources) Transfers(_ context.Context, tokens []common.Address, from, to int64) ([]*domain.TransferEvent, error) {
	s.Calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	want := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		want[t] = true
	}

	var result []*domain.TransferEvent
	for _, e := range s.TransferList {
		if want[e.Token] && e.Timestamp >= from && e.Timestamp <= to {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}

// Pools returns pools with a side in tokens.
func (s *Sources) Pools(_ context.Context, tokens []common.Address) ([]domain.Pool, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var result []domain.Pool
	for _, p := range s.PoolList {
		for _, t := range tokens {
			if p.Has(t) {
				result = append(result, p)
				break
			}
		}
	}
	return result, nil
}

// PoolPrices returns samples of pools with PeriodStartUnix <= to.
func (s *Sources) PoolPrices(_ context.Context, pools []common.Address, to int64) (map[common.Address][]domain.PricePoint, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[common.Address][]domain.PricePoint)
	for _, p := range pools {
		for _, pt := range s.Prices[p] {
			if pt.PeriodStartUnix <= to {
				out[p] = append(out[p], pt)
			}
		}
		sort.SliceStable(out[p], func(i, j int) bool {
			return out[p][i].PeriodStartUnix < out[p][j].PeriodStartUnix
		})
	}
	return out, nil
}

// PositionSnapshots returns snapshots within [from, to].
func (s *Sources) PositionSnapshots(_ context.Context, from, to int64) ([]*domain.PositionSnapshot, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var result []*domain.PositionSnapshot
	for _, snap := range s.Snapshots {
		if snap.Timestamp >= from && snap.Timestamp <= to {
			c := *snap
			result = append(result, &c)
		}
	}
	return result, nil
}

// LiquidityEvents returns mints and burns of pools within [from, to].
func (s *Sources) LiquidityEvents(_ context.Context, pools []common.Address, from, to int64) ([]*domain.LiquidityEvent, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	want := make(map[common.Address]bool, len(pools))
	for _, p := range pools {
		want[p] = true
	}
	var result []*domain.LiquidityEvent
	for _, e := range s.Liquidity {
		if want[e.Pool] && e.Timestamp >= from && e.Timestamp <= to {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}

// VerifiedHumans returns Humans as a set.
func (s *Sources) VerifiedHumans(_ context.Context) (map[common.Address]bool, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[common.Address]bool, len(s.Humans))
	for _, h := range s.Humans {
		out[h] = true
	}
	return out, nil
}

// LatestIndexedTimestamp returns Horizon.
func (s *Sources) LatestIndexedTimestamp(_ context.Context) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Horizon, nil
}
