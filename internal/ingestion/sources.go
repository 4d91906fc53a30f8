package ingestion

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"seer-airdrop/internal/domain"
)

// MarketSource lists prediction markets and their outcome tokens.
type MarketSource interface {
	Markets(ctx context.Context) ([]domain.Market, error)
}

// TransferSource provides token transfer logs.
type TransferSource interface {
	// Transfers returns transfers of tokens with timestamp in [from, to] (inclusive),
	// ordered by (timestamp, block, id).
	Transfers(ctx context.Context, tokens []common.Address, from, to int64) ([]*domain.TransferEvent, error)
}

// PoolSource provides pools and their periodic price samples.
type PoolSource interface {
	// Pools returns every pool with at least one side in tokens.
	Pools(ctx context.Context, tokens []common.Address) ([]domain.Pool, error)

	// PoolPrices returns samples with PeriodStartUnix <= to, per pool, ascending.
	PoolPrices(ctx context.Context, pools []common.Address, to int64) (map[common.Address][]domain.PricePoint, error)
}

// PositionSource provides liquidity-position token snapshots.
type PositionSource interface {
	// PositionSnapshots returns snapshots with timestamp in [from, to], ordered by timestamp.
	PositionSnapshots(ctx context.Context, from, to int64) ([]*domain.PositionSnapshot, error)
}

// LiquidityEventSource provides pool mint/burn events.
type LiquidityEventSource interface {
	// LiquidityEvents returns mints and burns of pools with timestamp in [from, to].
	LiquidityEvents(ctx context.Context, pools []common.Address, from, to int64) ([]*domain.LiquidityEvent, error)
}

// HumanSource lists addresses attested as unique humans.
type HumanSource interface {
	VerifiedHumans(ctx context.Context) (map[common.Address]bool, error)
}

// HorizonSource reports how far the indexer has processed.
type HorizonSource interface {
	// LatestIndexedTimestamp returns the timestamp of the latest indexed block.
	LatestIndexedTimestamp(ctx context.Context) (int64, error)
}

// Sources bundles every source a snapshot run reads.
type Sources struct {
	Markets   MarketSource
	Transfers TransferSource
	Pools     PoolSource
	Positions PositionSource
	Liquidity LiquidityEventSource
	Humans    HumanSource
	Horizon   HorizonSource
}

// OutcomeTokens flattens the outcome tokens of markets, deduplicated, in first-seen order.
func OutcomeTokens(markets []domain.Market) []common.Address {
	seen := make(map[common.Address]bool)
	var tokens []common.Address
	for _, m := range markets {
		for _, t := range m.OutcomeTokens {
			if t == domain.ZeroAddress || seen[t] {
				continue
			}
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}
