// Package orchestrator runs one snapshot of one chain end to end.
// It coordinates: ingestion → ledger replay → position decomposition →
// price resolution → distribution → persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"seer-airdrop/internal/config"
	"seer-airdrop/internal/distribution"
	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/ingestion"
	"seer-airdrop/internal/ledger"
	"seer-airdrop/internal/liquidity"
	"seer-airdrop/internal/lookup"
	"seer-airdrop/internal/observability"
	"seer-airdrop/internal/storage"
)

// Orchestrator coordinates a snapshot run for one chain.
type Orchestrator struct {
	chain        config.ChainConfig
	distribution config.DistributionConfig
	sources      ingestion.Sources
	store        storage.DistributionStore
	logger       zerolog.Logger
}

// Options for creating Orchestrator.
type Options struct {
	Chain        config.ChainConfig
	Distribution config.DistributionConfig

	Sources           ingestion.Sources
	DistributionStore storage.DistributionStore

	Logger zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		chain:        opts.Chain,
		distribution: opts.Distribution,
		sources:      opts.Sources,
		store:        opts.DistributionStore,
		logger:       opts.Logger.With().Str("chain", opts.Chain.Name).Logger(),
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID             string
	Snapshot          int64
	OutcomeTokens     int
	Transfers         int
	LoyaltyTransfers  int
	PositionSnapshots int
	Decomposed        int
	Skipped           int
	Holders           int
	RecordsWritten    int
	Duration          time.Duration
}

// fetched is the raw input of one run.
type fetched struct {
	transfers []*domain.TransferEvent
	loyalty   []*domain.TransferEvent
	pools     []domain.Pool
	prices    []domain.PricePoint
	snapshots []*domain.PositionSnapshot
	humans    map[common.Address]bool
}

// Run computes and persists the distribution at snapshot.
// Phases:
//  1. Fetch markets, transfers, pools, prices, positions and humans
//  2. Replay direct, loyalty and indirect ledgers up to snapshot
//  3. Value holders against the collateral token
//  4. Compute and upsert distribution records
//
// A configuration error in one scope leaves that scope empty. Any other
// fetch error or a persistence failure aborts the run with nothing written.
func (o *Orchestrator) Run(ctx context.Context, snapshot int64) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{RunID: uuid.NewString(), Snapshot: snapshot}
	logger := o.logger.With().Str("run_id", result.RunID).Int64("snapshot", snapshot).Logger()

	res, err := o.run(ctx, logger, snapshot, result)
	result.Duration = time.Since(start)
	if err != nil {
		observability.RecordRun(o.chain.Name, "failure", result.Duration.Seconds(), 0, 0, snapshot)
		logger.Error().Err(err).Dur("duration", result.Duration).Msg("snapshot run failed")
		return res, err
	}

	observability.RecordRun(o.chain.Name, "success", result.Duration.Seconds(), result.Holders, result.RecordsWritten, snapshot)
	logger.Info().
		Int("outcome_tokens", result.OutcomeTokens).
		Int("transfers", result.Transfers).
		Int("loyalty_transfers", result.LoyaltyTransfers).
		Int("position_snapshots", result.PositionSnapshots).
		Int("decomposed", result.Decomposed).
		Int("skipped", result.Skipped).
		Int("holders", result.Holders).
		Int("written", result.RecordsWritten).
		Dur("duration", result.Duration).
		Msg("snapshot run complete")
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, logger zerolog.Logger, snapshot int64, result *RunResult) (*RunResult, error) {
	// Phase 1: markets decide every other scope
	var markets []domain.Market
	if o.sources.Markets != nil {
		m, err := o.sources.Markets.Markets(ctx)
		if err := o.scoped(logger, "markets", err); err != nil {
			return nil, fmt.Errorf("fetch markets: %w", err)
		}
		markets = m
	}
	tokens := ingestion.OutcomeTokens(markets)
	result.OutcomeTokens = len(tokens)
	if len(tokens) == 0 {
		logger.Warn().Msg("no outcome tokens, nothing to distribute")
		return result, nil
	}

	in, err := o.fetch(ctx, logger, tokens, snapshot)
	if err != nil {
		return nil, err
	}
	result.Transfers = len(in.transfers)
	result.LoyaltyTransfers = len(in.loyalty)
	result.PositionSnapshots = len(in.snapshots)

	outcome := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		outcome[t] = true
	}

	// Phase 2: ledgers
	direct := ledger.Replay(in.transfers, snapshot)
	loyalty := ledger.Replay(in.loyalty, snapshot)
	positions := outcomePositions(in.snapshots, in.pools, outcome)
	if dropped := len(in.snapshots) - len(positions); dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("ignoring positions in pools without outcome tokens")
	}
	replayed := liquidity.NewReplayer(logger).Replay(positions, snapshot)
	indirect := ledger.Replay(replayed.Transfers, snapshot)
	result.Decomposed = replayed.Decomposed
	result.Skipped = replayed.Skipped

	// Phase 3: valuation
	collateral := o.chain.Collateral()
	resolver := lookup.NewResolver(in.pools, in.prices)

	holders := distribution.BuildSnapshots(distribution.HoldingsInput{
		Timestamp:     snapshot,
		Decimals:      o.chain.TokenDecimals,
		OutcomeTokens: outcome,
		Direct:        direct.Holdings(),
		Indirect:      indirect.Holdings(),
		Loyalty:       o.loyaltyBalances(loyalty),
		Humans:        in.humans,
		Prices:        resolver.Prices(priceTokens(tokens, in.pools, collateral), collateral, snapshot),
	})
	result.Holders = len(holders)

	// Phase 4: distribution
	calc := distribution.NewCalculator(distribution.Config{
		ChainID:        o.chain.ID,
		DailyBudget:    o.distribution.Budget(),
		HoldingWeight:  o.distribution.HoldingWeight,
		VerifiedWeight: o.distribution.VerifiedWeight,
		LoyaltyWeight:  o.distribution.LoyaltyWeight,
		Ignored:        o.chain.Ignored(),
	})
	records := calc.Compute(holders)
	if len(records) == 0 {
		logger.Warn().Int("holders", len(holders)).Msg("no eligible holders")
		return result, nil
	}

	batch := make([]*domain.DistributionRecord, len(records))
	for i := range records {
		batch[i] = &records[i]
	}
	if err := o.store.UpsertBatch(ctx, batch); err != nil {
		if !errors.Is(err, storage.ErrPersistence) {
			err = fmt.Errorf("%w: %w", storage.ErrPersistence, err)
		}
		return nil, fmt.Errorf("persist distribution: %w", err)
	}
	result.RecordsWritten = len(batch)
	return result, nil
}

// fetch reads every independent scope concurrently.
func (o *Orchestrator) fetch(ctx context.Context, logger zerolog.Logger, tokens []common.Address, snapshot int64) (*fetched, error) {
	var in fetched
	from := o.chain.StartTimestamp
	collateral := o.chain.Collateral()

	g, gctx := errgroup.WithContext(ctx)
	if o.sources.Transfers == nil {
		return nil, fmt.Errorf("chain %s: no transfer source: %w", o.chain.Name, config.ErrMissingEndpoint)
	}

	g.Go(func() error {
		events, err := o.sources.Transfers.Transfers(gctx, tokens, from, snapshot)
		if err := o.scoped(logger, "transfers", err); err != nil {
			return fmt.Errorf("fetch transfers: %w", err)
		}
		in.transfers = events
		return nil
	})

	if token, ok := o.chain.Loyalty(); ok {
		g.Go(func() error {
			events, err := o.sources.Transfers.Transfers(gctx, []common.Address{token}, from, snapshot)
			if err := o.scoped(logger, "loyalty", err); err != nil {
				return fmt.Errorf("fetch loyalty transfers: %w", err)
			}
			in.loyalty = events
			return nil
		})
	}

	if o.sources.Pools != nil {
		g.Go(func() error {
			pools, err := o.sources.Pools.Pools(gctx, append(append([]common.Address(nil), tokens...), collateral))
			if err := o.scoped(logger, "pools", err); err != nil {
				return fmt.Errorf("fetch pools: %w", err)
			}
			if len(pools) == 0 {
				return nil
			}
			ids := make([]common.Address, len(pools))
			for i, p := range pools {
				ids[i] = p.ID
			}
			series, err := o.sources.Pools.PoolPrices(gctx, ids, snapshot)
			if err := o.scoped(logger, "pool_prices", err); err != nil {
				return fmt.Errorf("fetch pool prices: %w", err)
			}
			in.pools = pools
			for _, points := range series {
				in.prices = append(in.prices, points...)
			}
			return nil
		})
	}

	if o.sources.Positions != nil {
		g.Go(func() error {
			snaps, err := o.sources.Positions.PositionSnapshots(gctx, from, snapshot)
			if err := o.scoped(logger, "positions", err); err != nil {
				return fmt.Errorf("fetch position snapshots: %w", err)
			}
			in.snapshots = snaps
			return nil
		})
	}

	if o.sources.Humans != nil {
		g.Go(func() error {
			humans, err := o.sources.Humans.VerifiedHumans(gctx)
			if err := o.scoped(logger, "humans", err); err != nil {
				return fmt.Errorf("fetch verified humans: %w", err)
			}
			in.humans = humans
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}

// scoped drops configuration errors, leaving the scope empty.
func (o *Orchestrator) scoped(logger zerolog.Logger, scope string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, config.ErrMissingEndpoint) || errors.Is(err, config.ErrUnsupportedChain) {
		logger.Warn().Err(err).Str("scope", scope).Msg("scope not configured, using empty result")
		return nil
	}
	return err
}

func (o *Orchestrator) loyaltyBalances(l *ledger.Ledger) map[common.Address]*big.Int {
	token, ok := o.chain.Loyalty()
	if !ok {
		return nil
	}
	out := make(map[common.Address]*big.Int)
	for holder, tokens := range l.Holdings() {
		if b, ok := tokens[token]; ok {
			out[holder] = b
		}
	}
	return out
}

// outcomePositions keeps snapshots of pools with an outcome token on either
// side. The snapshot's own token pair is used, falling back to the pool list
// when the indexer left it empty.
func outcomePositions(snaps []*domain.PositionSnapshot, pools []domain.Pool, outcome map[common.Address]bool) []*domain.PositionSnapshot {
	outcomePools := make(map[common.Address]bool)
	for _, p := range pools {
		if outcome[p.Token0] || outcome[p.Token1] {
			outcomePools[p.ID] = true
		}
	}

	out := make([]*domain.PositionSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if s == nil {
			continue
		}
		if outcome[s.Token0] || outcome[s.Token1] || outcomePools[s.Pool] {
			out = append(out, s)
		}
	}
	return out
}

// priceTokens lists every token that may carry value: outcome tokens, the
// collateral and both sides of each pool.
func priceTokens(tokens []common.Address, pools []domain.Pool, collateral common.Address) []common.Address {
	seen := make(map[common.Address]bool)
	var out []common.Address
	add := func(t common.Address) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range tokens {
		add(t)
	}
	add(collateral)
	for _, p := range pools {
		add(p.Token0)
		add(p.Token1)
	}
	return out
}
