package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/observability"
	"seer-airdrop/internal/storage"
)

// HistoryJob copies raw outcome-token transfers and pool mints/burns into
// the history stores, resuming from the stored max timestamp.
type HistoryJob struct {
	chainID        int64
	chainName      string
	sources        Sources
	transferStore  storage.TransferHistoryStore
	liquidityStore storage.LiquidityHistoryStore
	startTimestamp int64
	batchSize      int
	logger         zerolog.Logger
}

// HistoryOptions contains configuration for creating a HistoryJob.
type HistoryOptions struct {
	ChainID   int64
	ChainName string
	Sources   Sources

	TransferStore  storage.TransferHistoryStore
	LiquidityStore storage.LiquidityHistoryStore // optional

	// StartTimestamp is used when a store has no rows for the chain.
	StartTimestamp int64
	BatchSize      int
	Logger         zerolog.Logger
}

// NewHistoryJob creates a new raw history job.
func NewHistoryJob(opts HistoryOptions) *HistoryJob {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 1000
	}

	return &HistoryJob{
		chainID:        opts.ChainID,
		chainName:      opts.ChainName,
		sources:        opts.Sources,
		transferStore:  opts.TransferStore,
		liquidityStore: opts.LiquidityStore,
		startTimestamp: opts.StartTimestamp,
		batchSize:      batchSize,
		logger:         opts.Logger,
	}
}

// HistoryResult contains statistics from a history run.
type HistoryResult struct {
	From                  int64
	To                    int64
	TransfersStored       int
	LiquidityEventsStored int
	DuplicatesSkipped     int
	Errors                int
	Duration              time.Duration
}

// Run fetches everything after the stored watermarks up to the indexer's
// horizon. Rows at the watermark itself are refetched because a previous run
// may have stored only part of that second; duplicates are skipped.
// Store errors are counted and reported as storage.ErrPersistence.
func (j *HistoryJob) Run(ctx context.Context) (*HistoryResult, error) {
	start := time.Now()
	result := &HistoryResult{}

	to, err := j.sources.Horizon.LatestIndexedTimestamp(ctx)
	if err != nil {
		return result, fmt.Errorf("latest indexed timestamp: %w", err)
	}
	result.To = to

	markets, err := j.sources.Markets.Markets(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch markets: %w", err)
	}
	tokens := OutcomeTokens(markets)

	from, err := j.watermark(ctx, j.transferStore.MaxTimestamp)
	if err != nil {
		return result, err
	}
	result.From = from

	j.logger.Info().
		Int64("from", from).
		Int64("to", to).
		Int("tokens", len(tokens)).
		Msg("starting history run")

	transfers, err := j.sources.Transfers.Transfers(ctx, tokens, from, to)
	if err != nil {
		return result, fmt.Errorf("fetch transfers: %w", err)
	}
	stored, dupes, errs := storeBatches(ctx, j, transfers,
		func(ctx context.Context, batch []*domain.TransferEvent) error {
			return j.transferStore.InsertBulk(ctx, j.chainID, batch)
		},
		func(ctx context.Context, e *domain.TransferEvent) error {
			return j.transferStore.Insert(ctx, j.chainID, e)
		})
	result.TransfersStored += stored
	result.DuplicatesSkipped += dupes
	result.Errors += errs
	observability.RecordHistoryStored("transfer_history", stored)

	if j.liquidityStore != nil && j.sources.Pools != nil && j.sources.Liquidity != nil {
		stored, dupes, errs, err := j.storeLiquidity(ctx, tokens, to)
		if err != nil {
			return result, err
		}
		result.LiquidityEventsStored += stored
		result.DuplicatesSkipped += dupes
		result.Errors += errs
	}

	if maxTs, err := j.transferStore.MaxTimestamp(ctx, j.chainID); err == nil {
		observability.UpdateHistoryWatermark(j.label(), maxTs)
	}

	result.Duration = time.Since(start)
	j.logger.Info().
		Int("transfers", result.TransfersStored).
		Int("liquidity_events", result.LiquidityEventsStored).
		Int("duplicates", result.DuplicatesSkipped).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("history run complete")

	if result.Errors > 0 {
		return result, fmt.Errorf("%w: %d history rows not stored", storage.ErrPersistence, result.Errors)
	}
	return result, nil
}

func (j *HistoryJob) storeLiquidity(ctx context.Context, tokens []common.Address, to int64) (stored, dupes, errs int, err error) {
	pools, err := j.sources.Pools.Pools(ctx, tokens)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch pools: %w", err)
	}
	ids := make([]common.Address, len(pools))
	for i, p := range pools {
		ids[i] = p.ID
	}

	from, err := j.watermark(ctx, j.liquidityStore.MaxTimestamp)
	if err != nil {
		return 0, 0, 0, err
	}
	events, err := j.sources.Liquidity.LiquidityEvents(ctx, ids, from, to)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch liquidity events: %w", err)
	}

	stored, dupes, errs = storeBatches(ctx, j, events,
		func(ctx context.Context, batch []*domain.LiquidityEvent) error {
			return j.liquidityStore.InsertBulk(ctx, j.chainID, batch)
		},
		func(ctx context.Context, e *domain.LiquidityEvent) error {
			return j.liquidityStore.Insert(ctx, j.chainID, e)
		})
	observability.RecordHistoryStored("liquidity_history", stored)
	return stored, dupes, errs, nil
}

// watermark returns the stored max timestamp, or the configured start when empty.
func (j *HistoryJob) watermark(ctx context.Context, maxTimestamp func(context.Context, int64) (int64, error)) (int64, error) {
	ts, err := maxTimestamp(ctx, j.chainID)
	if errors.Is(err, storage.ErrNotFound) {
		return j.startTimestamp, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read watermark: %w", err)
	}
	return ts, nil
}

func (j *HistoryJob) label() string {
	if j.chainName != "" {
		return j.chainName
	}
	return strconv.FormatInt(j.chainID, 10)
}

// storeBatches stores events in batches, falling back to one-by-one inserts
// for a batch that hits a duplicate.
func storeBatches[E any](
	ctx context.Context,
	j *HistoryJob,
	events []E,
	insertBulk func(context.Context, []E) error,
	insert func(context.Context, E) error,
) (stored, dupes, errs int) {
	for _, batch := range chunk(events, j.batchSize) {
		err := insertBulk(ctx, batch)
		if err == nil {
			stored += len(batch)
			continue
		}
		if !errors.Is(err, storage.ErrDuplicateKey) {
			errs += len(batch)
			j.logger.Error().Err(err).Int("batch", len(batch)).Msg("error storing batch")
			continue
		}

		// Insert one by one to find which are duplicates
		for _, e := range batch {
			switch err := insert(ctx, e); {
			case err == nil:
				stored++
			case errors.Is(err, storage.ErrDuplicateKey):
				dupes++
			default:
				errs++
				j.logger.Error().Err(err).Msg("error storing event")
			}
		}
	}
	return stored, dupes, errs
}
