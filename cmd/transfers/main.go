// Command transfers copies raw outcome-token transfers and pool mints/burns
// into ClickHouse, resuming from the max stored timestamp of each chain.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"seer-airdrop/internal/config"
	"seer-airdrop/internal/ingestion"
	"seer-airdrop/internal/observability"
	"seer-airdrop/internal/storage"
	chstore "seer-airdrop/internal/storage/clickhouse"
	"seer-airdrop/internal/storage/memory"
	"seer-airdrop/internal/storage/migrations"
)

type chainList []string

func (c *chainList) String() string { return strings.Join(*c, ",") }

func (c *chainList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*c = append(*c, part)
		}
	}
	return nil
}

func main() {
	config.LoadEnvFile(".env")

	var chains chainList
	configPath := flag.String("config", envOr("AIRDROP_CONFIG", "config.yaml"), "Path to the YAML config file")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (overrides config)")
	flag.Var(&chains, "chain", "Chain name or id to run (repeatable, default all)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	batchSize := flag.Int("batch-size", 1000, "Rows per bulk insert")

	flag.Parse()

	logger := observability.NewLogger("transfers")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = cfg.ClickhouseDSN
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal().Msg("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transferStore, liquidityStore, cleanup, err := createStores(ctx, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	selected, err := cfg.Select(chains)
	if err != nil {
		logger.Fatal().Err(err).Msg("select chains")
	}

	failed := 0
	for _, chain := range selected {
		if err := runChain(ctx, logger, cfg, chain, transferStore, liquidityStore, *batchSize); err != nil {
			failed++
			logger.Error().Err(err).Str("chain", chain.Name).Msg("history run failed")
		}
	}
	if failed > 0 {
		cleanup()
		logger.Fatal().Int("failed", failed).Msg("history run finished with errors")
	}
}

func runChain(ctx context.Context, logger zerolog.Logger, cfg *config.Config, chain config.ChainConfig,
	transfers storage.TransferHistoryStore, liquidity storage.LiquidityHistoryStore, batchSize int) error {
	logger = logger.With().Str("chain", chain.Name).Logger()
	src := ingestion.NewSubgraphSource(chain, cfg.Ingestion, logger)

	job := ingestion.NewHistoryJob(ingestion.HistoryOptions{
		ChainID:        chain.ID,
		ChainName:      chain.Name,
		Sources:        ingestion.NewSources(src),
		TransferStore:  transfers,
		LiquidityStore: liquidity,
		StartTimestamp: chain.StartTimestamp,
		BatchSize:      batchSize,
		Logger:         logger,
	})

	_, err := job.Run(ctx)
	if errors.Is(err, config.ErrMissingEndpoint) {
		logger.Warn().Err(err).Msg("chain not configured for history, skipping")
		return nil
	}
	return err
}

func createStores(ctx context.Context, dsn string, useMemory bool) (storage.TransferHistoryStore, storage.LiquidityHistoryStore, func(), error) {
	if useMemory {
		return memory.NewTransferHistoryStore(), memory.NewLiquidityHistoryStore(), func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	return chstore.NewTransferHistoryStore(conn), chstore.NewLiquidityHistoryStore(conn), func() { _ = conn.Close() }, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
