// Command airdrop computes the daily airdrop distribution of each configured
// chain. Per chain: scheduler decision → snapshot run → persist → commit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"seer-airdrop/internal/config"
	"seer-airdrop/internal/ingestion"
	"seer-airdrop/internal/observability"
	"seer-airdrop/internal/orchestrator"
	"seer-airdrop/internal/scheduler"
	"seer-airdrop/internal/storage"
	"seer-airdrop/internal/storage/memory"
	"seer-airdrop/internal/storage/migrations"
	pgstore "seer-airdrop/internal/storage/postgres"
)

// chainList collects repeated --chain flags.
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

type stores struct {
	distribution storage.DistributionStore
	state        storage.SchedulerStateStore
}

func main() {
	config.LoadEnvFile(".env")

	var chains chainList
	configPath := flag.String("config", envOr("AIRDROP_CONFIG", "config.yaml"), "Path to the YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (overrides config)")
	flag.Var(&chains, "chain", "Chain name or id to run (repeatable, default all)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	nowFlag := flag.String("now", "", "Override the current time (RFC3339 or unix seconds)")
	forceTimestamp := flag.Int64("force-timestamp", 0, "Compute this snapshot timestamp regardless of the scheduler")

	flag.Parse()

	logger := observability.NewLogger("airdrop")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	if *postgresDSN == "" {
		*postgresDSN = cfg.PostgresDSN
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	now := time.Now().Unix()
	if *nowFlag != "" {
		now, err = parseTime(*nowFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse --now")
		}
	}

	if *metricsAddr != "" {
		go observability.Serve(*metricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := createStores(ctx, logger, *postgresDSN, *useMemory)
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
		if err := runChain(ctx, logger, cfg, chain, st, now, *forceTimestamp); err != nil {
			failed++
			logger.Error().Err(err).Str("chain", chain.Name).Msg("chain run failed")
		}
	}
	if failed > 0 {
		cleanup()
		logger.Fatal().Int("failed", failed).Msg("airdrop run finished with errors")
	}
	logger.Info().Int("chains", len(selected)).Msg("airdrop run complete")
}

func runChain(ctx context.Context, logger zerolog.Logger, cfg *config.Config, chain config.ChainConfig, st stores, now, force int64) error {
	logger = logger.With().Str("chain", chain.Name).Logger()

	src := ingestion.NewSubgraphSource(chain, cfg.Ingestion, logger)
	sched := scheduler.New(scheduler.Options{
		Chain:   chain.Name,
		Store:   st.state,
		Horizon: src,
	})

	var decision scheduler.Decision
	if force > 0 {
		decision = scheduler.Decision{Snapshot: force, Proceed: true}
		logger.Warn().Int64("snapshot", force).Msg("forced snapshot, scheduler state left untouched")
	} else {
		d, err := sched.Next(ctx, now)
		if errors.Is(err, config.ErrMissingEndpoint) {
			logger.Warn().Err(err).Msg("chain not configured for scheduling, skipping")
			return nil
		}
		if err != nil {
			return err
		}
		decision = d
	}
	if !decision.Proceed {
		logger.Info().
			Int64("snapshot", decision.Snapshot).
			Int64("latest_available", decision.LatestAvailable).
			Str("reason", decision.Reason).
			Msg("snapshot skipped")
		return nil
	}

	orch := orchestrator.New(orchestrator.Options{
		Chain:             chain,
		Distribution:      cfg.Distribution,
		Sources:           ingestion.NewSources(src),
		DistributionStore: st.distribution,
		Logger:            logger,
	})
	if _, err := orch.Run(ctx, decision.Snapshot); err != nil {
		return err
	}

	if force > 0 {
		return nil
	}
	next, err := sched.Commit(ctx, decision.Snapshot)
	if err != nil {
		return err
	}
	logger.Info().Int64("next_snapshot", next).Msg("scheduler advanced")
	return nil
}

func createStores(ctx context.Context, logger zerolog.Logger, dsn string, useMemory bool) (stores, func(), error) {
	if useMemory {
		return stores{
			distribution: memory.NewDistributionStore(),
			state:        memory.NewSchedulerStateStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	if len(applied) > 0 {
		logger.Info().Strs("migrations", applied).Msg("applied postgres migrations")
	}

	return stores{
		distribution: pgstore.NewDistributionStore(pool),
		state:        pgstore.NewSchedulerStateStore(pool),
	}, pool.Close, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseTime accepts RFC3339 or unix seconds.
func parseTime(s string) (int64, error) {
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Unix(), nil
}
