package ingestion

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"seer-airdrop/internal/config"
	"seer-airdrop/internal/domain"
	"seer-airdrop/internal/observability"
	"seer-airdrop/internal/subgraph"
)

// filterChunkSize bounds the length of *_in filters per request.
const filterChunkSize = 100

// SubgraphSource implements every source interface against the chain's
// indexing services. Page requests of all kinds share one in-flight limit.
type SubgraphSource struct {
	chain    config.ChainConfig
	clients  map[string]*subgraph.Client
	sem      *semaphore.Weighted
	pageSize int
	window   time.Duration
	inFlight int
	logger   zerolog.Logger
}

// NewSubgraphSource creates a source for one chain. Endpoints absent from the
// chain config are reported lazily as config.ErrMissingEndpoint by the
// operations that need them.
func NewSubgraphSource(chain config.ChainConfig, ing config.IngestionConfig, logger zerolog.Logger, opts ...subgraph.ClientOption) *SubgraphSource {
	policy := subgraph.RetryPolicy{
		MaxAttempts: ing.MaxAttempts,
		BaseDelay:   ing.BaseDelay,
		Multiplier:  ing.Multiplier,
	}
	logger = logger.With().Str("chain", chain.Name).Logger()

	base := []subgraph.ClientOption{
		subgraph.WithRetryPolicy(policy),
		subgraph.WithLogger(logger),
	}
	if ing.Timeout > 0 {
		base = append(base, subgraph.WithTimeout(ing.Timeout))
	}
	base = append(base, opts...)

	clients := make(map[string]*subgraph.Client, len(chain.Endpoints))
	for name := range chain.Endpoints {
		url, err := chain.Endpoint(name)
		if err != nil {
			continue
		}
		clients[name] = subgraph.NewClient(url, base...)
	}

	inFlight := ing.MaxInFlight
	if inFlight <= 0 {
		inFlight = config.DefaultMaxInFlight
	}
	pageSize := ing.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	window := ing.Window
	if window <= 0 {
		window = config.DefaultWindow
	}

	return &SubgraphSource{
		chain:    chain,
		clients:  clients,
		sem:      semaphore.NewWeighted(int64(inFlight)),
		pageSize: pageSize,
		window:   window,
		inFlight: inFlight,
		logger:   logger,
	}
}

func (s *SubgraphSource) client(name string) (*subgraph.Client, error) {
	c, ok := s.clients[name]
	if !ok {
		return nil, fmt.Errorf("chain %s endpoint %q: %w", s.chain.Name, name, config.ErrMissingEndpoint)
	}
	return c, nil
}

type rowsPage[R any] struct {
	Rows []R `json:"rows"`
}

// queryAll pages through query on client, holding one semaphore slot per request.
func queryAll[R keyed](ctx context.Context, s *SubgraphSource, client *subgraph.Client, kind, query string, vars map[string]any) ([]R, error) {
	fetch := func(ctx context.Context, cursor string) ([]R, error) {
		v := maps.Clone(vars)
		if v == nil {
			v = make(map[string]any, 2)
		}
		v["first"] = s.pageSize
		v["cursor"] = cursor

		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.sem.Release(1)

		start := time.Now()
		var page rowsPage[R]
		if err := client.Query(ctx, subgraph.Request{Kind: kind, Query: query, Variables: v}, &page); err != nil {
			return nil, err
		}
		observability.RecordPage(kind, len(page.Rows), time.Since(start).Seconds())
		return page.Rows, nil
	}
	return subgraph.Paginate(ctx, s.pageSize, "", fetch, rowID[R])
}

// windowTask is one (window, filter chunk) unit of a windowed fetch.
type windowTask struct {
	window Window
	filter []string
}

// queryWindows runs query once per window and filter chunk. A nil filters
// slice runs one task per window with no filter variable.
func queryWindows[R keyed](ctx context.Context, s *SubgraphSource, endpoint, kind, query, filterVar string, filters [][]string, from, to int64) ([]R, error) {
	client, err := s.client(endpoint)
	if err != nil {
		return nil, err
	}

	var tasks []windowTask
	for _, w := range Windows(from, to, s.window) {
		if filters == nil {
			tasks = append(tasks, windowTask{window: w})
			continue
		}
		for _, f := range filters {
			tasks = append(tasks, windowTask{window: w, filter: f})
		}
	}

	return fanOut(ctx, s.inFlight, tasks, func(ctx context.Context, t windowTask) ([]R, error) {
		vars := map[string]any{
			"from": strconv.FormatInt(t.window.From, 10),
			"to":   strconv.FormatInt(t.window.To, 10),
		}
		if t.filter != nil {
			vars[filterVar] = t.filter
		}
		rows, err := queryAll[R](ctx, s, client, kind, query, vars)
		if err != nil {
			return nil, s.failure(kind, t.window, err)
		}
		return rows, nil
	})
}

func (s *SubgraphSource) failure(kind string, w Window, err error) error {
	observability.RecordIngestionFailure(kind)
	s.logger.Error().
		Err(err).
		Str("kind", kind).
		Int64("from", w.From).
		Int64("to", w.To).
		Msg("ingestion failed")
	return &IngestionFailure{Kind: kind, Window: w, Err: err}
}

// decodeRows converts raw rows, skipping and logging rows that fail to decode.
func decodeRows[R, D any](s *SubgraphSource, kind string, rows []R, conv func(R) (D, error)) []D {
	out := make([]D, 0, len(rows))
	for _, r := range rows {
		d, err := conv(r)
		if err != nil {
			observability.RecordSkipped("invalid_row")
			s.logger.Warn().Err(err).Str("kind", kind).Msg("skipping invalid row")
			continue
		}
		out = append(out, d)
	}
	return out
}

func hexChunks(addrs []common.Address) [][]string {
	ids := make([]string, len(addrs))
	for i, a := range addrs {
		ids[i] = strings.ToLower(a.Hex())
	}
	return chunk(ids, filterChunkSize)
}

// Markets implements MarketSource.
func (s *SubgraphSource) Markets(ctx context.Context) ([]domain.Market, error) {
	client, err := s.client(config.EndpointMarkets)
	if err != nil {
		return nil, err
	}
	rows, err := queryAll[marketRow](ctx, s, client, KindMarkets, marketsQuery, nil)
	if err != nil {
		return nil, s.failure(KindMarkets, Window{}, err)
	}
	return decodeRows(s, KindMarkets, rows, marketRow.toDomain), nil
}

// Transfers implements TransferSource.
func (s *SubgraphSource) Transfers(ctx context.Context, tokens []common.Address, from, to int64) ([]*domain.TransferEvent, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	rows, err := queryWindows[transferRow](ctx, s, config.EndpointTokens, KindTransfers, transfersQuery, "tokens", hexChunks(tokens), from, to)
	if err != nil {
		return nil, err
	}
	events := decodeRows(s, KindTransfers, rows, transferRow.toDomain)
	SortTransfers(events)
	return events, nil
}

// Pools implements PoolSource. A pool matching on both sides is returned once.
func (s *SubgraphSource) Pools(ctx context.Context, tokens []common.Address) ([]domain.Pool, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	client, err := s.client(config.EndpointPools)
	if err != nil {
		return nil, err
	}

	var rows []poolRef
	for _, ids := range hexChunks(tokens) {
		for _, q := range []string{poolsByToken0Query, poolsByToken1Query} {
			page, err := queryAll[poolRef](ctx, s, client, KindPools, q, map[string]any{"tokens": ids})
			if err != nil {
				return nil, s.failure(KindPools, Window{}, err)
			}
			rows = append(rows, page...)
		}
	}

	seen := make(map[common.Address]bool, len(rows))
	var pools []domain.Pool
	for _, p := range decodeRows(s, KindPools, rows, poolRef.toDomain) {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		pools = append(pools, p)
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].ID.Cmp(pools[j].ID) < 0
	})
	return pools, nil
}

// PoolPrices implements PoolSource.
func (s *SubgraphSource) PoolPrices(ctx context.Context, pools []common.Address, to int64) (map[common.Address][]domain.PricePoint, error) {
	out := make(map[common.Address][]domain.PricePoint)
	if len(pools) == 0 {
		return out, nil
	}
	client, err := s.client(config.EndpointPools)
	if err != nil {
		return nil, err
	}

	rows, err := fanOut(ctx, s.inFlight, hexChunks(pools), func(ctx context.Context, ids []string) ([]priceRow, error) {
		return queryAll[priceRow](ctx, s, client, KindPrices, poolPricesQuery, map[string]any{"pools": ids, "to": to})
	})
	if err != nil {
		return nil, s.failure(KindPrices, Window{To: to}, err)
	}

	for _, p := range decodeRows(s, KindPrices, rows, priceRow.toDomain) {
		out[p.Pool] = append(out[p.Pool], p)
	}
	for _, series := range out {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].PeriodStartUnix < series[j].PeriodStartUnix
		})
	}
	return out, nil
}

// PositionSnapshots implements PositionSource.
func (s *SubgraphSource) PositionSnapshots(ctx context.Context, from, to int64) ([]*domain.PositionSnapshot, error) {
	rows, err := queryWindows[positionRow](ctx, s, config.EndpointPositions, KindPositions, positionSnapshotsQuery, "", nil, from, to)
	if err != nil {
		return nil, err
	}
	snaps := decodeRows(s, KindPositions, rows, positionRow.toDomain)
	SortPositionSnapshots(snaps)
	return snaps, nil
}

// LiquidityEvents implements LiquidityEventSource.
func (s *SubgraphSource) LiquidityEvents(ctx context.Context, pools []common.Address, from, to int64) ([]*domain.LiquidityEvent, error) {
	if len(pools) == 0 {
		return nil, nil
	}
	filters := hexChunks(pools)

	mints, err := queryWindows[liquidityRow](ctx, s, config.EndpointPools, KindMints, mintsQuery, "pools", filters, from, to)
	if err != nil {
		return nil, err
	}
	burns, err := queryWindows[liquidityRow](ctx, s, config.EndpointPools, KindBurns, burnsQuery, "pools", filters, from, to)
	if err != nil {
		return nil, err
	}

	events := decodeRows(s, KindMints, mints, func(r liquidityRow) (*domain.LiquidityEvent, error) {
		return r.toDomain(domain.LiquidityMint)
	})
	events = append(events, decodeRows(s, KindBurns, burns, func(r liquidityRow) (*domain.LiquidityEvent, error) {
		return r.toDomain(domain.LiquidityBurn)
	})...)
	SortLiquidityEvents(events)
	return events, nil
}

// VerifiedHumans implements HumanSource.
func (s *SubgraphSource) VerifiedHumans(ctx context.Context) (map[common.Address]bool, error) {
	client, err := s.client(config.EndpointHumans)
	if err != nil {
		return nil, err
	}
	rows, err := queryAll[idRef](ctx, s, client, KindHumans, humansQuery, nil)
	if err != nil {
		return nil, s.failure(KindHumans, Window{}, err)
	}

	out := make(map[common.Address]bool, len(rows))
	for _, addr := range decodeRows(s, KindHumans, rows, func(r idRef) (common.Address, error) {
		return parseAddress(r.ID)
	}) {
		out[addr] = true
	}
	return out, nil
}

type metaResponse struct {
	Meta struct {
		Block struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"block"`
	} `json:"_meta"`
}

// LatestIndexedTimestamp implements HorizonSource using the token indexer.
func (s *SubgraphSource) LatestIndexedTimestamp(ctx context.Context) (int64, error) {
	client, err := s.client(config.EndpointTokens)
	if err != nil {
		return 0, err
	}
	var resp metaResponse
	if err := client.Query(ctx, subgraph.Request{Kind: KindMeta, Query: metaQuery}, &resp); err != nil {
		return 0, s.failure(KindMeta, Window{}, err)
	}
	if resp.Meta.Block.Timestamp <= 0 {
		return 0, s.failure(KindMeta, Window{}, errors.New("indexer reported no block timestamp"))
	}
	return resp.Meta.Block.Timestamp, nil
}

// NewSources wires a SubgraphSource into every slot of Sources.
func NewSources(src *SubgraphSource) Sources {
	return Sources{
		Markets:   src,
		Transfers: src,
		Pools:     src,
		Positions: src,
		Liquidity: src,
		Humans:    src,
		Horizon:   src,
	}
}
