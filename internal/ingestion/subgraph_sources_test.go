package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seer-airdrop/internal/config"
)

const day = int64(86400)

func addr(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

// fakeIndexer serves rows keyed by query name, applying the id_gt cursor,
// page size and the filters the real indexer would.
type fakeIndexer struct {
	mu       sync.Mutex
	rows     map[string][]map[string]any
	horizon  int64
	fail     map[string]int // query name -> HTTP status
	requests map[string]int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		rows:     make(map[string][]map[string]any),
		fail:     make(map[string]int),
		requests: make(map[string]int),
	}
}

func (f *fakeIndexer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if strings.Contains(req.Query, "_meta") {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"_meta": map[string]any{"block": map[string]any{"timestamp": f.horizon}}},
		})
		return
	}

	name := strings.Fields(strings.TrimPrefix(req.Query, "query "))[0]
	name = strings.SplitN(name, "(", 2)[0]

	f.mu.Lock()
	f.requests[name]++
	status := f.fail[name]
	all := f.rows[name]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	v := req.Variables
	cursor, _ := v["cursor"].(string)
	first := int(v["first"].(float64))

	var out []map[string]any
	for _, row := range all {
		if row["id"].(string) <= cursor || !matches(row, v) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["id"].(string) < out[j]["id"].(string) })
	if len(out) > first {
		out = out[:first]
	}

	json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"rows": out}})
}

// matches applies the window and *_in filters carried in variables.
func matches(row map[string]any, v map[string]any) bool {
	if from, ok := v["from"].(string); ok {
		ts, _ := strconv.ParseInt(row["timestamp"].(string), 10, 64)
		lo, _ := strconv.ParseInt(from, 10, 64)
		hi, _ := strconv.ParseInt(v["to"].(string), 10, 64)
		if ts < lo || ts >= hi {
			return false
		}
	}
	if tokens, ok := v["tokens"].([]any); ok {
		key, _ := row["_filter"].(string)
		if !contains(tokens, key) {
			return false
		}
	}
	if pools, ok := v["pools"].([]any); ok {
		key, _ := row["_filter"].(string)
		if !contains(pools, key) {
			return false
		}
	}
	return true
}

func contains(list []any, s string) bool {
	for _, x := range list {
		if x.(string) == s {
			return true
		}
	}
	return false
}

func (f *fakeIndexer) add(name string, row map[string]any) {
	f.rows[name] = append(f.rows[name], row)
}

func (f *fakeIndexer) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[name]
}

func newTestSource(t *testing.T, f *fakeIndexer, endpoints ...string) *SubgraphSource {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)

	if len(endpoints) == 0 {
		endpoints = []string{
			config.EndpointMarkets, config.EndpointTokens, config.EndpointPools,
			config.EndpointPositions, config.EndpointHumans,
		}
	}
	eps := make(map[string]string, len(endpoints))
	for _, name := range endpoints {
		eps[name] = server.URL
	}

	chain := config.ChainConfig{ID: 100, Name: "gnosis", Endpoints: eps}
	ing := config.IngestionConfig{
		PageSize:    2,
		Window:      24 * time.Hour,
		MaxInFlight: 4,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
	}
	return NewSubgraphSource(chain, ing, zerolog.Nop())
}

func transferRowJSON(id string, token, from, to int, value string, ts int64) map[string]any {
	return map[string]any{
		"id":          id,
		"token":       addr(token),
		"from":        addr(from),
		"to":          addr(to),
		"value":       value,
		"timestamp":   strconv.FormatInt(ts, 10),
		"blockNumber": strconv.FormatInt(ts/5, 10),
		"_filter":     addr(token),
	}
}

func TestSubgraphSource_Transfers(t *testing.T) {
	f := newFakeIndexer()
	f.add("Transfers", transferRowJSON("t1", 0xa1, 0, 0xb1, "100", 10))
	f.add("Transfers", transferRowJSON("t2", 0xa1, 0xb1, 0xb2, "60", 20))
	f.add("Transfers", transferRowJSON("t3", 0xa1, 0xb1, 0xb3, "40", 30))
	f.add("Transfers", transferRowJSON("t4", 0xa1, 0xb2, 0xb3, "5", day+1))
	f.add("Transfers", transferRowJSON("t5", 0xa2, 0xb2, 0xb3, "5", 40))
	// Not requested.
	f.add("Transfers", transferRowJSON("t6", 0xa9, 0xb2, 0xb3, "5", 40))
	// Undecodable value is skipped.
	f.add("Transfers", transferRowJSON("t7", 0xa1, 0xb2, 0xb3, "not-a-number", 50))

	src := newTestSource(t, f)
	tokens := []common.Address{common.HexToAddress(addr(0xa1)), common.HexToAddress(addr(0xa2))}

	events, err := src.Transfers(context.Background(), tokens, 0, 2*day-1)
	require.NoError(t, err)

	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"t1", "t2", "t3", "t5", "t4"}, ids)
	assert.NoError(t, ValidateTransferOrdering(events))

	assert.True(t, events[0].IsMint())
	assert.Equal(t, int64(60), events[1].Value.Int64())
	assert.Equal(t, common.HexToAddress(addr(0xb2)), events[1].To)

	// Day one holds five matching rows (pages of 2, 2, 1); day two one row.
	assert.Equal(t, 4, f.count("Transfers"))
}

func TestSubgraphSource_TransfersNoTokens(t *testing.T) {
	f := newFakeIndexer()
	src := newTestSource(t, f)

	events, err := src.Transfers(context.Background(), nil, 0, day)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, f.count("Transfers"))
}

func TestSubgraphSource_Markets(t *testing.T) {
	f := newFakeIndexer()
	f.add("Markets", map[string]any{
		"id":              addr(0x01),
		"collateralToken": addr(0xc0),
		"wrappedTokens":   []string{addr(0xa1), addr(0xa2)},
	})
	f.add("Markets", map[string]any{
		"id":              addr(0x02),
		"collateralToken": addr(0xc0),
		"wrappedTokens":   []string{addr(0xa2), addr(0xa3)},
	})

	markets, err := newTestSource(t, f).Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, common.HexToAddress(addr(0xc0)), markets[0].CollateralToken)

	tokens := OutcomeTokens(markets)
	assert.Len(t, tokens, 3)
}

func poolRowJSON(id, t0, t1 int) map[string]any {
	return map[string]any{
		"id":     addr(id),
		"token0": map[string]any{"id": addr(t0)},
		"token1": map[string]any{"id": addr(t1)},
	}
}

func TestSubgraphSource_PoolsDeduplicated(t *testing.T) {
	f := newFakeIndexer()
	// The fake filters on _filter; register each pool under the matching side.
	p1 := poolRowJSON(0xd1, 0xa1, 0xa2)
	p1["_filter"] = addr(0xa1)
	f.add("PoolsByToken0", p1)
	p1b := poolRowJSON(0xd1, 0xa1, 0xa2)
	p1b["_filter"] = addr(0xa2)
	f.add("PoolsByToken1", p1b)
	p2 := poolRowJSON(0xd2, 0xc0, 0xa1)
	p2["_filter"] = addr(0xa1)
	f.add("PoolsByToken1", p2)

	tokens := []common.Address{common.HexToAddress(addr(0xa1)), common.HexToAddress(addr(0xa2))}
	pools, err := newTestSource(t, f).Pools(context.Background(), tokens)
	require.NoError(t, err)

	require.Len(t, pools, 2)
	assert.Equal(t, common.HexToAddress(addr(0xd1)), pools[0].ID)
	assert.Equal(t, common.HexToAddress(addr(0xc0)), pools[1].Token0)
}

func TestSubgraphSource_PoolPrices(t *testing.T) {
	f := newFakeIndexer()
	for i, start := range []int64{7200, 3600, 0} {
		f.add("PoolPrices", map[string]any{
			"id":              fmt.Sprintf("p-%d", i),
			"pool":            map[string]any{"id": addr(0xd1)},
			"token0Price":     "0.5",
			"token1Price":     "2",
			"sqrtPrice":       "56022770974786139918731938227",
			"periodStartUnix": start,
			"_filter":         addr(0xd1),
		})
	}

	prices, err := newTestSource(t, f).PoolPrices(context.Background(), []common.Address{common.HexToAddress(addr(0xd1))}, 7200)
	require.NoError(t, err)

	series := prices[common.HexToAddress(addr(0xd1))]
	require.Len(t, series, 3)
	assert.Equal(t, int64(0), series[0].PeriodStartUnix)
	assert.Equal(t, int64(7200), series[2].PeriodStartUnix)
	assert.Equal(t, "0.5", series[0].Token0Price.String())
}

func TestSubgraphSource_PositionSnapshotsKeepMissingFieldsNil(t *testing.T) {
	f := newFakeIndexer()
	f.add("PositionSnapshots", map[string]any{
		"id": "s1",
		"position": map[string]any{
			"id":        "pos-1",
			"tickLower": "-120",
			"tickUpper": "120",
			"pool":      poolRowJSON(0xd1, 0xa1, 0xa2),
		},
		"tick":        nil,
		"liquidity":   "1000",
		"totalSupply": "10",
		"from":        addr(0xb1),
		"to":          addr(0xb2),
		"value":       "5",
		"timestamp":   "100",
		"blockNumber": "20",
	})

	snaps, err := newTestSource(t, f).PositionSnapshots(context.Background(), 0, day)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	s := snaps[0]
	require.NotNil(t, s.TickLower)
	assert.Equal(t, -120, *s.TickLower)
	assert.Nil(t, s.CurrentTick)
	assert.Equal(t, int64(1000), s.Liquidity.Int64())
	assert.Equal(t, common.HexToAddress(addr(0xa2)), s.Token1)
}

func TestSubgraphSource_LiquidityEvents(t *testing.T) {
	f := newFakeIndexer()
	row := func(id string, ts int64) map[string]any {
		return map[string]any{
			"id":          id,
			"pool":        poolRowJSON(0xd1, 0xa1, 0xa2),
			"amount0":     "10",
			"amount1":     "20",
			"origin":      addr(0xb1),
			"timestamp":   strconv.FormatInt(ts, 10),
			"transaction": map[string]any{"blockNumber": "7"},
			"_filter":     addr(0xd1),
		}
	}
	f.add("Mints", row("m1", 50))
	f.add("Burns", row("b1", 40))

	events, err := newTestSource(t, f).LiquidityEvents(context.Background(), []common.Address{common.HexToAddress(addr(0xd1))}, 0, day)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b1", events[0].ID)
	assert.Equal(t, "burn", string(events[0].Kind))
	assert.Equal(t, "mint", string(events[1].Kind))
}

func TestSubgraphSource_HumansAndHorizon(t *testing.T) {
	f := newFakeIndexer()
	f.horizon = 1_700_000_000
	f.add("Humans", map[string]any{"id": addr(0xb1)})
	f.add("Humans", map[string]any{"id": addr(0xb2)})
	f.add("Humans", map[string]any{"id": addr(0xb3)})

	src := newTestSource(t, f)

	humans, err := src.VerifiedHumans(context.Background())
	require.NoError(t, err)
	assert.Len(t, humans, 3)
	assert.True(t, humans[common.HexToAddress(addr(0xb2))])

	ts, err := src.LatestIndexedTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), ts)
}

func TestSubgraphSource_MissingEndpoint(t *testing.T) {
	src := newTestSource(t, newFakeIndexer(), config.EndpointMarkets)

	_, err := src.VerifiedHumans(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingEndpoint)

	_, err = src.PositionSnapshots(context.Background(), 0, day)
	assert.ErrorIs(t, err, config.ErrMissingEndpoint)
}

func TestSubgraphSource_RetryExhaustionIsIngestionFailure(t *testing.T) {
	f := newFakeIndexer()
	f.fail["Transfers"] = http.StatusBadGateway

	src := newTestSource(t, f)
	_, err := src.Transfers(context.Background(), []common.Address{common.HexToAddress(addr(0xa1))}, 0, day-1)
	require.Error(t, err)

	var failure *IngestionFailure
	require.True(t, errors.As(err, &failure), "expected IngestionFailure, got %v", err)
	assert.Equal(t, KindTransfers, failure.Kind)
	assert.Equal(t, Window{From: 0, To: day}, failure.Window)
	// MaxAttempts is 2.
	assert.Equal(t, 2, f.count("Transfers"))
}
