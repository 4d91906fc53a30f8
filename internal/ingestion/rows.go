package ingestion

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"seer-airdrop/internal/domain"
)

type idRef struct {
	ID string `json:"id"`
}

type poolRef struct {
	ID     string `json:"id"`
	Token0 idRef  `json:"token0"`
	Token1 idRef  `json:"token1"`
}

type marketRow struct {
	ID              string   `json:"id"`
	CollateralToken string   `json:"collateralToken"`
	WrappedTokens   []string `json:"wrappedTokens"`
}

type transferRow struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Timestamp   string `json:"timestamp"`
	BlockNumber string `json:"blockNumber"`
}

type priceRow struct {
	ID              string `json:"id"`
	Pool            idRef  `json:"pool"`
	Token0Price     string `json:"token0Price"`
	Token1Price     string `json:"token1Price"`
	SqrtPrice       string `json:"sqrtPrice"`
	PeriodStartUnix int64  `json:"periodStartUnix"`
}

type positionRow struct {
	ID       string `json:"id"`
	Position struct {
		ID        string  `json:"id"`
		TickLower *string `json:"tickLower"`
		TickUpper *string `json:"tickUpper"`
		Pool      poolRef `json:"pool"`
	} `json:"position"`
	Tick        *string `json:"tick"`
	Liquidity   *string `json:"liquidity"`
	TotalSupply *string `json:"totalSupply"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Value       string  `json:"value"`
	Timestamp   string  `json:"timestamp"`
	BlockNumber string  `json:"blockNumber"`
}

type liquidityRow struct {
	ID          string  `json:"id"`
	Pool        poolRef `json:"pool"`
	Amount0     string  `json:"amount0"`
	Amount1     string  `json:"amount1"`
	Origin      string  `json:"origin"`
	Timestamp   string  `json:"timestamp"`
	Transaction struct {
		BlockNumber string `json:"blockNumber"`
	} `json:"transaction"`
}

// keyed rows expose the id used as the pagination cursor.
type keyed interface {
	rowKey() string
}

func rowID[T keyed](r T) string { return r.rowKey() }

func (r marketRow) rowKey() string    { return r.ID }
func (r transferRow) rowKey() string  { return r.ID }
func (r priceRow) rowKey() string     { return r.ID }
func (r positionRow) rowKey() string  { return r.ID }
func (r liquidityRow) rowKey() string { return r.ID }
func (r idRef) rowKey() string        { return r.ID }
func (r poolRef) rowKey() string      { return r.ID }

// parseAddress accepts 0x-prefixed 20-byte hex only.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: address %q", ErrInvalidRow, s)
	}
	return common.HexToAddress(s), nil
}

// parseAmount parses an on-chain uint256 decimal string.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidRow)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrInvalidRow, s, err)
	}
	return v.ToBig(), nil
}

// parseSigned parses a possibly negative integer string (ticks, signed amounts).
func parseSigned(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: integer %q", ErrInvalidRow, s)
	}
	return v, nil
}

func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: int %q", ErrInvalidRow, s)
	}
	return v, nil
}

// optionalInt parses a nullable tick; a missing value stays nil.
func optionalInt(s *string) (*int, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(*s)
	if err != nil {
		return nil, fmt.Errorf("%w: tick %q", ErrInvalidRow, *s)
	}
	return &v, nil
}

// optionalAmount parses a nullable uint256; a missing value stays nil.
func optionalAmount(s *string) (*big.Int, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	return parseAmount(*s)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: decimal %q", ErrInvalidRow, s)
	}
	return d, nil
}

func (r marketRow) toDomain() (domain.Market, error) {
	id, err := parseAddress(r.ID)
	if err != nil {
		return domain.Market{}, err
	}
	collateral, err := parseAddress(r.CollateralToken)
	if err != nil {
		return domain.Market{}, err
	}
	m := domain.Market{ID: id, CollateralToken: collateral}
	for _, t := range r.WrappedTokens {
		addr, err := parseAddress(t)
		if err != nil {
			return domain.Market{}, err
		}
		m.OutcomeTokens = append(m.OutcomeTokens, addr)
	}
	return m, nil
}

func (r transferRow) toDomain() (*domain.TransferEvent, error) {
	token, err := parseAddress(r.Token)
	if err != nil {
		return nil, err
	}
	from, err := parseAddress(r.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(r.To)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount(r.Value)
	if err != nil {
		return nil, err
	}
	ts, err := parseInt64(r.Timestamp)
	if err != nil {
		return nil, err
	}
	block, err := parseInt64(r.BlockNumber)
	if err != nil {
		return nil, err
	}
	return &domain.TransferEvent{
		ID:          r.ID,
		Token:       token,
		From:        from,
		To:          to,
		Value:       value,
		Timestamp:   ts,
		BlockNumber: block,
	}, nil
}

func (r poolRef) toDomain() (domain.Pool, error) {
	id, err := parseAddress(r.ID)
	if err != nil {
		return domain.Pool{}, err
	}
	t0, err := parseAddress(r.Token0.ID)
	if err != nil {
		return domain.Pool{}, err
	}
	t1, err := parseAddress(r.Token1.ID)
	if err != nil {
		return domain.Pool{}, err
	}
	return domain.Pool{ID: id, Token0: t0, Token1: t1}, nil
}

func (r priceRow) toDomain() (domain.PricePoint, error) {
	pool, err := parseAddress(r.Pool.ID)
	if err != nil {
		return domain.PricePoint{}, err
	}
	p0, err := parseDecimal(r.Token0Price)
	if err != nil {
		return domain.PricePoint{}, err
	}
	p1, err := parseDecimal(r.Token1Price)
	if err != nil {
		return domain.PricePoint{}, err
	}
	sqrt := new(big.Int)
	if r.SqrtPrice != "" {
		if sqrt, err = parseAmount(r.SqrtPrice); err != nil {
			return domain.PricePoint{}, err
		}
	}
	return domain.PricePoint{
		Pool:            pool,
		Token0Price:     p0,
		Token1Price:     p1,
		SqrtPrice:       sqrt,
		PeriodStartUnix: r.PeriodStartUnix,
	}, nil
}

// toDomain keeps missing tick/liquidity/supply fields as nil; the decomposer
// treats them as a data-integrity skip rather than failing the page.
func (r positionRow) toDomain() (*domain.PositionSnapshot, error) {
	pool, err := r.Position.Pool.toDomain()
	if err != nil {
		return nil, err
	}
	from, err := parseAddress(r.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(r.To)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount(r.Value)
	if err != nil {
		return nil, err
	}
	ts, err := parseInt64(r.Timestamp)
	if err != nil {
		return nil, err
	}
	block, err := parseInt64(r.BlockNumber)
	if err != nil {
		return nil, err
	}

	s := &domain.PositionSnapshot{
		ID:          r.ID,
		PositionID:  r.Position.ID,
		Pool:        pool.ID,
		Token0:      pool.Token0,
		Token1:      pool.Token1,
		Transfer:    domain.PositionTransfer{From: from, To: to, Value: value},
		Timestamp:   ts,
		BlockNumber: block,
	}
	if s.TickLower, err = optionalInt(r.Position.TickLower); err != nil {
		return nil, err
	}
	if s.TickUpper, err = optionalInt(r.Position.TickUpper); err != nil {
		return nil, err
	}
	if s.CurrentTick, err = optionalInt(r.Tick); err != nil {
		return nil, err
	}
	if s.Liquidity, err = optionalAmount(r.Liquidity); err != nil {
		return nil, err
	}
	if s.TotalSupply, err = optionalAmount(r.TotalSupply); err != nil {
		return nil, err
	}
	return s, nil
}

func (r liquidityRow) toDomain(kind domain.LiquidityEventKind) (*domain.LiquidityEvent, error) {
	pool, err := r.Pool.toDomain()
	if err != nil {
		return nil, err
	}
	a0, err := parseSigned(r.Amount0)
	if err != nil {
		return nil, err
	}
	a1, err := parseSigned(r.Amount1)
	if err != nil {
		return nil, err
	}
	origin, err := parseAddress(r.Origin)
	if err != nil {
		return nil, err
	}
	ts, err := parseInt64(r.Timestamp)
	if err != nil {
		return nil, err
	}
	block, err := parseInt64(r.Transaction.BlockNumber)
	if err != nil {
		return nil, err
	}
	return &domain.LiquidityEvent{
		ID:          r.ID,
		Pool:        pool.ID,
		Token0:      pool.Token0,
		Token1:      pool.Token1,
		Amount0:     a0,
		Amount1:     a1,
		Timestamp:   ts,
		BlockNumber: block,
		Origin:      origin,
		Kind:        kind,
	}, nil
}
