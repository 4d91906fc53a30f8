// Package lookup resolves token prices from time-ordered pool price samples.
package lookup

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"seer-airdrop/internal/domain"
)

// pricePrecision is the number of decimal places kept by derived prices.
const pricePrecision = 36

var q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// PriceAt returns the latest sample with PeriodStartUnix <= target.
// points must be sorted by PeriodStartUnix ascending.
// A sample with both prices zero and a non-zero sqrt price gets its prices
// derived from the sqrt price.
func PriceAt(points []domain.PricePoint, target int64) (domain.PricePoint, bool) {
	i := sort.Search(len(points), func(i int) bool {
		return points[i].PeriodStartUnix > target
	})
	if i == 0 {
		return domain.PricePoint{}, false
	}
	p := points[i-1]
	if p.Token0Price.IsZero() && p.Token1Price.IsZero() && p.SqrtPrice != nil && p.SqrtPrice.Sign() != 0 {
		p.Token0Price, p.Token1Price = FromSqrtPrice(p.SqrtPrice)
	}
	return p, true
}

// FromSqrtPrice converts a Q96 sqrt price into (price0, price1) where
// price0 = sqrtPrice^2 / 2^192 and price1 = 1 / price0.
func FromSqrtPrice(sqrtPrice *big.Int) (price0, price1 decimal.Decimal) {
	sq := new(big.Int).Mul(sqrtPrice, sqrtPrice)
	price0 = decimal.NewFromBigInt(sq, 0).DivRound(q192, pricePrecision)
	if price0.IsZero() {
		return price0, decimal.Zero
	}
	return price0, decimal.NewFromInt(1).DivRound(price0, pricePrecision)
}

// Resolver values tokens against a reference token using the pools that
// pair them.
type Resolver struct {
	pools  []domain.Pool
	series map[common.Address][]domain.PricePoint
}

// NewResolver indexes pools and their price samples. Samples are copied
// and sorted per pool.
func NewResolver(pools []domain.Pool, points []domain.PricePoint) *Resolver {
	r := &Resolver{
		pools:  append([]domain.Pool(nil), pools...),
		series: make(map[common.Address][]domain.PricePoint),
	}
	sort.Slice(r.pools, func(i, j int) bool {
		return bytes.Compare(r.pools[i].ID[:], r.pools[j].ID[:]) < 0
	})
	for _, p := range points {
		r.series[p.Pool] = append(r.series[p.Pool], p)
	}
	for pool, s := range r.series {
		sort.SliceStable(s, func(i, j int) bool {
			return s[i].PeriodStartUnix < s[j].PeriodStartUnix
		})
		r.series[pool] = s
	}
	return r
}

// PriceOf returns the value of one whole token in reference units at target.
// The reference token is worth 1. A token with no pool against the reference,
// or no sample at or before target, is worth 0.
func (r *Resolver) PriceOf(token, reference common.Address, target int64) decimal.Decimal {
	if token == reference {
		return decimal.NewFromInt(1)
	}
	for i := range r.pools {
		pool := &r.pools[i]
		if !pool.Has(token) || !pool.Has(reference) {
			continue
		}
		p, ok := PriceAt(r.series[pool.ID], target)
		if !ok {
			continue
		}
		if pool.Token0 == token {
			return p.Token0Price
		}
		return p.Token1Price
	}
	return decimal.Zero
}

// Prices resolves every token in tokens at once.
func (r *Resolver) Prices(tokens []common.Address, reference common.Address, target int64) map[common.Address]decimal.Decimal {
	out := make(map[common.Address]decimal.Decimal, len(tokens))
	for _, t := range tokens {
		out[t] = r.PriceOf(t, reference, target)
	}
	return out
}
