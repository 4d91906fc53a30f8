// Package distribution turns holder snapshots into weighted airdrop
// allocations.
package distribution

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"seer-airdrop/internal/domain"
)

// Default scheme weights.
const (
	DefaultHoldingWeight  = 0.25
	DefaultVerifiedWeight = 0.25
	DefaultLoyaltyWeight  = 0.5
)

const (
	shareScale = 18  // decimal places kept by share ratios
	floatPrec  = 256 // big.Float mantissa bits for square roots
)

// Config parameterizes a Calculator.
type Config struct {
	ChainID        int64
	DailyBudget    decimal.Decimal
	HoldingWeight  float64
	VerifiedWeight float64
	LoyaltyWeight  float64
	// Ignored holders never receive a loyalty share.
	Ignored map[common.Address]bool
}

// Calculator computes distribution records from holder snapshots.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator. All-zero weights fall back to the
// defaults.
func NewCalculator(cfg Config) *Calculator {
	if cfg.HoldingWeight == 0 && cfg.VerifiedWeight == 0 && cfg.LoyaltyWeight == 0 {
		cfg.HoldingWeight = DefaultHoldingWeight
		cfg.VerifiedWeight = DefaultVerifiedWeight
		cfg.LoyaltyWeight = DefaultLoyaltyWeight
	}
	return &Calculator{cfg: cfg}
}

// Compute applies the three schemes and blends them into allocations.
//
//   - proportional: total / Σ total over holders with total > 0
//   - verified: sqrt(total) / Σ sqrt(total) over verified humans
//   - loyalty: balance / Σ balance over non-ignored loyalty holders
//
// Each scheme sums to 1, or to 0 when nobody is eligible. Holders with all
// three shares at zero are omitted. Output keeps the input order.
func (c *Calculator) Compute(holders []domain.HolderSnapshot) []domain.DistributionRecord {
	totalSum := decimal.Zero
	loyaltySum := decimal.Zero
	sqrtSum := new(big.Float).SetPrec(floatPrec)
	roots := make([]*big.Float, len(holders))

	for i := range holders {
		h := &holders[i]
		if h.Holder == domain.ZeroAddress {
			continue
		}
		total := h.TotalHolding()
		if total.IsPositive() {
			totalSum = totalSum.Add(total)
			if h.IsVerifiedHuman {
				roots[i] = sqrt(total)
				sqrtSum.Add(sqrtSum, roots[i])
			}
		}
		if c.loyaltyEligible(h) {
			loyaltySum = loyaltySum.Add(h.LoyaltyTokenBalance)
		}
	}

	var out []domain.DistributionRecord
	for i := range holders {
		h := &holders[i]
		if h.Holder == domain.ZeroAddress {
			continue
		}

		var p, v, l float64
		if total := h.TotalHolding(); total.IsPositive() {
			p = ratio(total, totalSum)
		}
		if roots[i] != nil && sqrtSum.Sign() > 0 {
			v, _ = new(big.Float).SetPrec(floatPrec).Quo(roots[i], sqrtSum).Float64()
		}
		if c.loyaltyEligible(h) {
			l = ratio(h.LoyaltyTokenBalance, loyaltySum)
		}
		if p == 0 && v == 0 && l == 0 {
			continue
		}

		blend := c.cfg.HoldingWeight*p + c.cfg.VerifiedWeight*v + c.cfg.LoyaltyWeight*l
		out = append(out, domain.DistributionRecord{
			Holder:                 h.Holder,
			ChainID:                c.cfg.ChainID,
			Timestamp:              h.Timestamp,
			DirectHolding:          h.DirectHoldingValue,
			IndirectHolding:        h.IndirectHoldingValue,
			LoyaltyHolding:         h.LoyaltyTokenBalance,
			ShareOfHolding:         p,
			ShareOfHoldingVerified: v,
			ShareOfHoldingLoyalty:  l,
			AllocatedAmount:        c.cfg.DailyBudget.Mul(decimal.NewFromFloat(blend)),
			OutcomeTokensCount:     h.OutcomeTokensCount,
		})
	}
	return out
}

func (c *Calculator) loyaltyEligible(h *domain.HolderSnapshot) bool {
	return h.LoyaltyTokenBalance.IsPositive() && !c.cfg.Ignored[h.Holder]
}

func ratio(num, den decimal.Decimal) float64 {
	if !den.IsPositive() {
		return 0
	}
	return num.DivRound(den, shareScale).InexactFloat64()
}

func sqrt(d decimal.Decimal) *big.Float {
	f, _, err := big.ParseFloat(d.String(), 10, floatPrec, big.ToNearestEven)
	if err != nil {
		return new(big.Float).SetPrec(floatPrec)
	}
	return f.Sqrt(f)
}
