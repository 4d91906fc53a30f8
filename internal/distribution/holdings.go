package distribution

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"seer-airdrop/internal/domain"
)

// Balances maps holder -> token -> raw balance.
type Balances map[common.Address]map[common.Address]*big.Int

// HoldingsInput is everything needed to value holders at one snapshot.
type HoldingsInput struct {
	Timestamp int64
	// Decimals scales raw balances into whole tokens.
	Decimals int32
	// OutcomeTokens restricts both direct and indirect holdings; nil counts
	// every token.
	OutcomeTokens map[common.Address]bool
	Direct        Balances
	Indirect      Balances
	// Loyalty holds raw loyalty-token balances.
	Loyalty map[common.Address]*big.Int
	Humans  map[common.Address]bool
	// Prices maps token to its whole-token value in reference units.
	// Missing tokens are worth 0.
	Prices map[common.Address]decimal.Decimal
}

// BuildSnapshots values every holder of in and returns one snapshot per
// holder, sorted by address. The zero address is never included.
func BuildSnapshots(in HoldingsInput) []domain.HolderSnapshot {
	holders := make(map[common.Address]struct{})
	for h := range in.Direct {
		holders[h] = struct{}{}
	}
	for h := range in.Indirect {
		holders[h] = struct{}{}
	}
	for h, b := range in.Loyalty {
		if b != nil && b.Sign() > 0 {
			holders[h] = struct{}{}
		}
	}
	delete(holders, domain.ZeroAddress)

	out := make([]domain.HolderSnapshot, 0, len(holders))
	for h := range holders {
		direct, count := in.value(in.Direct[h])
		indirect, _ := in.value(in.Indirect[h])

		loyalty := decimal.Zero
		if b := in.Loyalty[h]; b != nil && b.Sign() > 0 {
			loyalty = decimal.NewFromBigInt(b, -in.Decimals)
		}

		out = append(out, domain.HolderSnapshot{
			Holder:               h,
			DirectHoldingValue:   direct,
			IndirectHoldingValue: indirect,
			IsVerifiedHuman:      in.Humans[h],
			LoyaltyTokenBalance:  loyalty,
			OutcomeTokensCount:   count,
			Timestamp:            in.Timestamp,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Holder[:], out[j].Holder[:]) < 0
	})
	return out
}

// value sums price * balance over positive outcome-token balances. The second
// result is how many outcome tokens were held.
func (in HoldingsInput) value(tokens map[common.Address]*big.Int) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for token, bal := range tokens {
		if bal == nil || bal.Sign() <= 0 {
			continue
		}
		if in.OutcomeTokens != nil && !in.OutcomeTokens[token] {
			continue
		}
		count++
		price, ok := in.Prices[token]
		if !ok || price.IsZero() {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromBigInt(bal, -in.Decimals)))
	}
	return total, count
}
