package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// HolderSnapshot aggregates everything known about a holder at a snapshot timestamp.
type HolderSnapshot struct {
	Holder               common.Address
	DirectHoldingValue   decimal.Decimal // value of outcome tokens held in the wallet
	IndirectHoldingValue decimal.Decimal // value of tokens attributable to liquidity positions
	IsVerifiedHuman      bool
	LoyaltyTokenBalance  decimal.Decimal // whole-token loyalty balance
	OutcomeTokensCount   int             // distinct outcome tokens held directly
	Timestamp            int64
}

// TotalHolding returns direct + indirect holding value.
func (h *HolderSnapshot) TotalHolding() decimal.Decimal {
	return h.DirectHoldingValue.Add(h.IndirectHoldingValue)
}
