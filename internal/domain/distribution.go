package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DistributionRecord is one holder's allocation for one snapshot.
// Corresponds to airdrop_distributions table in PostgreSQL.
// Natural key: (Holder, ChainID, Timestamp).
type DistributionRecord struct {
	Holder                 common.Address
	ChainID                int64
	Timestamp              int64
	DirectHolding          decimal.Decimal
	IndirectHolding        decimal.Decimal
	LoyaltyHolding         decimal.Decimal
	ShareOfHolding         float64 // proportional scheme
	ShareOfHoldingVerified float64 // verified-human sqrt scheme
	ShareOfHoldingLoyalty  float64 // loyalty-token scheme
	AllocatedAmount        decimal.Decimal
	OutcomeTokensCount     int
}
