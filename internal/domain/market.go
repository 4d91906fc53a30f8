package domain

import "github.com/ethereum/go-ethereum/common"

// Market is a prediction market with one wrapped ERC20 per outcome.
type Market struct {
	ID              common.Address
	CollateralToken common.Address
	OutcomeTokens   []common.Address
}
