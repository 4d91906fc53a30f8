package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PositionTransfer is the share movement carried by a position snapshot.
type PositionTransfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int // position shares moved
}

// PositionSnapshot represents one state change of a concentrated-liquidity
// position token: the share transfer plus the pool state at that moment.
type PositionSnapshot struct {
	ID          string
	PositionID  string
	Pool        common.Address
	Token0      common.Address
	Token1      common.Address
	TickLower   *int     // nil when the indexer has no range data
	TickUpper   *int     // nil when the indexer has no range data
	CurrentTick *int     // pool tick at Timestamp; nil when missing
	Liquidity   *big.Int // active position liquidity at Timestamp
	TotalSupply *big.Int // total position shares at Timestamp
	Transfer    PositionTransfer
	Timestamp   int64
	BlockNumber int64
}
