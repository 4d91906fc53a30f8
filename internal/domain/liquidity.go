package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LiquidityEventKind distinguishes pool mints from burns.
type LiquidityEventKind string

// Liquidity event kind constants
const (
	LiquidityMint LiquidityEventKind = "mint"
	LiquidityBurn LiquidityEventKind = "burn"
)

// IsValid checks if the kind is a known value.
func (k LiquidityEventKind) IsValid() bool {
	return k == LiquidityMint || k == LiquidityBurn
}

// LiquidityEvent represents a concentrated-liquidity pool mint or burn.
// Corresponds to liquidity_history table in ClickHouse.
type LiquidityEvent struct {
	ID          string             // subgraph entity id
	Pool        common.Address     // pool address
	Token0      common.Address     // pool token0
	Token1      common.Address     // pool token1
	Amount0     *big.Int           // token0 amount added/removed
	Amount1     *big.Int           // token1 amount added/removed
	Timestamp   int64              // unix seconds
	BlockNumber int64              // block number
	Origin      common.Address     // transaction origin (EOA)
	Kind        LiquidityEventKind // mint | burn
}
