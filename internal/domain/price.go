package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pool is a concentrated-liquidity pool pairing two tokens.
type Pool struct {
	ID     common.Address
	Token0 common.Address
	Token1 common.Address
}

// Has reports whether token is one side of the pool.
func (p *Pool) Has(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// PricePoint is one periodic price sample of a pool.
// Token0Price is the price of one token0 expressed in token1; Token1Price is its reciprocal.
type PricePoint struct {
	Pool            common.Address
	Token0Price     decimal.Decimal
	Token1Price     decimal.Decimal
	SqrtPrice       *big.Int // Q96 sqrt price
	PeriodStartUnix int64
}
