// Package liquidity converts concentrated-liquidity position shares into
// their underlying token amounts.
package liquidity

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/daoleno/uniswapv3-sdk/utils"
)

// ErrDataIntegrity marks a record that lacks the data needed to decompose it.
// Callers skip and log such records.
var ErrDataIntegrity = errors.New("data integrity")

// Q96 is 2^96, the fixed-point scale of sqrt prices.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// q192 is Q96 squared.
var q192 = new(big.Int).Lsh(big.NewInt(1), 192)

// SqrtRatioAtTick returns sqrt(1.0001^tick) * 2^96.
func SqrtRatioAtTick(tick int) (*big.Int, error) {
	r, err := utils.GetSqrtRatioAtTick(tick)
	if err != nil {
		return nil, fmt.Errorf("%w: tick %d: %v", ErrDataIntegrity, tick, err)
	}
	return r, nil
}

// inverse returns Q96*Q96/x, the Q96 reciprocal of a Q96 value.
func inverse(x *big.Int) *big.Int {
	return new(big.Int).Quo(q192, x)
}
