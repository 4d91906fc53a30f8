package liquidity

import (
	"fmt"
	"math/big"

	"seer-airdrop/internal/domain"
)

// LiquidityShare returns L*X/S, the liquidity owned by x of totalSupply shares.
func LiquidityShare(shares, totalSupply, liquidity *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() < 0 {
		return nil, fmt.Errorf("%w: missing or negative share amount", ErrDataIntegrity)
	}
	if totalSupply == nil || totalSupply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: zero total supply", ErrDataIntegrity)
	}
	if liquidity == nil || liquidity.Sign() < 0 {
		return nil, fmt.Errorf("%w: missing liquidity", ErrDataIntegrity)
	}
	l := new(big.Int).Mul(liquidity, shares)
	return l.Quo(l, totalSupply), nil
}

// AmountsForLiquidity splits deltaL of a [lower, upper) position into token
// amounts at current tick. Below the range the position is all token0; at or
// above the upper tick it is all token1.
func AmountsForLiquidity(deltaL *big.Int, lower, upper, current int) (amount0, amount1 *big.Int, err error) {
	if lower >= upper {
		return nil, nil, fmt.Errorf("%w: empty tick range [%d, %d)", ErrDataIntegrity, lower, upper)
	}
	sqrtL, err := SqrtRatioAtTick(lower)
	if err != nil {
		return nil, nil, err
	}
	sqrtU, err := SqrtRatioAtTick(upper)
	if err != nil {
		return nil, nil, err
	}

	amount0, amount1 = new(big.Int), new(big.Int)
	switch {
	case current < lower:
		// deltaL * (sqrtU - sqrtL) * Q96 / (sqrtL * sqrtU)
		num := new(big.Int).Sub(sqrtU, sqrtL)
		num.Mul(num, deltaL).Mul(num, Q96)
		den := new(big.Int).Mul(sqrtL, sqrtU)
		amount0.Quo(num, den)

	case current >= upper:
		// deltaL * (sqrtU - sqrtL) / Q96
		amount1.Sub(sqrtU, sqrtL).Mul(amount1, deltaL).Quo(amount1, Q96)

	default:
		sqrtC, err := SqrtRatioAtTick(current)
		if err != nil {
			return nil, nil, err
		}
		amount0.Sub(inverse(sqrtC), inverse(sqrtU)).Mul(amount0, deltaL).Quo(amount0, Q96)
		amount1.Sub(sqrtC, sqrtL).Mul(amount1, deltaL).Quo(amount1, Q96)
	}
	return amount0, amount1, nil
}

// DecomposeBurn returns the token amounts behind shares of a position with
// totalSupply shares and liquidity, at the given ticks. Missing ticks or
// liquidity and a zero supply are ErrDataIntegrity.
func DecomposeBurn(shares, totalSupply, liquidity *big.Int, lower, upper, current *int) (amount0, amount1 *big.Int, err error) {
	if lower == nil || upper == nil || current == nil {
		return nil, nil, fmt.Errorf("%w: missing tick data", ErrDataIntegrity)
	}
	deltaL, err := LiquidityShare(shares, totalSupply, liquidity)
	if err != nil {
		return nil, nil, err
	}
	return AmountsForLiquidity(deltaL, *lower, *upper, *current)
}

// DecomposeSnapshot decomposes the share transfer carried by s using the
// pool state recorded with it.
func DecomposeSnapshot(s *domain.PositionSnapshot) (amount0, amount1 *big.Int, err error) {
	return DecomposeBurn(s.Transfer.Value, s.TotalSupply, s.Liquidity, s.TickLower, s.TickUpper, s.CurrentTick)
}
