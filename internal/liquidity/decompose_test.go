package liquidity

import (
	"errors"
	"math/big"
	"testing"

	"seer-airdrop/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestSqrtRatioAtTick_Zero(t *testing.T) {
	r, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Cmp(Q96) != 0 {
		t.Errorf("expected 2^96 at tick 0, got %s", r)
	}
}

func TestSqrtRatioAtTick_OutOfBounds(t *testing.T) {
	_, err := SqrtRatioAtTick(900000)
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
}

func TestAmountsForLiquidity_AboveRange(t *testing.T) {
	// L=1000 over [0, 100] with the pool at tick 150 is entirely token1:
	// 1000 * (1.0001^50 - 1) ~= 5.01
	a0, a1, err := AmountsForLiquidity(big.NewInt(1000), 0, 100, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a0.Sign() != 0 {
		t.Errorf("expected amount0 0, got %s", a0)
	}
	if a1.Int64() != 5 {
		t.Errorf("expected amount1 5, got %s", a1)
	}
}

func TestAmountsForLiquidity_AtUpperTick(t *testing.T) {
	a0, a1, err := AmountsForLiquidity(big.NewInt(1000), 0, 100, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a0.Sign() != 0 || a1.Int64() != 5 {
		t.Errorf("expected (0, 5) at the upper tick, got (%s, %s)", a0, a1)
	}
}

func TestAmountsForLiquidity_BelowRange(t *testing.T) {
	// 1000 * (1 - 1/1.0001^50) ~= 4.99
	a0, a1, err := AmountsForLiquidity(big.NewInt(1000), 0, 100, -10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1.Sign() != 0 {
		t.Errorf("expected amount1 0, got %s", a1)
	}
	if a0.Int64() != 4 {
		t.Errorf("expected amount0 4, got %s", a0)
	}
}

func TestAmountsForLiquidity_EmptyRange(t *testing.T) {
	_, _, err := AmountsForLiquidity(big.NewInt(1000), 100, 100, 50)
	if !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
}

// mintAmounts computes the deposit required for liquidity l, rounding up
// like the pool contract does.
func mintAmounts(t *testing.T, l *big.Int, lower, upper, current int) (*big.Int, *big.Int) {
	t.Helper()
	sL, _ := SqrtRatioAtTick(lower)
	sU, _ := SqrtRatioAtTick(upper)
	sC, _ := SqrtRatioAtTick(current)

	ceilDiv := func(n, d *big.Int) *big.Int {
		q, r := new(big.Int).QuoRem(n, d, new(big.Int))
		if r.Sign() > 0 {
			q.Add(q, big.NewInt(1))
		}
		return q
	}

	num0 := new(big.Int).Sub(sU, sC)
	num0.Mul(num0, l).Mul(num0, Q96)
	amount0 := ceilDiv(num0, new(big.Int).Mul(sC, sU))

	num1 := new(big.Int).Sub(sC, sL)
	num1.Mul(num1, l)
	amount1 := ceilDiv(num1, Q96)
	return amount0, amount1
}

func TestDecomposeBurn_RoundTrip(t *testing.T) {
	l, _ := new(big.Int).SetString("1000000000000000000", 10)
	supply := big.NewInt(1_000_000)

	cases := []struct{ lower, upper, current int }{
		{-600, 600, 60},
		{-600, 600, -599},
		{1000, 5000, 4999},
		{-887220, 887220, 0},
	}
	for _, c := range cases {
		m0, m1 := mintAmounts(t, l, c.lower, c.upper, c.current)
		b0, b1, err := DecomposeBurn(supply, supply, l, intPtr(c.lower), intPtr(c.upper), intPtr(c.current))
		if err != nil {
			t.Fatalf("range [%d,%d) at %d: unexpected error: %v", c.lower, c.upper, c.current, err)
		}
		d0 := new(big.Int).Sub(m0, b0)
		d1 := new(big.Int).Sub(m1, b1)
		if d0.Sign() < 0 || d0.Cmp(big.NewInt(1)) > 0 {
			t.Errorf("range [%d,%d) at %d: expected amount0 within 1 of %s, got %s", c.lower, c.upper, c.current, m0, b0)
		}
		if d1.Sign() < 0 || d1.Cmp(big.NewInt(1)) > 0 {
			t.Errorf("range [%d,%d) at %d: expected amount1 within 1 of %s, got %s", c.lower, c.upper, c.current, m1, b1)
		}
	}
}

func TestDecomposeBurn_ProportionalShare(t *testing.T) {
	l := big.NewInt(1_000_000_000_000)
	supply := big.NewInt(100)

	full0, full1, err := DecomposeBurn(supply, supply, l, intPtr(-100), intPtr(100), intPtr(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	part0, part1, err := DecomposeBurn(big.NewInt(25), supply, l, intPtr(-100), intPtr(100), intPtr(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quarter0 := new(big.Int).Quo(full0, big.NewInt(4))
	quarter1 := new(big.Int).Quo(full1, big.NewInt(4))
	if part0.Cmp(new(big.Int).Add(quarter0, big.NewInt(1))) > 0 {
		t.Errorf("expected amount0 <= %s, got %s", quarter0, part0)
	}
	if part1.Cmp(new(big.Int).Add(quarter1, big.NewInt(1))) > 0 {
		t.Errorf("expected amount1 <= %s, got %s", quarter1, part1)
	}
}

func TestDecomposeBurn_DataIntegrity(t *testing.T) {
	l := big.NewInt(1000)
	cases := []struct {
		name                  string
		shares, supply, liq   *big.Int
		lower, upper, current *int
	}{
		{"zero supply", big.NewInt(1), big.NewInt(0), l, intPtr(0), intPtr(10), intPtr(5)},
		{"nil liquidity", big.NewInt(1), big.NewInt(1), nil, intPtr(0), intPtr(10), intPtr(5)},
		{"nil shares", nil, big.NewInt(1), l, intPtr(0), intPtr(10), intPtr(5)},
		{"missing current tick", big.NewInt(1), big.NewInt(1), l, intPtr(0), intPtr(10), nil},
		{"missing range", big.NewInt(1), big.NewInt(1), l, nil, nil, intPtr(5)},
	}
	for _, c := range cases {
		_, _, err := DecomposeBurn(c.shares, c.supply, c.liq, c.lower, c.upper, c.current)
		if !errors.Is(err, ErrDataIntegrity) {
			t.Errorf("%s: expected ErrDataIntegrity, got %v", c.name, err)
		}
	}
}

func TestDecomposeSnapshot(t *testing.T) {
	s := &domain.PositionSnapshot{
		TickLower:   intPtr(0),
		TickUpper:   intPtr(100),
		CurrentTick: intPtr(150),
		Liquidity:   big.NewInt(2000),
		TotalSupply: big.NewInt(10),
		Transfer:    domain.PositionTransfer{Value: big.NewInt(5)},
	}
	a0, a1, err := DecomposeSnapshot(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a0.Sign() != 0 || a1.Int64() != 5 {
		t.Errorf("expected (0, 5), got (%s, %s)", a0, a1)
	}
}
