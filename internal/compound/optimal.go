package compound

import (
	"fmt"
	"math/big"
)

// Swap is the solver result: swap Amount units of the pool asset at
// AssetIndex into the other side. A zero amount means already balanced.
type Swap struct {
	AssetIndex int
	Amount     *big.Int
}

// IsZero reports whether no swap is needed.
func (s Swap) IsZero() bool {
	return s.Amount == nil || s.Amount.Sign() == 0
}

// OptimalSwapAmount computes the trade that brings held balances (b0, b1)
// to the pool reserve ratio (r0, r1) along a constant-product curve with a
// proportional fee of feeBps deducted from the output.
//
// For asset 0 in excess the balancing size solves the quadratic
//
//	a*s^2 + b*s - c*r0 = 0
//	a = 10000 - fee
//	b = (20000 - fee) * r0
//	c = (b0*r1 - b1*r0) * 10000 / (b1 + r1)
//
// so s = (sqrt(b^2 + 4*a*c*r0) - b) / (2*a), rounded down. Rounding down
// never overshoots the balance point; the result is clamped to the held
// balance so the contract never offers more than it holds.
func OptimalSwapAmount(b0, b1, r0, r1 *big.Int, feeBps uint32) (Swap, error) {
	for _, v := range []*big.Int{b0, b1, r0, r1} {
		if v == nil || v.Sign() < 0 {
			return Swap{}, fmt.Errorf("%w: balances and reserves must be non-negative", ErrInvalidAmount)
		}
	}
	if feeBps >= 10000 {
		return Swap{}, fmt.Errorf("%w: fee %d bps consumes the whole output", ErrInvalidAmount, feeBps)
	}

	none := Swap{Amount: new(big.Int)}
	if r0.Sign() == 0 || r1.Sign() == 0 {
		return none, nil
	}
	if b0.Sign() == 0 && b1.Sign() == 0 {
		return none, nil
	}

	// Cross-multiplied comparison of b0/b1 against r0/r1 picks the excess side.
	left := new(big.Int).Mul(b0, r1)
	right := new(big.Int).Mul(b1, r0)
	switch left.Cmp(right) {
	case 0:
		return none, nil
	case 1:
		amount := balancingTrade(b0, b1, r0, r1, feeBps)
		if amount.Cmp(b0) > 0 {
			amount.Set(b0)
		}
		return Swap{AssetIndex: 0, Amount: amount}, nil
	default:
		amount := balancingTrade(b1, b0, r1, r0, feeBps)
		if amount.Cmp(b1) > 0 {
			amount.Set(b1)
		}
		return Swap{AssetIndex: 1, Amount: amount}, nil
	}
}

// balancingTrade solves the fee-adjusted quadratic for amtA in excess
// relative to resA. All divisions floor; callers rely on never overshooting.
func balancingTrade(amtA, amtB, resA, resB *big.Int, feeBps uint32) *big.Int {
	a := big.NewInt(int64(10000 - feeBps))
	b := new(big.Int).Mul(big.NewInt(int64(20000-feeBps)), resA)

	c := new(big.Int).Mul(amtA, resB)
	c.Sub(c, new(big.Int).Mul(amtB, resA))
	c.Mul(c, big.NewInt(10000))
	c.Quo(c, new(big.Int).Add(amtB, resB))
	c.Mul(c, resA)

	discriminant := new(big.Int).Mul(b, b)
	discriminant.Add(discriminant, new(big.Int).Mul(big.NewInt(4), new(big.Int).Mul(a, c)))

	root := new(big.Int).Sqrt(discriminant)
	root.Sub(root, b)
	if root.Sign() <= 0 {
		return new(big.Int)
	}
	return root.Quo(root, new(big.Int).Lsh(a, 1))
}
