package pair

import (
	"context"
	"math/big"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
)

// Querier reads collaborator state. Implementations must not cache
// balances: every step of a compound reads fresh values.
type Querier interface {
	// Balance returns holder's balance of the asset (zero if none).
	Balance(ctx context.Context, holder string, info asset.Info) (*big.Int, error)
	// PairInfo returns the pool metadata for a pair contract.
	PairInfo(ctx context.Context, pairContract string) (Info, error)
	// Simulate returns the expected output of swapping offer against the pair.
	Simulate(ctx context.Context, pairContract string, offer asset.Asset) (*big.Int, error)
}

// SwapOutput computes constant-product swap output with the pool fee, in
// basis points, deducted from the output. All rounding is downward.
func SwapOutput(offer, reserveIn, reserveOut *big.Int, feeBps uint32) *big.Int {
	if offer == nil || reserveIn == nil || reserveOut == nil {
		return new(big.Int)
	}
	if offer.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	// out = reserveOut * offer * (10000 - fee) / ((reserveIn + offer) * 10000)
	numerator := new(big.Int).Mul(reserveOut, offer)
	numerator.Mul(numerator, big.NewInt(int64(10000-feeBps)))
	denominator := new(big.Int).Add(reserveIn, offer)
	denominator.Mul(denominator, big.NewInt(10000))
	return numerator.Quo(numerator, denominator)
}
