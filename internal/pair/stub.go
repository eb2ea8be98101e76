package pair

import (
	"context"
	"errors"
	"math/big"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
)

// ErrUnknownPair is returned by the stub for unregistered pair contracts.
var ErrUnknownPair = errors.New("unknown pair contract")

// StubQuerier implements Querier over in-memory state for tests.
type StubQuerier struct {
	FeeBps   uint32
	balances map[string]map[string]*big.Int
	pairs    map[string]Info
}

// NewStubQuerier creates an empty stub querier.
func NewStubQuerier() *StubQuerier {
	return &StubQuerier{
		balances: make(map[string]map[string]*big.Int),
		pairs:    make(map[string]Info),
	}
}

// SetBalance sets holder's balance of the asset.
func (s *StubQuerier) SetBalance(holder string, info asset.Info, amount *big.Int) {
	held, ok := s.balances[holder]
	if !ok {
		held = make(map[string]*big.Int)
		s.balances[holder] = held
	}
	held[info.String()] = new(big.Int).Set(amount)
}

// SetPair registers pool metadata for a pair contract.
func (s *StubQuerier) SetPair(info Info) {
	s.pairs[info.ContractAddr] = info
}

// Balance returns holder's balance, zero if unset.
func (s *StubQuerier) Balance(_ context.Context, holder string, info asset.Info) (*big.Int, error) {
	if held, ok := s.balances[holder]; ok {
		if amount, ok := held[info.String()]; ok {
			return new(big.Int).Set(amount), nil
		}
	}
	return new(big.Int), nil
}

// PairInfo returns registered pool metadata.
func (s *StubQuerier) PairInfo(_ context.Context, pairContract string) (Info, error) {
	info, ok := s.pairs[pairContract]
	if !ok {
		return Info{}, ErrUnknownPair
	}
	return info, nil
}

// Simulate computes the constant-product output from the pair's balances.
func (s *StubQuerier) Simulate(ctx context.Context, pairContract string, offer asset.Asset) (*big.Int, error) {
	info, err := s.PairInfo(ctx, pairContract)
	if err != nil {
		return nil, err
	}
	offerIdx := info.AssetIndex(offer.Info)
	if offerIdx < 0 {
		return nil, errors.New("offer asset not in pair")
	}
	reserveIn, err := s.Balance(ctx, pairContract, info.AssetInfos[offerIdx])
	if err != nil {
		return nil, err
	}
	reserveOut, err := s.Balance(ctx, pairContract, info.AssetInfos[1-offerIdx])
	if err != nil {
		return nil, err
	}
	return SwapOutput(offer.Amount, reserveIn, reserveOut, s.FeeBps), nil
}
