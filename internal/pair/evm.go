package pair

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
	"github.com/IDTOKENONE/spectrum-core/internal/chain"
)

// EVMQuerierConfig holds settings for the EVM querier.
type EVMQuerierConfig struct {
	// NativeDenom is the asset id used for the chain's native coin.
	NativeDenom string
	// FeeBps is the pool trading fee used for local swap simulation.
	FeeBps       uint32
	MaxRetries   int
	RetryBackoff time.Duration
}

// EVMQuerier implements Querier against constant-product pair contracts
// reachable over an EVM RPC endpoint.
type EVMQuerier struct {
	cfg    EVMQuerierConfig
	client *chain.Client
	logger *zap.Logger
}

// NewEVMQuerier builds an EVMQuerier over a chain client.
func NewEVMQuerier(cfg EVMQuerierConfig, client *chain.Client, logger *zap.Logger) (*EVMQuerier, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if cfg.NativeDenom == "" {
		cfg.NativeDenom = "eth"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EVMQuerier{cfg: cfg, client: client, logger: logger}, nil
}

// Balance returns holder's balance of the asset via eth_getBalance or
// ERC20 balanceOf.
func (q *EVMQuerier) Balance(ctx context.Context, holder string, info asset.Info) (*big.Int, error) {
	if !common.IsHexAddress(holder) {
		return nil, fmt.Errorf("invalid holder address %q", holder)
	}
	owner := common.HexToAddress(holder)

	if !info.IsToken() {
		if info.ID != q.cfg.NativeDenom {
			return nil, fmt.Errorf("unknown native denom %q", info.ID)
		}
		var balance *big.Int
		err := withRetry(ctx, q.cfg.MaxRetries, q.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			balance, err = q.client.BalanceAt(ctx, owner)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("native balance: %w", err)
		}
		return balance, nil
	}

	if !common.IsHexAddress(info.ID) {
		return nil, fmt.Errorf("invalid token address %q", info.ID)
	}
	erc20, err := erc20ABIInstance()
	if err != nil {
		return nil, err
	}
	data, err := erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	token := common.HexToAddress(info.ID)
	resp, err := q.call(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	values, err := erc20.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf return size %d", len(values))
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf unexpected type %T", values[0])
	}
	return balance, nil
}

// PairInfo reads token0/token1 from a pair contract. The pair contract is
// itself the LP token in the constant-product pools targeted here.
func (q *EVMQuerier) PairInfo(ctx context.Context, pairContract string) (Info, error) {
	if !common.IsHexAddress(pairContract) {
		return Info{}, fmt.Errorf("invalid pair address %q", pairContract)
	}
	addr := common.HexToAddress(pairContract)

	token0, err := q.tokenAt(ctx, addr, "token0")
	if err != nil {
		return Info{}, err
	}
	token1, err := q.tokenAt(ctx, addr, "token1")
	if err != nil {
		return Info{}, err
	}

	return Info{
		ContractAddr:   pairContract,
		AssetInfos:     [2]asset.Info{asset.Token(token0.Hex()), asset.Token(token1.Hex())},
		LiquidityToken: pairContract,
		Kind:           KindXYK,
	}, nil
}

// Simulate reads live reserves and applies the fee-adjusted
// constant-product output formula locally.
func (q *EVMQuerier) Simulate(ctx context.Context, pairContract string, offer asset.Asset) (*big.Int, error) {
	info, err := q.PairInfo(ctx, pairContract)
	if err != nil {
		return nil, err
	}
	offerIdx := info.AssetIndex(offer.Info)
	if offerIdx < 0 {
		return nil, fmt.Errorf("offer asset %s not in pair %s", offer.Info, pairContract)
	}

	reserve0, reserve1, err := q.reserves(ctx, common.HexToAddress(pairContract))
	if err != nil {
		return nil, err
	}
	var out *big.Int
	if offerIdx == 0 {
		out = SwapOutput(offer.Amount, reserve0, reserve1, q.cfg.FeeBps)
	} else {
		out = SwapOutput(offer.Amount, reserve1, reserve0, q.cfg.FeeBps)
	}
	q.logger.Debug("simulate swap",
		zap.String("pair", pairContract),
		zap.String("offer", offer.String()),
		zap.String("out", out.String()),
	)
	return out, nil
}

func (q *EVMQuerier) tokenAt(ctx context.Context, pairAddr common.Address, method string) (common.Address, error) {
	pairABI, err := v2PairABIInstance()
	if err != nil {
		return common.Address{}, err
	}
	data, err := pairABI.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := q.call(ctx, pairAddr, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := pairABI.Unpack(method, resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("%s return size %d", method, len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s unexpected type %T", method, values[0])
	}
	return addr, nil
}

func (q *EVMQuerier) reserves(ctx context.Context, pairAddr common.Address) (*big.Int, *big.Int, error) {
	pairABI, err := v2PairABIInstance()
	if err != nil {
		return nil, nil, err
	}
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("pack getReserves: %w", err)
	}
	resp, err := q.call(ctx, pairAddr, data)
	if err != nil {
		return nil, nil, fmt.Errorf("call getReserves: %w", err)
	}
	values, err := pairABI.Unpack("getReserves", resp)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack getReserves: %w", err)
	}
	if len(values) != 3 {
		return nil, nil, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("getReserves unexpected types %T %T", values[0], values[1])
	}
	return reserve0, reserve1, nil
}

func (q *EVMQuerier) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	var resp []byte
	err := withRetry(ctx, q.cfg.MaxRetries, q.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		resp, err = q.client.CallContract(ctx, msg, nil)
		return err
	})
	return resp, err
}
