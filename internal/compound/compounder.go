// Package compound implements the compound-proxy core: it converts a
// basket of reward assets into a balanced liquidity deposit on a single
// target pool, as an ordered chain of self-authorized steps inside one
// atomic transaction.
package compound

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
	"github.com/IDTOKENONE/spectrum-core/internal/exec"
	"github.com/IDTOKENONE/spectrum-core/internal/pair"
)

// OptimalSwapStep rebalances held pool assets toward the reserve ratio.
type OptimalSwapStep struct{}

func (OptimalSwapStep) StepName() string { return "optimal_swap" }

// ProvideLiquidityStep deposits the balanced holdings; LP tokens go to
// Receiver.
type ProvideLiquidityStep struct {
	Receiver string
}

func (ProvideLiquidityStep) StepName() string { return "provide_liquidity" }

// Compounder is one pool instance of the compound proxy.
type Compounder struct {
	cfg      Config
	pairInfo pair.Info
	proxies  registry
	querier  pair.Querier
	logger   *zap.Logger
}

// New validates the configuration, resolves the target pool metadata, and
// builds a Compounder.
func New(ctx context.Context, cfg Config, querier pair.Querier, logger *zap.Logger) (*Compounder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if querier == nil {
		return nil, fmt.Errorf("querier is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pairInfo, err := querier.PairInfo(ctx, cfg.PairContract)
	if err != nil {
		return nil, fmt.Errorf("query pair info: %w", err)
	}

	return &Compounder{
		cfg:      cfg,
		pairInfo: pairInfo,
		proxies:  newRegistry(cfg.PairProxies),
		querier:  querier,
		logger:   logger,
	}, nil
}

// Config returns the pool metadata and the full proxy table, sorted by
// asset identity.
func (c *Compounder) Config() ConfigResponse {
	return ConfigResponse{
		PairInfo:      c.pairInfo,
		CommissionBps: c.cfg.CommissionBps,
		SlippageBps:   c.cfg.SlippageBps,
		FeeCollector:  c.cfg.FeeCollector,
		FeeBps:        c.cfg.FeeBps,
		PairProxies:   c.proxies.sorted(),
	}
}

// Compound converts the reward basket toward the two pool assets and
// queues the OptimalSwap and ProvideLiquidity steps, in that order. The
// LP receiver defaults to the invoking caller. An all-zero basket is a
// complete no-op: nothing is emitted and nothing is queued.
func (c *Compounder) Compound(ctx context.Context, tx *exec.Tx, rewards asset.Basket, to string) error {
	receiver := to
	if receiver == "" {
		receiver = tx.Sender()
	}

	active := 0
	for _, reward := range rewards {
		if err := reward.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
		}
		if reward.IsZero() {
			continue
		}
		active++

		held, err := c.querier.Balance(ctx, tx.Self(), reward.Info)
		if err != nil {
			return fmt.Errorf("query reward balance: %w", err)
		}
		if held.Cmp(reward.Amount) < 0 {
			return fmt.Errorf("%w: %s declared %s, held %s",
				ErrInsufficientFunds, reward.Info, reward.Amount, held)
		}

		amount := c.deductFee(tx, reward)
		if amount.Sign() == 0 {
			continue
		}

		if c.pairInfo.AssetIndex(reward.Info) >= 0 {
			// Already a pool asset; the solver picks it up from the held balance.
			continue
		}

		proxyPair, ok := c.proxies.lookup(reward.Info)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoPairProxy, reward.Info)
		}
		tx.Emit(pair.SwapInstruction{
			Pair:  proxyPair,
			Offer: reward.Info.WithAmount(amount),
		})
	}

	if active == 0 {
		c.logger.Debug("compound no-op, empty basket")
		return nil
	}

	tx.Append(OptimalSwapStep{}, ProvideLiquidityStep{Receiver: receiver})
	c.logger.Info("compound queued",
		zap.String("pair", c.cfg.PairContract),
		zap.String("receiver", receiver),
		zap.Int("rewards", active),
	)
	return nil
}

// deductFee applies the protocol fee exactly once, during reward
// conversion, and returns the remaining amount. With no collector
// configured the reward passes through untouched.
func (c *Compounder) deductFee(tx *exec.Tx, reward asset.Asset) *big.Int {
	if c.cfg.FeeCollector == "" || c.cfg.FeeBps == 0 {
		return new(big.Int).Set(reward.Amount)
	}
	fee := new(big.Int).Mul(reward.Amount, big.NewInt(int64(c.cfg.FeeBps)))
	fee.Quo(fee, big.NewInt(10000))
	if fee.Sign() > 0 {
		tx.Emit(pair.TransferInstruction{
			Asset:     reward.Info.WithAmount(fee),
			Recipient: c.cfg.FeeCollector,
		})
	}
	return new(big.Int).Sub(reward.Amount, fee)
}

// HandleStep dispatches pending steps. Steps are accepted only when the
// invoking identity is the contract's own: the ledger lets any actor
// address these operations directly, which would allow partial or
// out-of-order execution.
func (c *Compounder) HandleStep(ctx context.Context, tx *exec.Tx, step exec.Step) error {
	if tx.Sender() != tx.Self() {
		return fmt.Errorf("%w: step %s invoked by %s", ErrUnauthorized, step.StepName(), tx.Sender())
	}
	switch s := step.(type) {
	case OptimalSwapStep:
		return c.optimalSwap(ctx, tx)
	case ProvideLiquidityStep:
		return c.provideLiquidity(ctx, tx, s.Receiver)
	default:
		return fmt.Errorf("unknown step %s", step.StepName())
	}
}

// optimalSwap reads fresh reserves and held balances and emits at most one
// swap against the target pool.
func (c *Compounder) optimalSwap(ctx context.Context, tx *exec.Tx) error {
	b0, b1, err := c.heldBalances(ctx, tx.Self())
	if err != nil {
		return err
	}
	r0, r1, err := c.heldBalances(ctx, c.cfg.PairContract)
	if err != nil {
		return err
	}

	swap, err := OptimalSwapAmount(b0, b1, r0, r1, c.cfg.CommissionBps)
	if err != nil {
		return err
	}
	if swap.IsZero() || c.belowDust(swap.Amount) {
		c.logger.Debug("optimal swap skipped",
			zap.String("b0", b0.String()), zap.String("b1", b1.String()))
		return nil
	}

	offer := c.pairInfo.AssetInfos[swap.AssetIndex].WithAmount(swap.Amount)
	tx.Emit(pair.SwapInstruction{Pair: c.cfg.PairContract, Offer: offer})
	c.logger.Info("optimal swap",
		zap.String("offer", offer.String()),
		zap.String("pair", c.cfg.PairContract),
	)
	return nil
}

// provideLiquidity deposits the now-balanced holdings. The token leg gets
// a one-time allowance bounded to the exact held amount; the native leg is
// attached as funds. LP tokens flow directly to receiver.
func (c *Compounder) provideLiquidity(ctx context.Context, tx *exec.Tx, receiver string) error {
	b0, b1, err := c.heldBalances(ctx, tx.Self())
	if err != nil {
		return err
	}
	if b0.Sign() == 0 && b1.Sign() == 0 {
		c.logger.Debug("provide liquidity skipped, nothing held")
		return nil
	}

	r0, r1, err := c.heldBalances(ctx, c.cfg.PairContract)
	if err != nil {
		return err
	}
	if err := c.checkDrift(b0, b1, r0, r1); err != nil {
		return err
	}

	assets := [2]asset.Asset{
		c.pairInfo.AssetInfos[0].WithAmount(b0),
		c.pairInfo.AssetInfos[1].WithAmount(b1),
	}

	var funds []asset.Asset
	for _, leg := range assets {
		if leg.IsZero() {
			continue
		}
		if leg.Info.IsToken() {
			tx.Emit(pair.IncreaseAllowanceInstruction{
				Token:     leg.Info.ID,
				Spender:   c.cfg.PairContract,
				Amount:    leg.Amount,
				ExpiresAt: tx.Height() + 1,
			})
		} else {
			funds = append(funds, leg)
		}
	}

	tx.Emit(pair.ProvideLiquidityInstruction{
		Pair:        c.cfg.PairContract,
		Assets:      assets,
		SlippageBps: c.cfg.SlippageBps,
		Receiver:    receiver,
		Funds:       funds,
	})
	c.logger.Info("provide liquidity",
		zap.String("amount0", b0.String()),
		zap.String("amount1", b1.String()),
		zap.String("receiver", receiver),
	)
	return nil
}

// checkDrift fails when the held ratio no longer matches the reserve ratio
// within the slippage tolerance. No lock spans the steps of a compound, so
// this is the sole safeguard against reserve movement between the solver's
// computation and the deposit.
func (c *Compounder) checkDrift(b0, b1, r0, r1 *big.Int) error {
	if r0.Sign() == 0 || r1.Sign() == 0 {
		// Empty pool: the deposit sets the initial ratio.
		return nil
	}
	left := new(big.Int).Mul(b0, r1)
	right := new(big.Int).Mul(b1, r0)
	diff := new(big.Int).Sub(left, right)
	diff.Abs(diff)

	limit := left
	if right.Cmp(limit) > 0 {
		limit = right
	}
	limit = new(big.Int).Mul(limit, big.NewInt(int64(c.cfg.SlippageBps)))
	diff.Mul(diff, big.NewInt(10000))
	if diff.Cmp(limit) > 0 {
		return fmt.Errorf("%w: held %s/%s vs reserves %s/%s", ErrSlippage, b0, b1, r0, r1)
	}
	return nil
}

func (c *Compounder) heldBalances(ctx context.Context, holder string) (*big.Int, *big.Int, error) {
	b0, err := c.querier.Balance(ctx, holder, c.pairInfo.AssetInfos[0])
	if err != nil {
		return nil, nil, fmt.Errorf("query balance %s: %w", c.pairInfo.AssetInfos[0], err)
	}
	b1, err := c.querier.Balance(ctx, holder, c.pairInfo.AssetInfos[1])
	if err != nil {
		return nil, nil, fmt.Errorf("query balance %s: %w", c.pairInfo.AssetInfos[1], err)
	}
	return b0, b1, nil
}

func (c *Compounder) belowDust(amount *big.Int) bool {
	return c.cfg.DustThreshold != nil && amount.Cmp(c.cfg.DustThreshold) < 0
}
