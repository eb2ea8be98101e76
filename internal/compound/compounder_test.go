package compound

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
	"github.com/IDTOKENONE/spectrum-core/internal/exec"
	"github.com/IDTOKENONE/spectrum-core/internal/pair"
)

const (
	selfAddr     = "compound_proxy"
	pairContract = "pair_contract"
)

var (
	tokenAsset  = asset.Token("token")
	nativeAsset = asset.Native("uluna")
)

func newStub() *pair.StubQuerier {
	stub := pair.NewStubQuerier()
	stub.FeeBps = 30
	stub.SetPair(pair.Info{
		ContractAddr:   pairContract,
		AssetInfos:     [2]asset.Info{tokenAsset, nativeAsset},
		LiquidityToken: "liquidity_token",
		Kind:           pair.KindXYK,
	})
	return stub
}

func newCompounder(t *testing.T, cfg Config, stub *pair.StubQuerier) *Compounder {
	t.Helper()
	c, err := New(context.Background(), cfg, stub, nil)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	return c
}

func baseConfig() Config {
	return Config{
		PairContract:  pairContract,
		CommissionBps: 30,
		SlippageBps:   100,
	}
}

func TestInstantiateConfigQuery(t *testing.T) {
	cfg := baseConfig()
	cfg.PairProxies = []ProxyEntry{
		{Asset: asset.Token("token0001"), Pair: "pair0001"},
		{Asset: asset.Native("ibc/token"), Pair: "pair0002"},
	}

	c := newCompounder(t, cfg, newStub())
	resp := c.Config()

	wantPair := pair.Info{
		ContractAddr:   pairContract,
		AssetInfos:     [2]asset.Info{tokenAsset, nativeAsset},
		LiquidityToken: "liquidity_token",
		Kind:           pair.KindXYK,
	}
	if !reflect.DeepEqual(resp.PairInfo, wantPair) {
		t.Fatalf("pair info mismatch: %+v", resp.PairInfo)
	}
	if resp.CommissionBps != 30 || resp.SlippageBps != 100 {
		t.Fatalf("rates mismatch: %+v", resp)
	}

	// Registry listing is keyed and sorted by asset identity, independent
	// of input order.
	wantProxies := []ProxyEntry{
		{Asset: asset.Native("ibc/token"), Pair: "pair0002"},
		{Asset: asset.Token("token0001"), Pair: "pair0001"},
	}
	if !reflect.DeepEqual(resp.PairProxies, wantProxies) {
		t.Fatalf("proxy table mismatch: %+v", resp.PairProxies)
	}
}

func TestInstantiateRejectsBadConfig(t *testing.T) {
	stub := newStub()

	cfg := baseConfig()
	cfg.CommissionBps = 10000
	if _, err := New(context.Background(), cfg, stub, nil); err == nil {
		t.Fatalf("expected error for commission out of range")
	}

	cfg = baseConfig()
	cfg.PairProxies = []ProxyEntry{
		{Asset: asset.Token("token0001"), Pair: "pair0001"},
		{Asset: asset.Token("token0001"), Pair: "pair0002"},
	}
	if _, err := New(context.Background(), cfg, stub, nil); err == nil {
		t.Fatalf("expected error for duplicate proxy entry")
	}

	cfg = baseConfig()
	cfg.PairContract = "missing"
	if _, err := New(context.Background(), cfg, stub, nil); err == nil {
		t.Fatalf("expected error for unknown pair")
	}
}

func TestCompoundQueuesSteps(t *testing.T) {
	stub := newStub()
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(1_000_000))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	rewards := asset.Basket{nativeAsset.WithAmount(big.NewInt(1_000_000))}
	if err := c.Compound(context.Background(), tx, rewards, ""); err != nil {
		t.Fatalf("compound: %v", err)
	}

	if got := tx.Instructions(); len(got) != 0 {
		t.Fatalf("pool-asset reward must not emit instructions: %v", got)
	}

	want := []exec.Step{
		OptimalSwapStep{},
		ProvideLiquidityStep{Receiver: "addr0000"},
	}
	if !reflect.DeepEqual(tx.PendingSteps(), want) {
		t.Fatalf("pending steps mismatch: %+v", tx.PendingSteps())
	}
}

func TestCompoundReceiverOverride(t *testing.T) {
	stub := newStub()
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(1_000_000))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	rewards := asset.Basket{nativeAsset.WithAmount(big.NewInt(1_000_000))}
	if err := c.Compound(context.Background(), tx, rewards, "someone_else"); err != nil {
		t.Fatalf("compound: %v", err)
	}

	steps := tx.PendingSteps()
	if len(steps) != 2 {
		t.Fatalf("step count mismatch: %d", len(steps))
	}
	if steps[1] != (ProvideLiquidityStep{Receiver: "someone_else"}) {
		t.Fatalf("receiver mismatch: %+v", steps[1])
	}
}

func TestCompoundZeroBasketNoOp(t *testing.T) {
	c := newCompounder(t, baseConfig(), newStub())
	tx := exec.New(selfAddr, "addr0000", 12345)

	rewards := asset.Basket{
		nativeAsset.WithAmount(big.NewInt(0)),
		tokenAsset.WithAmount(big.NewInt(0)),
	}
	if err := c.Compound(context.Background(), tx, rewards, ""); err != nil {
		t.Fatalf("compound: %v", err)
	}
	if len(tx.Instructions()) != 0 || len(tx.PendingSteps()) != 0 {
		t.Fatalf("zero basket must be a complete no-op: %v %v", tx.Instructions(), tx.PendingSteps())
	}
}

func TestCompoundProxyRouting(t *testing.T) {
	reward := asset.Token("token0001")

	stub := newStub()
	stub.SetBalance(selfAddr, reward, big.NewInt(500))

	cfg := baseConfig()
	cfg.PairProxies = []ProxyEntry{{Asset: reward, Pair: "pair0001"}}

	c := newCompounder(t, cfg, stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	if err := c.Compound(context.Background(), tx, asset.Basket{reward.WithAmount(big.NewInt(500))}, ""); err != nil {
		t.Fatalf("compound: %v", err)
	}

	instructions := tx.Instructions()
	if len(instructions) != 1 {
		t.Fatalf("instruction count mismatch: %v", instructions)
	}
	want := pair.SwapInstruction{Pair: "pair0001", Offer: reward.WithAmount(big.NewInt(500))}
	got, ok := instructions[0].(pair.SwapInstruction)
	if !ok || got.Pair != want.Pair || !got.Offer.Info.Equal(want.Offer.Info) || got.Offer.Amount.Cmp(want.Offer.Amount) != 0 {
		t.Fatalf("proxy swap mismatch: %+v", instructions[0])
	}
}

func TestCompoundNoPairProxy(t *testing.T) {
	reward := asset.Token("unroutable")

	stub := newStub()
	stub.SetBalance(selfAddr, reward, big.NewInt(500))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	err := c.Compound(context.Background(), tx, asset.Basket{reward.WithAmount(big.NewInt(500))}, "")
	if !errors.Is(err, ErrNoPairProxy) {
		t.Fatalf("expected ErrNoPairProxy, got %v", err)
	}
}

func TestCompoundInsufficientFunds(t *testing.T) {
	stub := newStub()
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(999))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	err := c.Compound(context.Background(), tx, asset.Basket{nativeAsset.WithAmount(big.NewInt(1000))}, "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestCompoundFeeDeduction(t *testing.T) {
	stub := newStub()
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(1_000_000))

	cfg := baseConfig()
	cfg.FeeCollector = "fees_collector"
	cfg.FeeBps = 100

	c := newCompounder(t, cfg, stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	if err := c.Compound(context.Background(), tx, asset.Basket{nativeAsset.WithAmount(big.NewInt(1_000_000))}, ""); err != nil {
		t.Fatalf("compound: %v", err)
	}

	instructions := tx.Instructions()
	if len(instructions) != 1 {
		t.Fatalf("instruction count mismatch: %v", instructions)
	}
	transfer, ok := instructions[0].(pair.TransferInstruction)
	if !ok {
		t.Fatalf("expected transfer, got %+v", instructions[0])
	}
	if transfer.Recipient != "fees_collector" || transfer.Asset.Amount.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("fee transfer mismatch: %+v", transfer)
	}
}

func TestStepAuthorization(t *testing.T) {
	stub := newStub()
	c := newCompounder(t, baseConfig(), stub)

	for _, step := range []exec.Step{OptimalSwapStep{}, ProvideLiquidityStep{Receiver: "sender"}} {
		outsider := exec.New(selfAddr, "addr0000", 12345)
		if err := c.HandleStep(context.Background(), outsider, step); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", step.StepName(), err)
		}

		self := exec.New(selfAddr, selfAddr, 12345)
		if err := c.HandleStep(context.Background(), self, step); err != nil {
			t.Fatalf("%s: self-invocation failed: %v", step.StepName(), err)
		}
	}
}

func TestOptimalSwapStepEmitsSwap(t *testing.T) {
	stub := newStub()
	stub.SetBalance(pairContract, tokenAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(pairContract, nativeAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(selfAddr, tokenAsset, big.NewInt(1_000_000))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, selfAddr, 12345)

	if err := c.HandleStep(context.Background(), tx, OptimalSwapStep{}); err != nil {
		t.Fatalf("optimal swap: %v", err)
	}

	instructions := tx.Instructions()
	if len(instructions) != 1 {
		t.Fatalf("instruction count mismatch: %v", instructions)
	}
	swap, ok := instructions[0].(pair.SwapInstruction)
	if !ok {
		t.Fatalf("expected swap, got %+v", instructions[0])
	}
	if swap.Pair != pairContract || !swap.Offer.Info.Equal(tokenAsset) {
		t.Fatalf("swap target mismatch: %+v", swap)
	}
	if swap.Offer.Amount.Cmp(big.NewInt(500626)) != 0 {
		t.Fatalf("swap amount mismatch: %s", swap.Offer.Amount)
	}
}

func TestOptimalSwapStepDustSkip(t *testing.T) {
	stub := newStub()
	stub.SetBalance(pairContract, tokenAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(pairContract, nativeAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(selfAddr, tokenAsset, big.NewInt(100))

	cfg := baseConfig()
	cfg.DustThreshold = big.NewInt(1_000)

	c := newCompounder(t, cfg, stub)
	tx := exec.New(selfAddr, selfAddr, 12345)

	if err := c.HandleStep(context.Background(), tx, OptimalSwapStep{}); err != nil {
		t.Fatalf("optimal swap: %v", err)
	}
	if got := tx.Instructions(); len(got) != 0 {
		t.Fatalf("dust swap must be skipped: %v", got)
	}
}

func TestProvideLiquidityStep(t *testing.T) {
	stub := newStub()
	stub.SetBalance(pairContract, tokenAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(pairContract, nativeAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(selfAddr, tokenAsset, big.NewInt(1_000_000))
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(1_000_000))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, selfAddr, 12345)

	if err := c.HandleStep(context.Background(), tx, ProvideLiquidityStep{Receiver: "sender"}); err != nil {
		t.Fatalf("provide liquidity: %v", err)
	}

	instructions := tx.Instructions()
	if len(instructions) != 2 {
		t.Fatalf("instruction count mismatch: %v", instructions)
	}

	allowance, ok := instructions[0].(pair.IncreaseAllowanceInstruction)
	if !ok {
		t.Fatalf("expected allowance first, got %+v", instructions[0])
	}
	if allowance.Token != "token" || allowance.Spender != pairContract {
		t.Fatalf("allowance target mismatch: %+v", allowance)
	}
	if allowance.Amount.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("allowance amount mismatch: %s", allowance.Amount)
	}
	if allowance.ExpiresAt != 12346 {
		t.Fatalf("allowance expiry mismatch: %d", allowance.ExpiresAt)
	}

	deposit, ok := instructions[1].(pair.ProvideLiquidityInstruction)
	if !ok {
		t.Fatalf("expected deposit second, got %+v", instructions[1])
	}
	if deposit.Pair != pairContract || deposit.Receiver != "sender" {
		t.Fatalf("deposit target mismatch: %+v", deposit)
	}
	if deposit.Assets[0].Amount.Cmp(big.NewInt(1_000_000)) != 0 ||
		deposit.Assets[1].Amount.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("deposit amounts mismatch: %+v", deposit.Assets)
	}
	if deposit.SlippageBps != 100 {
		t.Fatalf("slippage mismatch: %d", deposit.SlippageBps)
	}
	if len(deposit.Funds) != 1 || !deposit.Funds[0].Info.Equal(nativeAsset) ||
		deposit.Funds[0].Amount.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("native funds mismatch: %+v", deposit.Funds)
	}
}

func TestProvideLiquiditySlippageGuard(t *testing.T) {
	stub := newStub()
	stub.SetBalance(pairContract, tokenAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(pairContract, nativeAsset, big.NewInt(1_000_000_000))
	// Holdings drifted 10% away from the 1:1 reserve ratio; tolerance is 1%.
	stub.SetBalance(selfAddr, tokenAsset, big.NewInt(1_100_000))
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(1_000_000))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, selfAddr, 12345)

	err := c.HandleStep(context.Background(), tx, ProvideLiquidityStep{Receiver: "sender"})
	if !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
}

func TestCompoundEndToEnd(t *testing.T) {
	stub := newStub()
	stub.SetBalance(pairContract, tokenAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(pairContract, nativeAsset, big.NewInt(1_000_000_000))
	stub.SetBalance(selfAddr, tokenAsset, big.NewInt(1_000_000))
	stub.SetBalance(selfAddr, nativeAsset, big.NewInt(1_000_000))

	c := newCompounder(t, baseConfig(), stub)
	tx := exec.New(selfAddr, "addr0000", 12345)

	rewards := asset.Basket{tokenAsset.WithAmount(big.NewInt(1_000_000))}
	instructions, err := tx.Run(context.Background(), c, func(ctx context.Context, tx *exec.Tx) error {
		return c.Compound(ctx, tx, rewards, "")
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Holdings are already balanced, so the solver no-ops and the deposit
	// goes straight through: allowance, then provide-liquidity.
	kinds := make([]string, 0, len(instructions))
	for _, ins := range instructions {
		kinds = append(kinds, ins.InstructionKind())
	}
	want := []string{"increase_allowance", "provide_liquidity"}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("instruction kinds mismatch: %v", kinds)
	}

	deposit := instructions[1].(pair.ProvideLiquidityInstruction)
	if deposit.Receiver != "addr0000" {
		t.Fatalf("receiver must default to the caller: %q", deposit.Receiver)
	}
}
