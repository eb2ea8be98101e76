package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
	"github.com/IDTOKENONE/spectrum-core/internal/chain"
	"github.com/IDTOKENONE/spectrum-core/internal/compound"
	"github.com/IDTOKENONE/spectrum-core/internal/config"
	"github.com/IDTOKENONE/spectrum-core/internal/exec"
	"github.com/IDTOKENONE/spectrum-core/internal/model"
	"github.com/IDTOKENONE/spectrum-core/internal/pair"
	"github.com/IDTOKENONE/spectrum-core/internal/storage"
	"github.com/IDTOKENONE/spectrum-core/internal/storage/postgres"
)

func runCompound(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Pair == "" {
		return fmt.Errorf("pair contract is required")
	}
	if cfg.Account == "" {
		return fmt.Errorf("account is required")
	}

	rewards, err := asset.ParseBasket(cfg.Rewards)
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		return fmt.Errorf("reward basket is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	compounder, err := buildCompounder(ctx, cfg, chainClient, logger)
	if err != nil {
		return err
	}

	height, err := chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	receiver := cfg.Receiver
	tx := exec.New(cfg.Account, cfg.Account, height)

	logger.Info("compound start",
		zap.String("pair", cfg.Pair),
		zap.String("account", cfg.Account),
		zap.Uint64("height", height),
		zap.Int("rewards", len(rewards)),
	)

	instructions, err := tx.Run(ctx, compounder, func(ctx context.Context, tx *exec.Tx) error {
		return compounder.Compound(ctx, tx, rewards, receiver)
	})
	if err != nil {
		return fmt.Errorf("compound: %w", err)
	}

	record, err := buildRecord(cfg, chainID.Uint64(), height, rewards, instructions)
	if err != nil {
		return err
	}

	sinks := []storage.Storage{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	for _, sink := range sinks {
		if err := sink.PutCompoundBatch([]model.CompoundRecord{record}); err != nil {
			return fmt.Errorf("store record: %w", err)
		}
	}

	logger.Info("compound planned",
		zap.Int("instructions", len(instructions)),
		zap.String("out", cfg.Out),
	)
	return nil
}

func buildCompounder(ctx context.Context, cfg config.Config, chainClient *chain.Client, logger *zap.Logger) (*compound.Compounder, error) {
	proxies, err := parseProxies(cfg.Proxies)
	if err != nil {
		return nil, err
	}

	querier, err := pair.NewEVMQuerier(pair.EVMQuerierConfig{
		NativeDenom:  cfg.NativeDenom,
		FeeBps:       cfg.CommissionBps,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, logger)
	if err != nil {
		return nil, err
	}

	var dust *big.Int
	if cfg.DustThreshold > 0 {
		dust = new(big.Int).SetUint64(cfg.DustThreshold)
	}

	return compound.New(ctx, compound.Config{
		PairContract:  cfg.Pair,
		CommissionBps: cfg.CommissionBps,
		SlippageBps:   cfg.SlippageBps,
		FeeCollector:  cfg.FeeCollector,
		FeeBps:        cfg.FeeBps,
		DustThreshold: dust,
		PairProxies:   proxies,
	}, querier, logger)
}

func parseProxies(entries []string) ([]compound.ProxyEntry, error) {
	proxies := make([]compound.ProxyEntry, 0, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("proxy %q: expected <asset>=<pair>", entry)
		}
		info, err := asset.ParseInfo(key)
		if err != nil {
			return nil, fmt.Errorf("proxy %q: %w", entry, err)
		}
		proxies = append(proxies, compound.ProxyEntry{Asset: info, Pair: strings.TrimSpace(value)})
	}
	return proxies, nil
}

func buildRecord(cfg config.Config, chainID, height uint64, rewards asset.Basket, instructions []exec.Instruction) (model.CompoundRecord, error) {
	receiver := cfg.Receiver
	if receiver == "" {
		receiver = cfg.Account
	}

	record := model.CompoundRecord{
		ChainID:    chainID,
		Height:     height,
		Pair:       cfg.Pair,
		Caller:     cfg.Account,
		Receiver:   receiver,
		ExecutedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, reward := range rewards {
		record.Rewards = append(record.Rewards, model.AssetAmount{
			Asset:  reward.Info.String(),
			Amount: reward.Amount.String(),
		})
	}
	for _, instruction := range instructions {
		payload, err := json.Marshal(instruction)
		if err != nil {
			return model.CompoundRecord{}, fmt.Errorf("marshal instruction: %w", err)
		}
		record.Instructions = append(record.Instructions, model.InstructionRecord{
			Kind:    instruction.InstructionKind(),
			Payload: payload,
		})
	}
	return record, nil
}
