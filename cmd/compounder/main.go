package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "compounder",
		Short:        "Compound reward assets into a balanced pool deposit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Plan a compound of the given rewards against the target pool",
		RunE:  runCompound,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().String("pair", "", "target pair contract address")
	runCmd.Flags().String("account", "", "compounder account address")
	runCmd.Flags().String("native-denom", "eth", "native coin denom")
	runCmd.Flags().Uint32("commission-bps", 30, "pool trading fee (basis points)")
	runCmd.Flags().Uint32("slippage-bps", 100, "slippage tolerance (basis points)")
	runCmd.Flags().String("fee-collector", "", "protocol fee collector address (empty disables)")
	runCmd.Flags().Uint32("fee-bps", 0, "protocol fee (basis points)")
	runCmd.Flags().Uint64("dust-threshold", 0, "skip swaps below this amount")
	runCmd.Flags().StringSlice("proxy", nil, "pair proxies, <asset>=<pair> (comma-separated)")
	runCmd.Flags().StringSlice("reward", nil, "reward basket, <asset>=<amount> (comma-separated)")
	runCmd.Flags().String("receiver", "", "LP token receiver (default: account)")
	runCmd.Flags().String("out", "./data/compounds.jsonl", "output JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	configCmd := &cobra.Command{
		Use:   "query-config",
		Short: "Show pool metadata and the pair-proxy table",
		RunE:  runQueryConfig,
	}

	configCmd.Flags().String("rpc", "", "RPC URL")
	configCmd.Flags().String("pair", "", "target pair contract address")
	configCmd.Flags().String("native-denom", "eth", "native coin denom")
	configCmd.Flags().Uint32("commission-bps", 30, "pool trading fee (basis points)")
	configCmd.Flags().Uint32("slippage-bps", 100, "slippage tolerance (basis points)")
	configCmd.Flags().StringSlice("proxy", nil, "pair proxies, <asset>=<pair> (comma-separated)")
	configCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	configCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	configCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(configCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
