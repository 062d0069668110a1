package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "Concentrated liquidity pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded pool events through the engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input typed events or raw logs JSONL")
	replayCmd.Flags().String("out", "./data/engine_logs.jsonl", "output engine logs JSONL")
	replayCmd.Flags().Uint64("chain-id", 1, "chain id stamped on output logs")
	replayCmd.Flags().String("pool", "", "pool address (defaults to the first record)")
	replayCmd.Flags().String("token0", "", "token0 address override")
	replayCmd.Flags().String("token1", "", "token1 address override")
	replayCmd.Flags().String("owner", "", "address allowed to set and collect protocol fees")
	replayCmd.Flags().Uint32("fee", 0, "fee in hundredths of a bip, 0 means from records")
	replayCmd.Flags().Int32("tick-spacing", 0, "tick spacing, 0 means from records or fee tier")
	replayCmd.Flags().String("sqrt-price", "", "initial sqrt price Q64.96 (decimal or 0x)")
	replayCmd.Flags().Int32("tick", 0, "initial tick, used when sqrt-price is empty")
	replayCmd.Flags().Uint16("cardinality-next", 0, "observation capacity to grow to after initialize")
	replayCmd.Flags().String("swap-mode", "exact-input", "swap replay mode (exact-input, match-price)")
	replayCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	replayCmd.Flags().String("until", "", "stop after this timestamp (unix seconds or RFC3339)")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for pool snapshots")
	replayCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	replayCmd.Flags().String("state-name", "replay", "progress key when state is kept in Postgres")
	replayCmd.Flags().Int("batch-size", 500, "logs per output batch")
	replayCmd.Flags().Uint8("decimals0", 18, "token0 decimals for the summary")
	replayCmd.Flags().Uint8("decimals1", 18, "token1 decimals for the summary")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for storage writes")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode pool logs into typed events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("pool", "", "pool address whose metadata is attached")
	decodeCmd.Flags().String("token0", "", "token0 address of the pool")
	decodeCmd.Flags().String("token1", "", "token1 address of the pool")
	decodeCmd.Flags().Uint32("fee", 0, "fee of the pool in hundredths of a bip")
	decodeCmd.Flags().String("topic0-map", "", "extra topic0->event mappings (comma-separated key=value)")
	decodeCmd.Flags().Int("workers", 4, "decode worker goroutines")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Convert a tick or sqrt price into a human price",
		RunE:  runPrice,
	}

	priceCmd.Flags().String("sqrt-price", "", "sqrt price Q64.96 (decimal or 0x)")
	priceCmd.Flags().Int32("tick", 0, "tick, used when sqrt-price is empty")
	priceCmd.Flags().Uint8("decimals0", 18, "token0 decimals")
	priceCmd.Flags().Uint8("decimals1", 18, "token1 decimals")
	priceCmd.Flags().Bool("invert", false, "print token0 per token1")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	return root
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

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
