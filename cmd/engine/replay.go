package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/config"
	"liquidityEngine/internal/dex"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/pool"
	"liquidityEngine/internal/price"
	"liquidityEngine/internal/replay"
	"liquidityEngine/internal/storage"
	"liquidityEngine/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
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

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	mode, err := replay.ParseSwapMode(cfg.SwapMode)
	if err != nil {
		return err
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return err
	}
	sqrtPrice, err := initialPrice(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []replay.Option{
		replay.WithLogger(logger),
		replay.WithSink(storage.NewJsonlStorage(cfg.Out)),
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, replay.WithSnapshotStore(store))
	}

	switch {
	case cfg.StateFile != "":
		opts = append(opts, replay.WithStateStore(&replay.FileStateStore{Path: cfg.StateFile}))
	case store != nil:
		opts = append(opts, replay.WithStateStore(&replay.DBStateStore{Store: store, Name: cfg.StateName}))
	}

	runner, err := replay.NewRunner(replay.Config{
		ChainID:         cfg.ChainID,
		Pool:            poolCfg,
		SqrtPriceX96:    sqrtPrice,
		CardinalityNext: cfg.CardinalityNext,
		SwapMode:        mode,
		Until:           cfg.Until,
		BatchSize:       cfg.BatchSize,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
		Topic0Map:       cfg.Topic0Map,
	}, opts...)
	if err != nil {
		return err
	}

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("pool", cfg.Pool),
		zap.Uint32("fee", cfg.Fee),
		zap.Stringer("swap_mode", mode),
		zap.Uint64("until", cfg.Until),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state_file", cfg.StateFile),
	)

	summary, err := runner.Run(ctx, cfg.In)
	if err != nil {
		return err
	}

	tokens := dex.NewTokenMetaCache()
	tokens.Set(summary.Token0, model.TokenMeta{Address: summary.Token0.Hex(), Decimals: cfg.Decimals0})
	tokens.Set(summary.Token1, model.TokenMeta{Address: summary.Token1.Hex(), Decimals: cfg.Decimals1})
	logger.Info("replay complete", summary.Fields(tokens)...)
	return nil
}

func poolConfig(cfg config.Config) (pool.Config, error) {
	out := pool.Config{Fee: cfg.Fee, TickSpacing: cfg.TickSpacing}
	fields := []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"pool", cfg.Pool, &out.Address},
		{"token0", cfg.Token0, &out.Token0},
		{"token1", cfg.Token1, &out.Token1},
		{"owner", cfg.Owner, &out.Owner},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if !common.IsHexAddress(f.value) {
			return pool.Config{}, fmt.Errorf("invalid %s address: %s", f.name, f.value)
		}
		*f.dst = common.HexToAddress(f.value)
	}
	return out, nil
}

// initialPrice resolves the configured starting price. A nil result leaves
// initialization to the records.
func initialPrice(cfg config.Config) (*uint256.Int, error) {
	if cfg.SqrtPrice != "" {
		return price.ParseSqrtPriceX96(cfg.SqrtPrice)
	}
	if cfg.HasTick {
		sqrtPrice, err := clmath.SqrtRatioAtTick(cfg.Tick)
		if err != nil {
			return nil, fmt.Errorf("initial tick %d: %w", cfg.Tick, err)
		}
		return sqrtPrice, nil
	}
	return nil, nil
}
