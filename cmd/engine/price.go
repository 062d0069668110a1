package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/config"
	"liquidityEngine/internal/price"
)

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrice(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var (
		p    decimal.Decimal
		tick int32
	)
	switch {
	case cfg.SqrtPrice != "":
		sqrtPrice, err := price.ParseSqrtPriceX96(cfg.SqrtPrice)
		if err != nil {
			return err
		}
		if tick, err = clmath.TickAtSqrtRatio(sqrtPrice); err != nil {
			return err
		}
		p = price.FromSqrtPriceX96(sqrtPrice, cfg.Decimals0, cfg.Decimals1)
	case cfg.HasTick:
		tick = cfg.Tick
		if p, err = price.FromTick(tick, cfg.Decimals0, cfg.Decimals1); err != nil {
			return err
		}
	default:
		return fmt.Errorf("sqrt-price or tick is required")
	}

	if cfg.Invert {
		if p, err = price.Invert(p); err != nil {
			return err
		}
	}

	logger.Debug("price computed",
		zap.Int32("tick", tick),
		zap.Uint8("decimals0", cfg.Decimals0),
		zap.Uint8("decimals1", cfg.Decimals1),
		zap.Bool("invert", cfg.Invert),
	)
	fmt.Fprintln(cmd.OutOrStdout(), p.String())
	return nil
}
