package pool

import (
	"liquidityEngine/internal/model"
)

// Snapshot dumps the pool state, its initialized ticks and all positions.
func (p *Pool) Snapshot(chainID uint64) model.PoolSnapshot {
	snap := model.PoolSnapshot{
		Pool: model.Pool{
			ChainID:     chainID,
			Address:     p.cfg.Address.Hex(),
			Token0:      p.cfg.Token0.Hex(),
			Token1:      p.cfg.Token1.Hex(),
			Fee:         p.cfg.Fee,
			TickSpacing: p.cfg.TickSpacing,
			Owner:       p.cfg.Owner.Hex(),
		},
		State: p.state(),
	}

	for _, t := range p.ticks.Initialized() {
		info, ok := p.ticks.Get(t)
		if !ok {
			continue
		}
		snap.Ticks = append(snap.Ticks, model.TickSnapshot{
			Tick:                           t,
			LiquidityGross:                 dec(info.LiquidityGross),
			LiquidityNet:                   info.LiquidityNet.String(),
			FeeGrowthOutside0X128:          dec(info.FeeGrowthOutside0X128),
			FeeGrowthOutside1X128:          dec(info.FeeGrowthOutside1X128),
			TickCumulativeOutside:          info.TickCumulativeOutside,
			SecondsPerLiquidityOutsideX128: dec(info.SecondsPerLiquidityOutsideX128),
			SecondsOutside:                 info.SecondsOutside,
		})
	}

	for _, key := range p.positions.Keys() {
		info, ok := p.positions.Get(key)
		if !ok {
			continue
		}
		snap.Positions = append(snap.Positions, model.PositionSnapshot{
			Owner:                    key.Owner.Hex(),
			TickLower:                key.TickLower,
			TickUpper:                key.TickUpper,
			Liquidity:                dec(info.Liquidity),
			FeeGrowthInside0LastX128: dec(info.FeeGrowthInside0LastX128),
			FeeGrowthInside1LastX128: dec(info.FeeGrowthInside1LastX128),
			TokensOwed0:              dec(info.TokensOwed0),
			TokensOwed1:              dec(info.TokensOwed1),
		})
	}
	return snap
}
