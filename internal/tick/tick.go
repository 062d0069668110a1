package tick

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"liquidityEngine/internal/clmath"
)

var (
	ErrInvalidDelta      = errors.New("liquidity delta would make liquidityGross negative")
	ErrLiquidityOverflow = errors.New("liquidityGross exceeds max liquidity per tick")
)

// Info is the per-tick bookkeeping. The "outside" values are relative to the
// current tick and are flipped every time the price crosses the tick.
type Info struct {
	LiquidityGross                 *uint256.Int
	LiquidityNet                   *big.Int
	FeeGrowthOutside0X128          *uint256.Int
	FeeGrowthOutside1X128          *uint256.Int
	TickCumulativeOutside          int64
	SecondsPerLiquidityOutsideX128 *uint256.Int
	SecondsOutside                 uint32
	Initialized                    bool
}

func emptyInfo() Info {
	return Info{
		LiquidityGross:                 new(uint256.Int),
		LiquidityNet:                   new(big.Int),
		FeeGrowthOutside0X128:          new(uint256.Int),
		FeeGrowthOutside1X128:          new(uint256.Int),
		SecondsPerLiquidityOutsideX128: new(uint256.Int),
	}
}

// Clone returns a deep copy.
func (i Info) Clone() Info {
	return Info{
		LiquidityGross:                 i.LiquidityGross.Clone(),
		LiquidityNet:                   new(big.Int).Set(i.LiquidityNet),
		FeeGrowthOutside0X128:          i.FeeGrowthOutside0X128.Clone(),
		FeeGrowthOutside1X128:          i.FeeGrowthOutside1X128.Clone(),
		TickCumulativeOutside:          i.TickCumulativeOutside,
		SecondsPerLiquidityOutsideX128: i.SecondsPerLiquidityOutsideX128.Clone(),
		SecondsOutside:                 i.SecondsOutside,
		Initialized:                    i.Initialized,
	}
}

// Globals carries the pool-wide accumulators a tick is seeded from and flipped against.
type Globals struct {
	FeeGrowthGlobal0X128              *uint256.Int
	FeeGrowthGlobal1X128              *uint256.Int
	SecondsPerLiquidityCumulativeX128 *uint256.Int
	TickCumulative                    int64
	Time                              uint32
}

// Update applies a liquidity delta at tick and reports whether the tick flipped
// between initialized and uninitialized. upper selects the sign applied to liquidityNet.
func (t *Table) Update(tick, tickCurrent int32, liquidityDelta *big.Int, g Globals, upper bool, maxLiquidity *uint256.Int) (bool, error) {
	info, exists := t.lookup(tick)
	if !exists {
		info = emptyInfo()
	}

	grossBefore := info.LiquidityGross
	grossAfter, err := clmath.AddDelta(grossBefore, liquidityDelta)
	if err != nil {
		if errors.Is(err, clmath.ErrLiquiditySub) {
			return false, ErrInvalidDelta
		}
		return false, ErrLiquidityOverflow
	}
	if grossAfter.Gt(maxLiquidity) {
		return false, ErrLiquidityOverflow
	}

	flipped := grossAfter.IsZero() != grossBefore.IsZero()

	next := info.Clone()
	if grossBefore.IsZero() {
		// by convention all growth before a tick is initialized happened below it
		if tick <= tickCurrent {
			next.FeeGrowthOutside0X128 = g.FeeGrowthGlobal0X128.Clone()
			next.FeeGrowthOutside1X128 = g.FeeGrowthGlobal1X128.Clone()
			next.SecondsPerLiquidityOutsideX128 = g.SecondsPerLiquidityCumulativeX128.Clone()
			next.TickCumulativeOutside = g.TickCumulative
			next.SecondsOutside = g.Time
		}
		next.Initialized = true
	}
	next.LiquidityGross = grossAfter
	if upper {
		next.LiquidityNet.Sub(next.LiquidityNet, liquidityDelta)
	} else {
		next.LiquidityNet.Add(next.LiquidityNet, liquidityDelta)
	}

	t.put(tick, next)
	return flipped, nil
}

// Clear drops all data for tick.
func (t *Table) Clear(tick int32) {
	if _, ok := t.index[tick]; !ok {
		return
	}
	t.remove(tick)
}

// Cross flips the outside accumulators of tick as the price moves across it and
// returns the liquidityNet to apply when crossing left to right.
func (t *Table) Cross(tick int32, g Globals) *big.Int {
	info, ok := t.lookup(tick)
	if !ok {
		return new(big.Int)
	}
	next := info.Clone()
	next.FeeGrowthOutside0X128 = new(uint256.Int).Sub(g.FeeGrowthGlobal0X128, info.FeeGrowthOutside0X128)
	next.FeeGrowthOutside1X128 = new(uint256.Int).Sub(g.FeeGrowthGlobal1X128, info.FeeGrowthOutside1X128)
	next.SecondsPerLiquidityOutsideX128 = new(uint256.Int).Sub(g.SecondsPerLiquidityCumulativeX128, info.SecondsPerLiquidityOutsideX128)
	next.TickCumulativeOutside = g.TickCumulative - info.TickCumulativeOutside
	next.SecondsOutside = g.Time - info.SecondsOutside
	t.put(tick, next)
	return new(big.Int).Set(next.LiquidityNet)
}

// FeeGrowthInside returns the fee growth per unit of liquidity accrued strictly
// between tickLower and tickUpper. Values wrap modulo 2^256.
func (t *Table) FeeGrowthInside(tickLower, tickUpper, tickCurrent int32, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int) (*uint256.Int, *uint256.Int) {
	lower, ok := t.lookup(tickLower)
	if !ok {
		lower = emptyInfo()
	}
	upper, ok := t.lookup(tickUpper)
	if !ok {
		upper = emptyInfo()
	}

	var below0, below1 *uint256.Int
	if tickCurrent >= tickLower {
		below0, below1 = lower.FeeGrowthOutside0X128, lower.FeeGrowthOutside1X128
	} else {
		below0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, lower.FeeGrowthOutside0X128)
		below1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, lower.FeeGrowthOutside1X128)
	}

	var above0, above1 *uint256.Int
	if tickCurrent < tickUpper {
		above0, above1 = upper.FeeGrowthOutside0X128, upper.FeeGrowthOutside1X128
	} else {
		above0 = new(uint256.Int).Sub(feeGrowthGlobal0X128, upper.FeeGrowthOutside0X128)
		above1 = new(uint256.Int).Sub(feeGrowthGlobal1X128, upper.FeeGrowthOutside1X128)
	}

	inside0 := new(uint256.Int).Sub(feeGrowthGlobal0X128, below0)
	inside0.Sub(inside0, above0)
	inside1 := new(uint256.Int).Sub(feeGrowthGlobal1X128, below1)
	inside1.Sub(inside1, above1)
	return inside0, inside1
}
