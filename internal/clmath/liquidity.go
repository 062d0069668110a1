package clmath

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrUnknownFeeTier   = errors.New("unknown fee tier")
	ErrInvalidSpacing   = errors.New("tick spacing must be positive")
	ErrInvalidFeeAmount = errors.New("fee must be below 1000000 pips")
)

// feeTierSpacing maps the standard fee tiers (in pips) to their tick spacing.
var feeTierSpacing = map[uint32]int32{
	100:   1,
	500:   10,
	2500:  50,
	3000:  60,
	10000: 200,
}

// TickSpacingForFee returns the tick spacing of a standard fee tier.
func TickSpacingForFee(fee uint32) (int32, error) {
	spacing, ok := feeTierSpacing[fee]
	if !ok {
		return 0, ErrUnknownFeeTier
	}
	return spacing, nil
}

// ValidateFee checks that fee leaves a non-zero complement.
func ValidateFee(fee uint32) error {
	if fee >= FeeDenominator {
		return ErrInvalidFeeAmount
	}
	return nil
}

// AlignedMinTick is the lowest tick usable at the given spacing.
func AlignedMinTick(spacing int32) int32 {
	return (MinTick / spacing) * spacing
}

// AlignedMaxTick is the highest tick usable at the given spacing.
func AlignedMaxTick(spacing int32) int32 {
	return (MaxTick / spacing) * spacing
}

// MaxLiquidityPerTick bounds liquidityGross so the sum over every usable tick fits uint128.
func MaxLiquidityPerTick(spacing int32) (*uint256.Int, error) {
	if spacing <= 0 {
		return nil, ErrInvalidSpacing
	}
	numTicks := uint64((AlignedMaxTick(spacing)-AlignedMinTick(spacing))/spacing) + 1
	return new(uint256.Int).Div(MaxUint128, uint256.NewInt(numTicks)), nil
}

// LiquidityForAmounts returns the largest liquidity the given token amounts can back
// in [sqrtRatioA, sqrtRatioB] at the current price.
func LiquidityForAmounts(sqrtRatioX96, sqrtRatioA, sqrtRatioB, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	sqrtRatioA, sqrtRatioB = sortRatios(sqrtRatioA, sqrtRatioB)
	switch {
	case !sqrtRatioX96.Gt(sqrtRatioA):
		return liquidityForAmount0(sqrtRatioA, sqrtRatioB, amount0)
	case sqrtRatioX96.Lt(sqrtRatioB):
		l0, err := liquidityForAmount0(sqrtRatioX96, sqrtRatioB, amount0)
		if err != nil {
			return nil, err
		}
		l1, err := liquidityForAmount1(sqrtRatioA, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if l0.Lt(l1) {
			return l0, nil
		}
		return l1, nil
	default:
		return liquidityForAmount1(sqrtRatioA, sqrtRatioB, amount1)
	}
}

func liquidityForAmount0(sqrtRatioA, sqrtRatioB, amount0 *uint256.Int) (*uint256.Int, error) {
	intermediate, err := MulDiv(sqrtRatioA, sqrtRatioB, Q96)
	if err != nil {
		return nil, err
	}
	return MulDiv(amount0, intermediate, new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA))
}

func liquidityForAmount1(sqrtRatioA, sqrtRatioB, amount1 *uint256.Int) (*uint256.Int, error) {
	return MulDiv(amount1, Q96, new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA))
}

// IsAlignedTick reports whether tick is a multiple of spacing.
func IsAlignedTick(tick, spacing int32) bool {
	return spacing > 0 && tick%spacing == 0
}
