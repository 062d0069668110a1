// Package price renders engine fixed-point values as human-readable decimals.
package price

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityEngine/internal/clmath"
)

// Precision is the number of fractional digits kept when dividing.
const Precision = 36

var q192 = decimal.NewFromInt(2).Pow(decimal.NewFromInt(192))

// FromSqrtPriceX96 returns the price of one whole token0 in whole token1.
func FromSqrtPriceX96(sqrtPriceX96 *uint256.Int, decimals0, decimals1 uint8) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return decimal.Zero
	}
	sqrt := sqrtPriceX96.ToBig()
	squared := decimal.NewFromBigInt(new(big.Int).Mul(sqrt, sqrt), 0)
	return squared.DivRound(q192, Precision).Shift(int32(decimals0) - int32(decimals1))
}

// FromTick returns the price at tick, scaled the same way as FromSqrtPriceX96.
func FromTick(tick int32, decimals0, decimals1 uint8) (decimal.Decimal, error) {
	sqrtPrice, err := clmath.SqrtRatioAtTick(tick)
	if err != nil {
		return decimal.Zero, err
	}
	return FromSqrtPriceX96(sqrtPrice, decimals0, decimals1), nil
}

// Invert returns 1/p, or an error for a zero price.
func Invert(p decimal.Decimal) (decimal.Decimal, error) {
	if p.IsZero() {
		return decimal.Zero, fmt.Errorf("cannot invert zero price")
	}
	return decimal.NewFromInt(1).DivRound(p, Precision), nil
}

// FormatAmount renders a raw token amount with the token's decimals.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ParseSqrtPriceX96 reads a decimal or 0x-prefixed sqrt price.
func ParseSqrtPriceX96(value string) (*uint256.Int, error) {
	n, ok := new(big.Int).SetString(value, 0)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("invalid sqrt price %q", value)
	}
	out, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("sqrt price %q overflows 256 bits", value)
	}
	if out.Lt(clmath.MinSqrtRatio) || !out.Lt(clmath.MaxSqrtRatio) {
		return nil, fmt.Errorf("sqrt price %q: %w", value, clmath.ErrSqrtPriceOutOfBounds)
	}
	return out, nil
}
