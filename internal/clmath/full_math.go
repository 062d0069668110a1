package clmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrDivisionByZero  = errors.New("division by zero")
	ErrMulDivOverflow  = errors.New("mul div result overflows uint256")
	ErrLiquiditySub    = errors.New("liquidity sub underflow")
	ErrLiquidityAdd    = errors.New("liquidity add overflow")
	ErrUint160Overflow = errors.New("value overflows uint160")
)

var (
	// Q96 is 1.0 in Q64.96 fixed point.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	// Q128 is 1.0 in Q128.128 fixed point.
	Q128 = new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	MaxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
	MaxUint160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 160), 1)
	MaxUint256 = new(uint256.Int).Not(new(uint256.Int))

	one = uint256.NewInt(1)
)

// MulDiv returns floor(a*b/denominator) with a full 512 bit intermediate product.
func MulDiv(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	product.Quo(product, denominator.ToBig())
	result, overflow := uint256.FromBig(product)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// MulDivRoundingUp returns ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	quo, rem := new(big.Int).QuoRem(product, denominator.ToBig(), new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	result, overflow := uint256.FromBig(quo)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// DivRoundingUp returns ceil(a/b).
func DivRoundingUp(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	quo := new(uint256.Int).Div(a, b)
	if !new(uint256.Int).Mod(a, b).IsZero() {
		quo.Add(quo, one)
	}
	return quo, nil
}

// AddDelta applies a signed liquidity delta to an unsigned uint128 liquidity value.
func AddDelta(x *uint256.Int, delta *big.Int) (*uint256.Int, error) {
	abs, overflow := uint256.FromBig(new(big.Int).Abs(delta))
	if overflow {
		return nil, ErrLiquidityAdd
	}
	if delta.Sign() < 0 {
		if abs.Gt(x) {
			return nil, ErrLiquiditySub
		}
		return new(uint256.Int).Sub(x, abs), nil
	}
	sum := new(uint256.Int).Add(x, abs)
	if sum.Gt(MaxUint128) {
		return nil, ErrLiquidityAdd
	}
	return sum, nil
}
