package clmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrZeroSqrtPrice       = errors.New("sqrt price is zero")
	ErrZeroLiquidity       = errors.New("liquidity is zero")
	ErrPriceUnderflow      = errors.New("next sqrt price underflows")
	ErrAmountExceedsOutput = errors.New("amount exceeds virtual reserves")
)

func sortRatios(a, b *uint256.Int) (*uint256.Int, *uint256.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

// Amount0Delta returns liquidity * (1/sqrt(lower) - 1/sqrt(upper)) in token0 units.
func Amount0Delta(sqrtRatioA, sqrtRatioB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrtRatioA, sqrtRatioB = sortRatios(sqrtRatioA, sqrtRatioB)
	if sqrtRatioA.IsZero() {
		return nil, ErrZeroSqrtPrice
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA)

	if roundUp {
		v, err := MulDivRoundingUp(numerator1, numerator2, sqrtRatioB)
		if err != nil {
			return nil, err
		}
		return DivRoundingUp(v, sqrtRatioA)
	}
	v, err := MulDiv(numerator1, numerator2, sqrtRatioB)
	if err != nil {
		return nil, err
	}
	return v.Div(v, sqrtRatioA), nil
}

// Amount1Delta returns liquidity * (sqrt(upper) - sqrt(lower)) in token1 units.
func Amount1Delta(sqrtRatioA, sqrtRatioB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	sqrtRatioA, sqrtRatioB = sortRatios(sqrtRatioA, sqrtRatioB)
	diff := new(uint256.Int).Sub(sqrtRatioB, sqrtRatioA)
	if roundUp {
		return MulDivRoundingUp(liquidity, diff, Q96)
	}
	return MulDiv(liquidity, diff, Q96)
}

// SignedAmount0Delta rounds up when liquidity is added and down when it is removed,
// so the pool never pays out more than it took in.
func SignedAmount0Delta(sqrtRatioA, sqrtRatioB *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	return signedDelta(Amount0Delta, sqrtRatioA, sqrtRatioB, liquidity)
}

// SignedAmount1Delta is the token1 counterpart of SignedAmount0Delta.
func SignedAmount1Delta(sqrtRatioA, sqrtRatioB *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	return signedDelta(Amount1Delta, sqrtRatioA, sqrtRatioB, liquidity)
}

func signedDelta(fn func(a, b, l *uint256.Int, roundUp bool) (*uint256.Int, error), a, b *uint256.Int, liquidity *big.Int) (*big.Int, error) {
	abs, overflow := uint256.FromBig(new(big.Int).Abs(liquidity))
	if overflow {
		return nil, ErrLiquidityAdd
	}
	if liquidity.Sign() < 0 {
		v, err := fn(a, b, abs, false)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Neg(v.ToBig()), nil
	}
	v, err := fn(a, b, abs, true)
	if err != nil {
		return nil, err
	}
	return v.ToBig(), nil
}

// NextSqrtPriceFromAmount0RoundingUp moves the price by an amount of token0,
// rounding up so the price never moves further than the amount allows.
func NextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return sqrtPX96.Clone(), nil
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)

	product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
	if add {
		if !overflow {
			denominator, addOverflow := new(uint256.Int).AddOverflow(numerator1, product)
			if !addOverflow {
				return MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// liquidity / (liquidity/sqrtP + amount)
		denominator := new(uint256.Int).Div(numerator1, sqrtPX96)
		denominator, addOverflow := denominator.AddOverflow(denominator, amount)
		if addOverflow {
			return nil, ErrMulDivOverflow
		}
		return DivRoundingUp(numerator1, denominator)
	}

	if overflow || !numerator1.Gt(product) {
		return nil, ErrAmountExceedsOutput
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	next, err := MulDivRoundingUp(numerator1, sqrtPX96, denominator)
	if err != nil {
		return nil, err
	}
	if next.Gt(MaxUint160) {
		return nil, ErrUint160Overflow
	}
	return next, nil
}

// NextSqrtPriceFromAmount1RoundingDown moves the price by an amount of token1.
func NextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	var (
		quotient *uint256.Int
		err      error
	)
	if add {
		if !amount.Gt(MaxUint160) {
			quotient = new(uint256.Int).Lsh(amount, 96)
			quotient.Div(quotient, liquidity)
		} else {
			quotient, err = MulDiv(amount, Q96, liquidity)
			if err != nil {
				return nil, err
			}
		}
		next := new(uint256.Int).Add(sqrtPX96, quotient)
		if next.Gt(MaxUint160) {
			return nil, ErrUint160Overflow
		}
		return next, nil
	}

	if !amount.Gt(MaxUint160) {
		quotient, err = DivRoundingUp(new(uint256.Int).Lsh(amount, 96), liquidity)
	} else {
		quotient, err = MulDivRoundingUp(amount, Q96, liquidity)
	}
	if err != nil {
		return nil, err
	}
	if !sqrtPX96.Gt(quotient) {
		return nil, ErrPriceUnderflow
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}

// NextSqrtPriceFromInput returns the price after adding amountIn of the input token.
func NextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroSqrtPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return NextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return NextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput returns the price after removing amountOut of the output token.
func NextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroSqrtPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return NextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return NextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}
