package clmath

import "github.com/holiman/uint256"

// FeeDenominator is the fee unit: fees are expressed in hundredths of a basis point.
const FeeDenominator = 1_000_000

// SwapStep is the outcome of one swap step within a single tick range.
type SwapStep struct {
	SqrtRatioNextX96 *uint256.Int
	AmountIn         *uint256.Int
	AmountOut        *uint256.Int
	FeeAmount        *uint256.Int
}

// ComputeSwapStep moves the price from sqrtRatioCurrentX96 toward sqrtRatioTargetX96
// spending at most amountRemaining. With exactIn the remaining amount is input
// including the fee, otherwise it is output.
func ComputeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *uint256.Int, exactIn bool, feePips uint32) (SwapStep, error) {
	zeroForOne := !sqrtRatioCurrentX96.Lt(sqrtRatioTargetX96)
	fee := uint256.NewInt(uint64(feePips))
	feeComplement := uint256.NewInt(uint64(FeeDenominator - feePips))
	denominator := uint256.NewInt(FeeDenominator)

	var (
		step = SwapStep{}
		err  error
	)

	if exactIn {
		remainingLessFee, err := MulDiv(amountRemaining, feeComplement, denominator)
		if err != nil {
			return step, err
		}
		if zeroForOne {
			step.AmountIn, err = Amount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			step.AmountIn, err = Amount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return step, err
		}
		if !remainingLessFee.Lt(step.AmountIn) {
			step.SqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			step.SqrtRatioNextX96, err = NextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, remainingLessFee, zeroForOne)
			if err != nil {
				return step, err
			}
		}
	} else {
		if zeroForOne {
			step.AmountOut, err = Amount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			step.AmountOut, err = Amount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return step, err
		}
		if !amountRemaining.Lt(step.AmountOut) {
			step.SqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			step.SqrtRatioNextX96, err = NextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountRemaining, zeroForOne)
			if err != nil {
				return step, err
			}
		}
	}

	reachedTarget := step.SqrtRatioNextX96.Eq(sqrtRatioTargetX96)

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			if step.AmountIn, err = Amount0Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return step, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if step.AmountOut, err = Amount1Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false); err != nil {
				return step, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			if step.AmountIn, err = Amount1Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, true); err != nil {
				return step, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if step.AmountOut, err = Amount0Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, false); err != nil {
				return step, err
			}
		}
	}

	if !exactIn && step.AmountOut.Gt(amountRemaining) {
		step.AmountOut = amountRemaining.Clone()
	}

	if exactIn && !reachedTarget {
		// the whole remainder was consumed, whatever is not input is fee
		step.FeeAmount = new(uint256.Int).Sub(amountRemaining, step.AmountIn)
	} else {
		step.FeeAmount, err = MulDivRoundingUp(step.AmountIn, fee, feeComplement)
		if err != nil {
			return step, err
		}
	}
	return step, nil
}
