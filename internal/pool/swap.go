package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/model"
)

// SwapParams describes a swap. A positive AmountSpecified is an exact input
// amount, a negative one an exact output amount.
type SwapParams struct {
	Recipient         common.Address
	ZeroForOne        bool
	AmountSpecified   *big.Int
	SqrtPriceLimitX96 *uint256.Int
	Data              []byte
}

// swapState is the running state of the step loop.
type swapState struct {
	remaining       *uint256.Int
	calculated      *uint256.Int
	sqrtPriceX96    *uint256.Int
	tick            int32
	feeGrowthGlobal *uint256.Int
	protocolFee     *uint256.Int
	liquidity       *uint256.Int
}

// crossCumulatives lazily observes the oracle accumulators the first time a
// tick is crossed during a swap.
type crossCumulatives struct {
	loaded              bool
	tickCumulative      int64
	secondsPerLiquidity *uint256.Int
}

// Swap trades one token for the other and returns the signed pool balance
// deltas: positive amounts were received by the pool, negative ones paid out.
func (p *Pool) Swap(sender common.Address, params SwapParams, cb SwapCallback) (amount0, amount1 *big.Int, err error) {
	if params.AmountSpecified == nil || params.AmountSpecified.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	magnitude, overflow := uint256.FromBig(new(big.Int).Abs(params.AmountSpecified))
	if overflow || magnitude.BitLen() > 255 {
		return nil, nil, fmt.Errorf("amount %s out of range: %w", params.AmountSpecified, ErrZeroAmount)
	}
	if p.slot0.SqrtPriceX96 == nil {
		return nil, nil, ErrNotInitialized
	}
	if err := p.checkPriceLimit(params.ZeroForOne, params.SqrtPriceLimitX96); err != nil {
		return nil, nil, err
	}

	release, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer release()
	t := p.begin("swap")
	defer t.finish(&err)

	zeroForOne := params.ZeroForOne
	exactInput := params.AmountSpecified.Sign() > 0
	feeProtocol := p.slot0.FeeProtocol.ForInput(zeroForOne)
	now := p.clock.BlockTimestamp()
	startTick := p.slot0.Tick
	startLiquidity := p.liquidity.Clone()

	state := swapState{
		remaining:    magnitude.Clone(),
		calculated:   new(uint256.Int),
		sqrtPriceX96: p.slot0.SqrtPriceX96.Clone(),
		tick:         p.slot0.Tick,
		protocolFee:  new(uint256.Int),
		liquidity:    p.liquidity.Clone(),
	}
	if zeroForOne {
		state.feeGrowthGlobal = p.feeGrowthGlobal0X128.Clone()
	} else {
		state.feeGrowthGlobal = p.feeGrowthGlobal1X128.Clone()
	}

	var cumulatives crossCumulatives
	for !state.remaining.IsZero() && !state.sqrtPriceX96.Eq(params.SqrtPriceLimitX96) {
		stepStart := state.sqrtPriceX96.Clone()

		tickNext, initialized := p.ticks.NextInitialized(state.tick, zeroForOne)
		if state.liquidity.IsZero() && !initialized {
			return nil, nil, fmt.Errorf("no liquidity past tick %d: %w", state.tick, ErrInsufficientLiquidity)
		}
		if tickNext < clmath.MinTick {
			tickNext = clmath.MinTick
		} else if tickNext > clmath.MaxTick {
			tickNext = clmath.MaxTick
		}
		sqrtNext, err := clmath.SqrtRatioAtTick(tickNext)
		if err != nil {
			return nil, nil, err
		}

		target := sqrtNext
		if (zeroForOne && sqrtNext.Lt(params.SqrtPriceLimitX96)) || (!zeroForOne && sqrtNext.Gt(params.SqrtPriceLimitX96)) {
			target = params.SqrtPriceLimitX96
		}

		step, err := clmath.ComputeSwapStep(state.sqrtPriceX96, target, state.liquidity, state.remaining, exactInput, p.cfg.Fee)
		if err != nil {
			return nil, nil, fmt.Errorf("swap step at tick %d: %w", state.tick, err)
		}
		state.sqrtPriceX96 = step.SqrtRatioNextX96

		if exactInput {
			state.remaining.Sub(state.remaining, step.AmountIn)
			state.remaining.Sub(state.remaining, step.FeeAmount)
			state.calculated.Add(state.calculated, step.AmountOut)
		} else {
			state.remaining.Sub(state.remaining, step.AmountOut)
			state.calculated.Add(state.calculated, step.AmountIn)
			state.calculated.Add(state.calculated, step.FeeAmount)
		}

		feeAmount := step.FeeAmount
		if feeProtocol > 0 {
			cut := new(uint256.Int).Div(feeAmount, uint256.NewInt(uint64(feeProtocol)))
			feeAmount = new(uint256.Int).Sub(feeAmount, cut)
			state.protocolFee.Add(state.protocolFee, cut)
		}
		if !state.liquidity.IsZero() {
			growth, err := clmath.MulDiv(feeAmount, clmath.Q128, state.liquidity)
			if err != nil {
				return nil, nil, err
			}
			state.feeGrowthGlobal.Add(state.feeGrowthGlobal, growth)
		}

		switch {
		case state.sqrtPriceX96.Eq(sqrtNext):
			if initialized {
				if !cumulatives.loaded {
					cumulatives.tickCumulative, cumulatives.secondsPerLiquidity, err = p.observations.ObserveSingle(
						now, 0, startTick, p.slot0.ObservationIndex, startLiquidity, p.slot0.ObservationCardinality)
					if err != nil {
						return nil, nil, err
					}
					cumulatives.loaded = true
				}
				g := p.globals(now, cumulatives.tickCumulative, cumulatives.secondsPerLiquidity)
				if zeroForOne {
					g.FeeGrowthGlobal0X128 = state.feeGrowthGlobal
				} else {
					g.FeeGrowthGlobal1X128 = state.feeGrowthGlobal
				}
				liquidityNet := p.ticks.Cross(tickNext, g)
				if zeroForOne {
					liquidityNet.Neg(liquidityNet)
				}
				state.liquidity, err = clmath.AddDelta(state.liquidity, liquidityNet)
				if err != nil {
					return nil, nil, fmt.Errorf("cross tick %d: %w", tickNext, ErrInsufficientLiquidity)
				}
			}
			if zeroForOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		case !state.sqrtPriceX96.Eq(stepStart):
			state.tick, err = clmath.TickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	// the observation covers the interval that ends now, so it uses the starting tick and liquidity
	p.slot0.ObservationIndex, p.slot0.ObservationCardinality = p.observations.Write(
		p.slot0.ObservationIndex, now, startTick, startLiquidity,
		p.slot0.ObservationCardinality, p.slot0.ObservationCardinalityNext)
	p.slot0.SqrtPriceX96 = state.sqrtPriceX96
	p.slot0.Tick = state.tick
	p.liquidity = state.liquidity
	if zeroForOne {
		p.feeGrowthGlobal0X128 = state.feeGrowthGlobal
		p.protocolFees0.Add(p.protocolFees0, state.protocolFee)
	} else {
		p.feeGrowthGlobal1X128 = state.feeGrowthGlobal
		p.protocolFees1.Add(p.protocolFees1, state.protocolFee)
	}

	specifiedUsed := new(uint256.Int).Sub(magnitude, state.remaining)
	amountIn, amountOut := state.calculated, specifiedUsed
	if exactInput {
		amountIn, amountOut = specifiedUsed, state.calculated
	}
	if zeroForOne {
		amount0 = amountIn.ToBig()
		amount1 = new(big.Int).Neg(amountOut.ToBig())
	} else {
		amount0 = new(big.Int).Neg(amountOut.ToBig())
		amount1 = amountIn.ToBig()
	}

	if err = p.settleSwap(zeroForOne, params, amountIn, amountOut, amount0, amount1, cb); err != nil {
		return nil, nil, err
	}

	t.emit(model.EventSwap, model.SwapEventData{
		Sender:       sender.Hex(),
		Recipient:    params.Recipient.Hex(),
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SqrtPriceX96: dec(p.slot0.SqrtPriceX96),
		Liquidity:    dec(p.liquidity),
		Tick:         p.slot0.Tick,
	})
	p.logger.Debug("swap",
		zap.Bool("zero_for_one", zeroForOne),
		zap.String("amount0", amount0.String()),
		zap.String("amount1", amount1.String()),
		zap.Int32("tick", p.slot0.Tick),
	)
	return amount0, amount1, nil
}

// settleSwap pays the output to the recipient, then lets the callback pay the
// input and checks that it arrived.
func (p *Pool) settleSwap(zeroForOne bool, params SwapParams, amountIn, amountOut *uint256.Int, amount0, amount1 *big.Int, cb SwapCallback) error {
	tokenIn, tokenOut := p.cfg.Token0, p.cfg.Token1
	balanceIn := p.balance0
	if !zeroForOne {
		tokenIn, tokenOut = p.cfg.Token1, p.cfg.Token0
		balanceIn = p.balance1
	}

	if !amountOut.IsZero() {
		if err := p.tokens.Transfer(tokenOut, p.cfg.Address, params.Recipient, amountOut); err != nil {
			return fmt.Errorf("pay swap output: %w", err)
		}
	}

	before := balanceIn()
	if cb != nil {
		if err := cb.SwapCallback(new(big.Int).Set(amount0), new(big.Int).Set(amount1), params.Data); err != nil {
			return fmt.Errorf("swap callback: %w", err)
		}
	}
	if new(uint256.Int).Add(before, amountIn).Gt(balanceIn()) {
		return fmt.Errorf("token %s: %w", tokenIn.Hex(), ErrInsufficientInputAmount)
	}
	return nil
}

func (p *Pool) checkPriceLimit(zeroForOne bool, limit *uint256.Int) error {
	if limit == nil {
		return ErrInvalidPriceLimit
	}
	current := p.slot0.SqrtPriceX96
	if zeroForOne {
		if !limit.Lt(current) || !limit.Gt(clmath.MinSqrtRatio) {
			return fmt.Errorf("limit %s for zeroForOne at %s: %w", dec(limit), dec(current), ErrInvalidPriceLimit)
		}
		return nil
	}
	if !limit.Gt(current) || !limit.Lt(clmath.MaxSqrtRatio) {
		return fmt.Errorf("limit %s for oneForZero at %s: %w", dec(limit), dec(current), ErrInvalidPriceLimit)
	}
	return nil
}
