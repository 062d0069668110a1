package pool

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/position"
	"liquidityEngine/internal/tick"
)

// MintParams describes a liquidity addition.
type MintParams struct {
	Recipient common.Address
	TickLower int32
	TickUpper int32
	Amount    *uint256.Int
	Data      []byte
}

// CollectParams describes a withdrawal of tokens owed to a position.
type CollectParams struct {
	Recipient        common.Address
	TickLower        int32
	TickUpper        int32
	Amount0Requested *uint256.Int
	Amount1Requested *uint256.Int
}

// Mint adds liquidity for Recipient over the range. The callback must pay the
// returned amounts to the pool before it returns.
func (p *Pool) Mint(sender common.Address, params MintParams, cb MintCallback) (amount0, amount1 *uint256.Int, err error) {
	if params.Amount == nil || params.Amount.IsZero() {
		return nil, nil, ErrZeroLiquidity
	}
	if err := p.checkTicks(params.TickLower, params.TickUpper); err != nil {
		return nil, nil, err
	}
	if params.Amount.Gt(p.maxLiquidityPerTick) {
		return nil, nil, ErrLiquidityOverflow
	}

	release, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer release()
	t := p.begin("mint")
	defer t.finish(&err)

	delta := params.Amount.ToBig()
	signed0, signed1, err := p.modifyPosition(params.Recipient, params.TickLower, params.TickUpper, delta)
	if err != nil {
		return nil, nil, err
	}
	amount0 = uint256.MustFromBig(signed0)
	amount1 = uint256.MustFromBig(signed1)

	var balance0Before, balance1Before *uint256.Int
	if !amount0.IsZero() {
		balance0Before = p.balance0()
	}
	if !amount1.IsZero() {
		balance1Before = p.balance1()
	}
	if cb != nil {
		if err = cb.MintCallback(amount0.Clone(), amount1.Clone(), params.Data); err != nil {
			return nil, nil, fmt.Errorf("mint callback: %w", err)
		}
	}
	if balance0Before != nil && new(uint256.Int).Add(balance0Before, amount0).Gt(p.balance0()) {
		return nil, nil, fmt.Errorf("token0: %w", ErrMintNotPaid)
	}
	if balance1Before != nil && new(uint256.Int).Add(balance1Before, amount1).Gt(p.balance1()) {
		return nil, nil, fmt.Errorf("token1: %w", ErrMintNotPaid)
	}

	t.emit(model.EventMint, model.MintEventData{
		Sender:    sender.Hex(),
		Owner:     params.Recipient.Hex(),
		TickLower: params.TickLower,
		TickUpper: params.TickUpper,
		Amount:    dec(params.Amount),
		Amount0:   dec(amount0),
		Amount1:   dec(amount1),
	})
	p.logger.Debug("mint",
		zap.String("owner", params.Recipient.Hex()),
		zap.Int32("tick_lower", params.TickLower),
		zap.Int32("tick_upper", params.TickUpper),
		zap.String("amount", dec(params.Amount)),
	)
	return amount0, amount1, nil
}

// Burn removes liquidity from the caller's position and credits the principal to
// its tokens owed. A zero amount only credits accrued fees.
func (p *Pool) Burn(owner common.Address, tickLower, tickUpper int32, amount *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, err
	}

	release, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer release()
	t := p.begin("burn")
	defer t.finish(&err)

	key := position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	current, ok := p.positions.Get(key)
	switch {
	case !ok || current.Liquidity.IsZero():
		if amount.IsZero() {
			return nil, nil, ErrZeroLiquidity
		}
		return nil, nil, fmt.Errorf("burn %s from empty position: %w", dec(amount), ErrInsufficientLiquidity)
	case amount.Gt(current.Liquidity):
		return nil, nil, fmt.Errorf("burn %s of %s: %w", dec(amount), dec(current.Liquidity), ErrInsufficientLiquidity)
	}

	signed0, signed1, err := p.modifyPosition(owner, tickLower, tickUpper, new(big.Int).Neg(amount.ToBig()))
	if err != nil {
		return nil, nil, err
	}
	amount0 = uint256.MustFromBig(new(big.Int).Neg(signed0))
	amount1 = uint256.MustFromBig(new(big.Int).Neg(signed1))
	if !amount0.IsZero() || !amount1.IsZero() {
		p.positions.Credit(key, amount0, amount1)
	}

	t.emit(model.EventBurn, model.BurnEventData{
		Owner:     owner.Hex(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount:    dec(amount),
		Amount0:   dec(amount0),
		Amount1:   dec(amount1),
	})
	return amount0, amount1, nil
}

// Collect transfers up to the requested amounts of tokens owed to the caller's
// position to Recipient.
func (p *Pool) Collect(owner common.Address, params CollectParams) (amount0, amount1 *uint256.Int, err error) {
	requested0, requested1 := params.Amount0Requested, params.Amount1Requested
	if requested0 == nil {
		requested0 = new(uint256.Int)
	}
	if requested1 == nil {
		requested1 = new(uint256.Int)
	}

	release, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer release()
	t := p.begin("collect")
	defer t.finish(&err)

	key := position.Key{Owner: owner, TickLower: params.TickLower, TickUpper: params.TickUpper}
	amount0, amount1 = p.positions.Collect(key, requested0, requested1)

	if !amount0.IsZero() {
		if err = p.tokens.Transfer(p.cfg.Token0, p.cfg.Address, params.Recipient, amount0); err != nil {
			return nil, nil, fmt.Errorf("collect token0: %w", err)
		}
	}
	if !amount1.IsZero() {
		if err = p.tokens.Transfer(p.cfg.Token1, p.cfg.Address, params.Recipient, amount1); err != nil {
			return nil, nil, fmt.Errorf("collect token1: %w", err)
		}
	}

	t.emit(model.EventCollect, model.CollectEventData{
		Owner:     owner.Hex(),
		Recipient: params.Recipient.Hex(),
		TickLower: params.TickLower,
		TickUpper: params.TickUpper,
		Amount0:   dec(amount0),
		Amount1:   dec(amount1),
	})
	return amount0, amount1, nil
}

// modifyPosition applies liquidityDelta to a position and returns the signed
// token amounts owed to (positive) or by (negative) the pool.
func (p *Pool) modifyPosition(owner common.Address, tickLower, tickUpper int32, liquidityDelta *big.Int) (*big.Int, *big.Int, error) {
	if err := p.updatePosition(owner, tickLower, tickUpper, liquidityDelta); err != nil {
		return nil, nil, err
	}

	amount0, amount1 := new(big.Int), new(big.Int)
	if liquidityDelta.Sign() == 0 {
		return amount0, amount1, nil
	}

	sqrtLower, err := clmath.SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := clmath.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}

	current := p.slot0.Tick
	switch {
	case current < tickLower:
		// range is above the price, only token0 is needed
		amount0, err = clmath.SignedAmount0Delta(sqrtLower, sqrtUpper, liquidityDelta)
	case current < tickUpper:
		p.writeObservation()
		amount0, err = clmath.SignedAmount0Delta(p.slot0.SqrtPriceX96, sqrtUpper, liquidityDelta)
		if err != nil {
			return nil, nil, err
		}
		amount1, err = clmath.SignedAmount1Delta(sqrtLower, p.slot0.SqrtPriceX96, liquidityDelta)
		if err != nil {
			return nil, nil, err
		}
		liquidity, addErr := clmath.AddDelta(p.liquidity, liquidityDelta)
		if addErr != nil {
			return nil, nil, fmt.Errorf("active liquidity: %w", ErrLiquidityOverflow)
		}
		p.liquidity = liquidity
	default:
		// range is below the price, only token1 is needed
		amount1, err = clmath.SignedAmount1Delta(sqrtLower, sqrtUpper, liquidityDelta)
	}
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pool) updatePosition(owner common.Address, tickLower, tickUpper int32, liquidityDelta *big.Int) error {
	current := p.slot0.Tick

	var flippedLower, flippedUpper bool
	if liquidityDelta.Sign() != 0 {
		now := p.clock.BlockTimestamp()
		tickCumulative, secondsPerLiquidity, err := p.observations.ObserveSingle(now, 0, current, p.slot0.ObservationIndex, p.liquidity, p.slot0.ObservationCardinality)
		if err != nil {
			return err
		}
		g := p.globals(now, tickCumulative, secondsPerLiquidity)

		if flippedLower, err = p.ticks.Update(tickLower, current, liquidityDelta, g, false, p.maxLiquidityPerTick); err != nil {
			return mapTickError(tickLower, err)
		}
		if flippedUpper, err = p.ticks.Update(tickUpper, current, liquidityDelta, g, true, p.maxLiquidityPerTick); err != nil {
			return mapTickError(tickUpper, err)
		}
	}

	inside0, inside1 := p.ticks.FeeGrowthInside(tickLower, tickUpper, current, p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128)
	key := position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper}
	if _, err := p.positions.Update(key, liquidityDelta, inside0, inside1); err != nil {
		switch {
		case errors.Is(err, position.ErrNoLiquidity):
			return ErrZeroLiquidity
		case errors.Is(err, position.ErrInsufficientLiquidity):
			return ErrInsufficientLiquidity
		}
		return err
	}

	// ticks no longer referenced by any position are dropped
	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.ticks.Clear(tickLower)
		}
		if flippedUpper {
			p.ticks.Clear(tickUpper)
		}
	}
	return nil
}

func mapTickError(t int32, err error) error {
	switch {
	case errors.Is(err, tick.ErrLiquidityOverflow):
		return fmt.Errorf("tick %d: %w", t, ErrLiquidityOverflow)
	case errors.Is(err, tick.ErrInvalidDelta):
		return fmt.Errorf("tick %d: %w", t, ErrInsufficientLiquidity)
	}
	return fmt.Errorf("tick %d: %w", t, err)
}

func (p *Pool) writeObservation() {
	p.slot0.ObservationIndex, p.slot0.ObservationCardinality = p.observations.Write(
		p.slot0.ObservationIndex,
		p.clock.BlockTimestamp(),
		p.slot0.Tick,
		p.liquidity,
		p.slot0.ObservationCardinality,
		p.slot0.ObservationCardinalityNext,
	)
}
