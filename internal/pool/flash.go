package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/model"
)

// FlashParams describes a flash loan.
type FlashParams struct {
	Recipient common.Address
	Amount0   *uint256.Int
	Amount1   *uint256.Int
	Data      []byte
}

// Flash lends the requested amounts to Recipient for the duration of the
// callback. The callback must return them plus the fee.
func (p *Pool) Flash(sender common.Address, params FlashParams, cb FlashCallback) (err error) {
	amount0, amount1 := params.Amount0, params.Amount1
	if amount0 == nil {
		amount0 = new(uint256.Int)
	}
	if amount1 == nil {
		amount1 = new(uint256.Int)
	}

	release, err := p.lock()
	if err != nil {
		return err
	}
	defer release()
	t := p.begin("flash")
	defer t.finish(&err)

	if p.liquidity.IsZero() {
		return ErrNoLiquidity
	}

	fee := uint256.NewInt(uint64(p.cfg.Fee))
	denominator := uint256.NewInt(clmath.FeeDenominator)
	fee0, err := clmath.MulDivRoundingUp(amount0, fee, denominator)
	if err != nil {
		return err
	}
	fee1, err := clmath.MulDivRoundingUp(amount1, fee, denominator)
	if err != nil {
		return err
	}

	balance0Before, balance1Before := p.balance0(), p.balance1()
	if !amount0.IsZero() {
		if err = p.tokens.Transfer(p.cfg.Token0, p.cfg.Address, params.Recipient, amount0); err != nil {
			return fmt.Errorf("lend token0: %w", err)
		}
	}
	if !amount1.IsZero() {
		if err = p.tokens.Transfer(p.cfg.Token1, p.cfg.Address, params.Recipient, amount1); err != nil {
			return fmt.Errorf("lend token1: %w", err)
		}
	}

	if cb != nil {
		if err = cb.FlashCallback(fee0.Clone(), fee1.Clone(), params.Data); err != nil {
			return fmt.Errorf("flash callback: %w", err)
		}
	}

	balance0After, balance1After := p.balance0(), p.balance1()
	if new(uint256.Int).Add(balance0Before, fee0).Gt(balance0After) {
		return fmt.Errorf("token0 owed %s: %w", dec(fee0), ErrFlashNotRepaid)
	}
	if new(uint256.Int).Add(balance1Before, fee1).Gt(balance1After) {
		return fmt.Errorf("token1 owed %s: %w", dec(fee1), ErrFlashNotRepaid)
	}

	paid0 := new(uint256.Int).Sub(balance0After, balance0Before)
	paid1 := new(uint256.Int).Sub(balance1After, balance1Before)
	if err = p.accrueFlashFee(paid0, p.slot0.FeeProtocol.Token0(), p.feeGrowthGlobal0X128, p.protocolFees0); err != nil {
		return err
	}
	if err = p.accrueFlashFee(paid1, p.slot0.FeeProtocol.Token1(), p.feeGrowthGlobal1X128, p.protocolFees1); err != nil {
		return err
	}

	t.emit(model.EventFlash, model.FlashEventData{
		Sender:    sender.Hex(),
		Recipient: params.Recipient.Hex(),
		Amount0:   dec(amount0),
		Amount1:   dec(amount1),
		Paid0:     dec(paid0),
		Paid1:     dec(paid1),
	})
	return nil
}

// accrueFlashFee splits a paid flash fee between the protocol and liquidity
// providers, updating both accumulators in place.
func (p *Pool) accrueFlashFee(paid *uint256.Int, feeProtocol uint8, feeGrowthGlobal, protocolFees *uint256.Int) error {
	if paid.IsZero() {
		return nil
	}
	lpShare := paid.Clone()
	if feeProtocol > 0 {
		cut := new(uint256.Int).Div(paid, uint256.NewInt(uint64(feeProtocol)))
		protocolFees.Add(protocolFees, cut)
		lpShare.Sub(lpShare, cut)
	}
	growth, err := clmath.MulDiv(lpShare, clmath.Q128, p.liquidity)
	if err != nil {
		return err
	}
	feeGrowthGlobal.Add(feeGrowthGlobal, growth)
	return nil
}
