package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

// SetFeeProtocol changes the share of swap fees taken by the protocol.
func (p *Pool) SetFeeProtocol(sender common.Address, feeProtocol0, feeProtocol1 uint8) (err error) {
	if sender != p.cfg.Owner {
		return ErrNotOwner
	}
	next, err := NewFeeProtocol(feeProtocol0, feeProtocol1)
	if err != nil {
		return err
	}

	release, err := p.lock()
	if err != nil {
		return err
	}
	defer release()
	t := p.begin("set_fee_protocol")
	defer t.finish(&err)

	old := p.slot0.FeeProtocol
	p.slot0.FeeProtocol = next
	t.emit(model.EventSetFeeProtocol, model.SetFeeProtocolEventData{
		FeeProtocol0Old: old.Token0(),
		FeeProtocol1Old: old.Token1(),
		FeeProtocol0New: next.Token0(),
		FeeProtocol1New: next.Token1(),
	})
	p.logger.Info("fee protocol set", zap.Uint8("token0", next.Token0()), zap.Uint8("token1", next.Token1()))
	return nil
}

// CollectProtocol withdraws up to the requested amounts of accrued protocol fees.
func (p *Pool) CollectProtocol(sender, recipient common.Address, requested0, requested1 *uint256.Int) (amount0, amount1 *uint256.Int, err error) {
	if sender != p.cfg.Owner {
		return nil, nil, ErrNotOwner
	}
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
	t := p.begin("collect_protocol")
	defer t.finish(&err)

	amount0 = minUint(requested0, p.protocolFees0)
	amount1 = minUint(requested1, p.protocolFees1)

	if !amount0.IsZero() {
		p.protocolFees0.Sub(p.protocolFees0, amount0)
		if err = p.tokens.Transfer(p.cfg.Token0, p.cfg.Address, recipient, amount0); err != nil {
			return nil, nil, fmt.Errorf("collect protocol token0: %w", err)
		}
	}
	if !amount1.IsZero() {
		p.protocolFees1.Sub(p.protocolFees1, amount1)
		if err = p.tokens.Transfer(p.cfg.Token1, p.cfg.Address, recipient, amount1); err != nil {
			return nil, nil, fmt.Errorf("collect protocol token1: %w", err)
		}
	}

	t.emit(model.EventCollectProtocol, model.CollectProtocolEventData{
		Sender:    sender.Hex(),
		Recipient: recipient.Hex(),
		Amount0:   dec(amount0),
		Amount1:   dec(amount1),
	})
	return amount0, amount1, nil
}

func minUint(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}
