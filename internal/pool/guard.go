package pool

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

// lock closes the reentrancy gate. The returned release reopens it and must be
// deferred by the caller.
func (p *Pool) lock() (release func(), err error) {
	if p.slot0.SqrtPriceX96 == nil {
		return nil, ErrNotInitialized
	}
	if !p.slot0.Unlocked {
		return nil, ErrReentrant
	}
	p.slot0.Unlocked = false
	return func() { p.slot0.Unlocked = true }, nil
}

// txn records everything a call may change so a failure can restore it.
type txn struct {
	p      *Pool
	op     string
	before model.PoolState
	events []model.PoolEvent

	slot0                Slot0
	liquidity            *uint256.Int
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees0        *uint256.Int
	protocolFees1        *uint256.Int
	tokenSnapshot        int
}

func (p *Pool) begin(op string) *txn {
	t := &txn{
		p:                    p,
		op:                   op,
		before:               p.state(),
		slot0:                p.slot0.clone(),
		liquidity:            p.liquidity.Clone(),
		feeGrowthGlobal0X128: p.feeGrowthGlobal0X128.Clone(),
		feeGrowthGlobal1X128: p.feeGrowthGlobal1X128.Clone(),
		protocolFees0:        p.protocolFees0.Clone(),
		protocolFees1:        p.protocolFees1.Clone(),
		tokenSnapshot:        p.tokens.Snapshot(),
	}
	p.ticks.Begin()
	p.positions.Begin()
	p.observations.Begin()
	return t
}

// emit queues an event for delivery once the call commits.
func (t *txn) emit(name string, data interface{}) {
	t.events = append(t.events, model.PoolEvent{Name: name, Data: data, Before: t.before})
}

// finish commits when *errp is nil and rolls back otherwise, including on panic.
func (t *txn) finish(errp *error) {
	if r := recover(); r != nil {
		t.rollback()
		panic(r)
	}
	if *errp != nil {
		t.rollback()
		t.p.logger.Debug("call rolled back", zap.String("op", t.op), zap.Error(*errp))
		return
	}
	t.commit()
}

func (t *txn) commit() {
	p := t.p
	p.ticks.Commit()
	p.positions.Commit()
	p.observations.Commit()
	p.tokens.ReleaseSnapshot(t.tokenSnapshot)
	for _, event := range t.events {
		p.emit(event)
	}
}

func (t *txn) rollback() {
	p := t.p
	p.slot0 = t.slot0
	p.liquidity = t.liquidity
	p.feeGrowthGlobal0X128 = t.feeGrowthGlobal0X128
	p.feeGrowthGlobal1X128 = t.feeGrowthGlobal1X128
	p.protocolFees0 = t.protocolFees0
	p.protocolFees1 = t.protocolFees1
	p.ticks.Rollback()
	p.positions.Rollback()
	p.observations.Rollback()
	p.tokens.RevertToSnapshot(t.tokenSnapshot)
}
