package pool

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
	"liquidityEngine/internal/oracle"
)

// Observe returns the tick and seconds-per-liquidity accumulators at each of
// secondsAgos before the current block timestamp.
func (p *Pool) Observe(secondsAgos []uint32) ([]int64, []*uint256.Int, error) {
	if p.slot0.SqrtPriceX96 == nil {
		return nil, nil, ErrNotInitialized
	}
	tickCumulatives, secondsPerLiquidity, err := p.observations.Observe(
		p.clock.BlockTimestamp(),
		secondsAgos,
		p.slot0.Tick,
		p.slot0.ObservationIndex,
		p.liquidity,
		p.slot0.ObservationCardinality,
	)
	if err != nil {
		return nil, nil, mapOracleError(err)
	}
	return tickCumulatives, secondsPerLiquidity, nil
}

// IncreaseObservationCardinalityNext grows the oracle ring so it can hold at least
// next observations once the write cursor wraps.
func (p *Pool) IncreaseObservationCardinalityNext(next uint16) (err error) {
	release, err := p.lock()
	if err != nil {
		return err
	}
	defer release()
	t := p.begin("increase_observation_cardinality_next")
	defer t.finish(&err)

	old := p.slot0.ObservationCardinalityNext
	grown, err := p.observations.Grow(old, next)
	if err != nil {
		return mapOracleError(err)
	}
	p.slot0.ObservationCardinalityNext = grown
	if grown != old {
		t.emit(model.EventIncreaseObservationCardinalityNext, model.IncreaseObservationCardinalityNextEventData{
			ObservationCardinalityNextOld: old,
			ObservationCardinalityNextNew: grown,
		})
		p.logger.Debug("observation cardinality increased", zap.Uint16("old", old), zap.Uint16("new", grown))
	}
	return nil
}

// CumulativesInside is a snapshot of the accumulators inside a tick range. Only
// differences between two snapshots of the same range are meaningful.
type CumulativesInside struct {
	TickCumulative                int64
	SecondsPerLiquidityInsideX128 *uint256.Int
	SecondsInside                 uint32
}

// SnapshotCumulativesInside returns the accumulators inside [tickLower, tickUpper].
// Both ticks must be initialized.
func (p *Pool) SnapshotCumulativesInside(tickLower, tickUpper int32) (CumulativesInside, error) {
	if p.slot0.SqrtPriceX96 == nil {
		return CumulativesInside{}, ErrNotInitialized
	}
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return CumulativesInside{}, err
	}
	lower, ok := p.ticks.Get(tickLower)
	if !ok || !lower.Initialized {
		return CumulativesInside{}, fmt.Errorf("tick %d: %w", tickLower, ErrTickNotInitialized)
	}
	upper, ok := p.ticks.Get(tickUpper)
	if !ok || !upper.Initialized {
		return CumulativesInside{}, fmt.Errorf("tick %d: %w", tickUpper, ErrTickNotInitialized)
	}

	current := p.slot0.Tick
	switch {
	case current < tickLower:
		return CumulativesInside{
			TickCumulative:                lower.TickCumulativeOutside - upper.TickCumulativeOutside,
			SecondsPerLiquidityInsideX128: new(uint256.Int).Sub(lower.SecondsPerLiquidityOutsideX128, upper.SecondsPerLiquidityOutsideX128),
			SecondsInside:                 lower.SecondsOutside - upper.SecondsOutside,
		}, nil
	case current < tickUpper:
		now := p.clock.BlockTimestamp()
		tickCumulative, secondsPerLiquidity, err := p.observations.ObserveSingle(now, 0, current, p.slot0.ObservationIndex, p.liquidity, p.slot0.ObservationCardinality)
		if err != nil {
			return CumulativesInside{}, mapOracleError(err)
		}
		spl := new(uint256.Int).Sub(secondsPerLiquidity, lower.SecondsPerLiquidityOutsideX128)
		spl.Sub(spl, upper.SecondsPerLiquidityOutsideX128)
		return CumulativesInside{
			TickCumulative:                tickCumulative - lower.TickCumulativeOutside - upper.TickCumulativeOutside,
			SecondsPerLiquidityInsideX128: spl,
			SecondsInside:                 now - lower.SecondsOutside - upper.SecondsOutside,
		}, nil
	default:
		return CumulativesInside{
			TickCumulative:                upper.TickCumulativeOutside - lower.TickCumulativeOutside,
			SecondsPerLiquidityInsideX128: new(uint256.Int).Sub(upper.SecondsPerLiquidityOutsideX128, lower.SecondsPerLiquidityOutsideX128),
			SecondsInside:                 upper.SecondsOutside - lower.SecondsOutside,
		}, nil
	}
}

func mapOracleError(err error) error {
	switch {
	case errors.Is(err, oracle.ErrObservationNotInitialized):
		return fmt.Errorf("%w: %v", ErrObservationNotInitialized, err)
	case errors.Is(err, oracle.ErrCardinalityZero):
		return fmt.Errorf("%w: %v", ErrCardinalityZero, err)
	}
	return err
}
