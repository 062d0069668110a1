package oracle

import (
	"errors"

	"github.com/holiman/uint256"
)

// MaxCardinality is the largest number of observations a buffer can hold.
const MaxCardinality = 65535

var (
	ErrCardinalityZero           = errors.New("observation buffer not initialized")
	ErrObservationNotInitialized = errors.New("target is older than the oldest observation")
)

// Observation is one sample of the pool's cumulative accumulators.
type Observation struct {
	BlockTimestamp                    uint32
	TickCumulative                    int64
	SecondsPerLiquidityCumulativeX128 *uint256.Int
	Initialized                       bool
}

// Clone returns a deep copy.
func (o Observation) Clone() Observation {
	c := o
	if o.SecondsPerLiquidityCumulativeX128 != nil {
		c.SecondsPerLiquidityCumulativeX128 = o.SecondsPerLiquidityCumulativeX128.Clone()
	}
	return c
}

// transform extends last to time assuming tick and liquidity were constant in between.
func transform(last Observation, time uint32, tick int32, liquidity *uint256.Int) Observation {
	delta := time - last.BlockTimestamp
	denominator := liquidity
	if denominator.IsZero() {
		denominator = uint256.NewInt(1)
	}
	increment := new(uint256.Int).Lsh(uint256.NewInt(uint64(delta)), 128)
	increment.Div(increment, denominator)
	return Observation{
		BlockTimestamp:                    time,
		TickCumulative:                    last.TickCumulative + int64(tick)*int64(delta),
		SecondsPerLiquidityCumulativeX128: new(uint256.Int).Add(last.SecondsPerLiquidityCumulativeX128, increment),
		Initialized:                       true,
	}
}

// lte compares two timestamps that may have wrapped around 2^32, relative to time.
func lte(time, a, b uint32) bool {
	if a <= time && b <= time {
		return a <= b
	}
	aAdjusted, bAdjusted := uint64(a), uint64(b)
	if a <= time {
		aAdjusted += 1 << 32
	}
	if b <= time {
		bAdjusted += 1 << 32
	}
	return aAdjusted <= bAdjusted
}
