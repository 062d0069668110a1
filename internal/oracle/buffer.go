package oracle

import "github.com/holiman/uint256"

// Buffer is a ring of observations. The write cursor and the active cardinality
// are owned by the caller and passed in on every call.
type Buffer struct {
	observations []Observation

	recording bool
	baseLen   int
	journal   []change
}

type change struct {
	index uint16
	prev  Observation
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Len returns the number of allocated slots.
func (b *Buffer) Len() int {
	return len(b.observations)
}

// At returns a copy of the observation in slot index.
func (b *Buffer) At(index uint16) Observation {
	if int(index) >= len(b.observations) {
		return Observation{}
	}
	return b.observations[index].Clone()
}

// Initialize writes the first observation and returns the starting cardinality
// and cardinalityNext.
func (b *Buffer) Initialize(time uint32) (uint16, uint16) {
	b.ensure(1)
	b.set(0, Observation{
		BlockTimestamp:                    time,
		SecondsPerLiquidityCumulativeX128: new(uint256.Int),
		Initialized:                       true,
	})
	return 1, 1
}

// Write records a new observation at most once per timestamp. The active
// cardinality grows to cardinalityNext once the cursor reaches the end of the ring.
func (b *Buffer) Write(index uint16, time uint32, tick int32, liquidity *uint256.Int, cardinality, cardinalityNext uint16) (uint16, uint16) {
	last := b.observations[index]
	if last.BlockTimestamp == time {
		return index, cardinality
	}

	cardinalityUpdated := cardinality
	if cardinalityNext > cardinality && index == cardinality-1 {
		cardinalityUpdated = cardinalityNext
	}
	indexUpdated := uint16((uint32(index) + 1) % uint32(cardinalityUpdated))
	b.set(indexUpdated, transform(last, time, tick, liquidity))
	return indexUpdated, cardinalityUpdated
}

// Grow reserves slots up to next. Reserved slots only become part of the ring
// once the cursor wraps into them.
func (b *Buffer) Grow(current, next uint16) (uint16, error) {
	if current == 0 {
		return 0, ErrCardinalityZero
	}
	if next <= current {
		return current, nil
	}
	b.ensure(int(next))
	for i := current; i < next; i++ {
		// non-zero timestamp keeps the slot distinguishable from an unused one
		b.set(i, Observation{BlockTimestamp: 1, SecondsPerLiquidityCumulativeX128: new(uint256.Int)})
	}
	return next, nil
}

// ObserveSingle returns the accumulators secondsAgo before time, interpolating
// between the surrounding observations when needed.
func (b *Buffer) ObserveSingle(time, secondsAgo uint32, tick int32, index uint16, liquidity *uint256.Int, cardinality uint16) (int64, *uint256.Int, error) {
	if cardinality == 0 {
		return 0, nil, ErrCardinalityZero
	}
	if secondsAgo == 0 {
		last := b.observations[index]
		if last.BlockTimestamp != time {
			last = transform(last, time, tick, liquidity)
		}
		return last.TickCumulative, last.SecondsPerLiquidityCumulativeX128.Clone(), nil
	}

	target := time - secondsAgo
	beforeOrAt, atOrAfter, err := b.surrounding(time, target, tick, index, liquidity, cardinality)
	if err != nil {
		return 0, nil, err
	}

	switch target {
	case beforeOrAt.BlockTimestamp:
		return beforeOrAt.TickCumulative, beforeOrAt.SecondsPerLiquidityCumulativeX128.Clone(), nil
	case atOrAfter.BlockTimestamp:
		return atOrAfter.TickCumulative, atOrAfter.SecondsPerLiquidityCumulativeX128.Clone(), nil
	}

	observationDelta := atOrAfter.BlockTimestamp - beforeOrAt.BlockTimestamp
	targetDelta := target - beforeOrAt.BlockTimestamp

	tickCumulative := beforeOrAt.TickCumulative +
		(atOrAfter.TickCumulative-beforeOrAt.TickCumulative)/int64(observationDelta)*int64(targetDelta)

	spl := new(uint256.Int).Sub(atOrAfter.SecondsPerLiquidityCumulativeX128, beforeOrAt.SecondsPerLiquidityCumulativeX128)
	spl.Mul(spl, uint256.NewInt(uint64(targetDelta)))
	spl.Div(spl, uint256.NewInt(uint64(observationDelta)))
	spl.Add(spl, beforeOrAt.SecondsPerLiquidityCumulativeX128)
	return tickCumulative, spl, nil
}

// Observe calls ObserveSingle for each entry of secondsAgos.
func (b *Buffer) Observe(time uint32, secondsAgos []uint32, tick int32, index uint16, liquidity *uint256.Int, cardinality uint16) ([]int64, []*uint256.Int, error) {
	if cardinality == 0 {
		return nil, nil, ErrCardinalityZero
	}
	tickCumulatives := make([]int64, len(secondsAgos))
	splCumulatives := make([]*uint256.Int, len(secondsAgos))
	for i, secondsAgo := range secondsAgos {
		tc, spl, err := b.ObserveSingle(time, secondsAgo, tick, index, liquidity, cardinality)
		if err != nil {
			return nil, nil, err
		}
		tickCumulatives[i] = tc
		splCumulatives[i] = spl
	}
	return tickCumulatives, splCumulatives, nil
}

func (b *Buffer) surrounding(time, target uint32, tick int32, index uint16, liquidity *uint256.Int, cardinality uint16) (Observation, Observation, error) {
	beforeOrAt := b.observations[index]
	if lte(time, beforeOrAt.BlockTimestamp, target) {
		if beforeOrAt.BlockTimestamp == target {
			return beforeOrAt, Observation{}, nil
		}
		return beforeOrAt, transform(beforeOrAt, target, tick, liquidity), nil
	}

	// oldest observation is the one after the cursor, or slot 0 before the ring filled up
	beforeOrAt = b.observations[(uint32(index)+1)%uint32(cardinality)]
	if !beforeOrAt.Initialized {
		beforeOrAt = b.observations[0]
	}
	if !lte(time, beforeOrAt.BlockTimestamp, target) {
		return Observation{}, Observation{}, ErrObservationNotInitialized
	}
	before, after := b.binarySearch(time, target, index, cardinality)
	return before, after, nil
}

func (b *Buffer) binarySearch(time, target uint32, index uint16, cardinality uint16) (Observation, Observation) {
	l := (uint32(index) + 1) % uint32(cardinality)
	r := l + uint32(cardinality) - 1
	for {
		i := (l + r) / 2
		beforeOrAt := b.observations[i%uint32(cardinality)]
		if !beforeOrAt.Initialized {
			l = i + 1
			continue
		}
		atOrAfter := b.observations[(i+1)%uint32(cardinality)]

		targetAtOrAfter := lte(time, beforeOrAt.BlockTimestamp, target)
		if targetAtOrAfter && lte(time, target, atOrAfter.BlockTimestamp) {
			return beforeOrAt, atOrAfter
		}
		if !targetAtOrAfter {
			r = i - 1
		} else {
			l = i + 1
		}
	}
}

// Begin starts recording changes so they can be undone with Rollback.
func (b *Buffer) Begin() {
	b.recording = true
	b.baseLen = len(b.observations)
	b.journal = b.journal[:0]
}

// Commit keeps every change made since Begin.
func (b *Buffer) Commit() {
	b.recording = false
	b.journal = b.journal[:0]
}

// Rollback undoes every change made since Begin.
func (b *Buffer) Rollback() {
	b.recording = false
	for i := len(b.journal) - 1; i >= 0; i-- {
		c := b.journal[i]
		if int(c.index) < len(b.observations) {
			b.observations[c.index] = c.prev
		}
	}
	b.observations = b.observations[:b.baseLen]
	b.journal = b.journal[:0]
}

func (b *Buffer) ensure(n int) {
	for len(b.observations) < n {
		b.observations = append(b.observations, Observation{})
	}
}

func (b *Buffer) set(index uint16, o Observation) {
	if b.recording {
		b.journal = append(b.journal, change{index: index, prev: b.observations[index].Clone()})
	}
	b.observations[index] = o
}
