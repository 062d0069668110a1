package pool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidityEngine/internal/model"
)

func TestObserveConstantTick(t *testing.T) {
	h := newHarness(t, 3000, 60, 60)
	h.now = 2800

	tickCumulatives, _, err := h.pool.Observe([]uint32{0, 1800})
	require.NoError(t, err)
	require.Equal(t, []int64{108000, 0}, tickCumulatives)
	require.Equal(t, int64(60), (tickCumulatives[0]-tickCumulatives[1])/1800)

	_, _, err = h.pool.Observe([]uint32{1801})
	require.ErrorIs(t, err, ErrObservationNotInitialized)
}

func TestObserveTwapAfterSwap(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	require.NoError(t, h.pool.IncreaseObservationCardinalityNext(10))
	h.mint(alice, -600, 600, 1_000_000)

	h.now = 1600
	_, _, err := h.swap(bob, true, 10_000, nil)
	require.NoError(t, err)
	require.Equal(t, int32(-199), h.pool.Slot0().Tick)
	require.Equal(t, uint16(10), h.pool.Slot0().ObservationCardinality)

	h.now = 2800
	tickCumulatives, secondsPerLiquidity, err := h.pool.Observe([]uint32{0, 1800})
	require.NoError(t, err)
	require.Equal(t, []int64{-238800, 0}, tickCumulatives)
	require.True(t, secondsPerLiquidity[0].Gt(secondsPerLiquidity[1]))

	// 600s at tick 0 then 1200s at tick -199
	manual := float64(0*600+-199*1200) / 1800
	twap := (tickCumulatives[0] - tickCumulatives[1]) / 1800
	require.InDelta(t, manual, float64(twap), 1)
}

func TestIncreaseObservationCardinalityNext(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	require.NoError(t, h.pool.IncreaseObservationCardinalityNext(5))
	require.Equal(t, uint16(5), h.pool.Slot0().ObservationCardinalityNext)
	require.Equal(t, uint16(1), h.pool.Slot0().ObservationCardinality)

	last := h.events[len(h.events)-1]
	require.Equal(t, model.EventIncreaseObservationCardinalityNext, last.Name)

	events := len(h.events)
	require.NoError(t, h.pool.IncreaseObservationCardinalityNext(3))
	require.Equal(t, uint16(5), h.pool.Slot0().ObservationCardinalityNext)
	require.Len(t, h.events, events)
}

func TestSnapshotCumulativesInside(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1_000_000)

	h.now = 1500
	snap, err := h.pool.SnapshotCumulativesInside(-600, 600)
	require.NoError(t, err)
	require.Equal(t, uint32(500), snap.SecondsInside)
	require.Equal(t, int64(0), snap.TickCumulative)
	want := new(uint256.Int).Lsh(uint256.NewInt(500), 128)
	want.Div(want, uint256.NewInt(1_000_000))
	require.True(t, snap.SecondsPerLiquidityInsideX128.Eq(want))

	_, err = h.pool.SnapshotCumulativesInside(-60, 600)
	require.ErrorIs(t, err, ErrTickNotInitialized)
}
