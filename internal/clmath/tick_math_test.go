package clmath

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSqrtRatioAtTickBounds(t *testing.T) {
	minRatio, err := SqrtRatioAtTick(MinTick)
	require.NoError(t, err)
	require.True(t, minRatio.Eq(MinSqrtRatio), "min ratio %s", minRatio.ToBig())

	maxRatio, err := SqrtRatioAtTick(MaxTick)
	require.NoError(t, err)
	require.True(t, maxRatio.Eq(MaxSqrtRatio), "max ratio %s", maxRatio.ToBig())

	zero, err := SqrtRatioAtTick(0)
	require.NoError(t, err)
	require.True(t, zero.Eq(Q96))

	_, err = SqrtRatioAtTick(MinTick - 1)
	require.ErrorIs(t, err, ErrTickOutOfBounds)
	_, err = SqrtRatioAtTick(MaxTick + 1)
	require.ErrorIs(t, err, ErrTickOutOfBounds)
}

func TestSqrtRatioAtTickKnownValues(t *testing.T) {
	cases := map[int32]string{
		-600: "76886731765546235930195592750",
		600:  "81640896826356156310682304526",
		60:   "79466191966197645195421774833",
		1:    "79232123823359799118286999568",
		-1:   "79224201403219477170569942574",
	}
	for tick, want := range cases {
		got, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)
		require.Equal(t, want, got.ToBig().String(), "tick %d", tick)
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	ticks := []int32{MinTick, MinTick + 1, -887000, -50000, -600, -60, -1, 0, 1, 60, 600, 50000, 887000, MaxTick - 1}
	for _, tick := range ticks {
		ratio, err := SqrtRatioAtTick(tick)
		require.NoError(t, err)

		got, err := TickAtSqrtRatio(ratio)
		require.NoError(t, err)
		require.Equal(t, tick, got)

		if tick > MinTick {
			below := new(uint256.Int).SubUint64(ratio, 1)
			got, err = TickAtSqrtRatio(below)
			require.NoError(t, err)
			require.Equal(t, tick-1, got)
		}
	}
}

func TestTickAtSqrtRatioBounds(t *testing.T) {
	_, err := TickAtSqrtRatio(new(uint256.Int).SubUint64(MinSqrtRatio, 1))
	require.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)

	_, err = TickAtSqrtRatio(MaxSqrtRatio)
	require.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)

	got, err := TickAtSqrtRatio(new(uint256.Int).SubUint64(MaxSqrtRatio, 1))
	require.NoError(t, err)
	require.Equal(t, MaxTick-1, got)

	got, err = TickAtSqrtRatio(MinSqrtRatio)
	require.NoError(t, err)
	require.Equal(t, MinTick, got)
}
