package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1_000_000)
	h.mint(bob, -60, 60, 500)

	snap := h.pool.Snapshot(31337)
	require.Equal(t, uint64(31337), snap.Pool.ChainID)
	require.Equal(t, poolAddress.Hex(), snap.Pool.Address)
	require.Equal(t, int32(60), snap.Pool.TickSpacing)
	require.Equal(t, "1000500", snap.State.Liquidity)

	require.Len(t, snap.Ticks, 4)
	require.Equal(t, int32(-600), snap.Ticks[0].Tick)
	require.Equal(t, "1000000", snap.Ticks[0].LiquidityNet)
	require.Equal(t, "-1000000", snap.Ticks[3].LiquidityNet)

	require.Len(t, snap.Positions, 2)
	require.Equal(t, alice.Hex(), snap.Positions[0].Owner)
	require.Equal(t, "500", snap.Positions[1].Liquidity)
}
