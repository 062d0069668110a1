package pool

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidityEngine/internal/clmath"
)

func TestFeeProtocolAccessors(t *testing.T) {
	fp, err := NewFeeProtocol(4, 10)
	require.NoError(t, err)
	require.Equal(t, uint8(4), fp.Token0())
	require.Equal(t, uint8(10), fp.Token1())
	require.Equal(t, uint8(4), fp.ForInput(true))
	require.Equal(t, uint8(10), fp.ForInput(false))
	require.Equal(t, fp, UnpackFeeProtocol(fp.Packed()))

	_, err = NewFeeProtocol(3, 0)
	require.ErrorIs(t, err, ErrInvalidFeeProtocol)
	_, err = NewFeeProtocol(0, 11)
	require.ErrorIs(t, err, ErrInvalidFeeProtocol)
}

func TestProtocolFeeOnSwap(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1_000_000)

	require.ErrorIs(t, h.pool.SetFeeProtocol(bob, 4, 4), ErrNotOwner)
	require.ErrorIs(t, h.pool.SetFeeProtocol(owner, 3, 4), ErrInvalidFeeProtocol)
	require.NoError(t, h.pool.SetFeeProtocol(owner, 4, 4))
	require.Equal(t, uint8(4), h.pool.Slot0().FeeProtocol.Token0())

	_, _, err := h.swap(bob, true, 10_000, nil)
	require.NoError(t, err)

	// fee of 30, a quarter rounded down goes to the protocol
	p0, p1 := h.pool.ProtocolFees()
	require.Equal(t, uint64(7), p0.Uint64())
	require.True(t, p1.IsZero())
	fg0, _ := h.pool.FeeGrowthGlobal()
	want, err := clmath.MulDiv(uint256.NewInt(23), clmath.Q128, uint256.NewInt(1_000_000))
	require.NoError(t, err)
	require.True(t, fg0.Eq(want))

	_, _, err = h.pool.CollectProtocol(bob, bob, uint256.NewInt(100), uint256.NewInt(100))
	require.ErrorIs(t, err, ErrNotOwner)

	a0, a1, err := h.pool.CollectProtocol(owner, owner, uint256.NewInt(100), uint256.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, uint64(7), a0.Uint64())
	require.True(t, a1.IsZero())
	require.Equal(t, uint64(7), h.vault.BalanceOf(token0, owner).Uint64())
	p0, _ = h.pool.ProtocolFees()
	require.True(t, p0.IsZero())
}
