package pool

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidityEngine/internal/model"
)

func TestMintThreeRegions(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)

	// in range: both tokens
	a0, a1 := h.mint(alice, -600, 600, 1_000_000)
	require.Equal(t, uint64(29554), a0.Uint64())
	require.Equal(t, uint64(29554), a1.Uint64())
	require.Equal(t, uint64(1_000_000), h.pool.Liquidity().Uint64())

	// above the price: token0 only, active liquidity untouched
	a0, a1 = h.mint(alice, 60, 600, 1_000_000)
	require.False(t, a0.IsZero())
	require.True(t, a1.IsZero())

	// below the price: token1 only
	a0, a1 = h.mint(alice, -600, -60, 1_000_000)
	require.True(t, a0.IsZero())
	require.False(t, a1.IsZero())

	require.Equal(t, uint64(1_000_000), h.pool.Liquidity().Uint64())
	require.Equal(t, 0, h.pool.LiquidityNetSum().Sign())
	require.Equal(t, []int32{-600, -60, 60, 600}, h.pool.InitializedTicks())
}

func TestMintValidation(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	cb := h.mintFrom(alice)

	cases := []struct {
		name   string
		params MintParams
		want   error
	}{
		{"zero", MintParams{Recipient: alice, TickLower: -60, TickUpper: 60, Amount: new(uint256.Int)}, ErrZeroLiquidity},
		{"misordered", MintParams{Recipient: alice, TickLower: 60, TickUpper: -60, Amount: uint256.NewInt(1)}, ErrInvalidRange},
		{"equal", MintParams{Recipient: alice, TickLower: 60, TickUpper: 60, Amount: uint256.NewInt(1)}, ErrInvalidRange},
		{"unaligned", MintParams{Recipient: alice, TickLower: -61, TickUpper: 60, Amount: uint256.NewInt(1)}, ErrInvalidRange},
		{"out of bounds", MintParams{Recipient: alice, TickLower: -887280, TickUpper: 60, Amount: uint256.NewInt(1)}, ErrInvalidRange},
		{"over cap", MintParams{Recipient: alice, TickLower: -60, TickUpper: 60, Amount: new(uint256.Int).AddUint64(h.pool.MaxLiquidityPerTick(), 1)}, ErrLiquidityOverflow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := h.pool.Mint(alice, tc.params, cb)
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Empty(t, h.pool.InitializedTicks())
	require.True(t, h.pool.Slot0().Unlocked)
}

func TestMintTickCapAcrossPositions(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	limit := h.pool.MaxLiquidityPerTick()

	_, _, err := h.pool.Mint(alice, MintParams{Recipient: alice, TickLower: -60, TickUpper: 60, Amount: limit}, h.mintFrom(alice))
	require.NoError(t, err)

	_, _, err = h.pool.Mint(alice, MintParams{Recipient: alice, TickLower: -120, TickUpper: 60, Amount: uint256.NewInt(1)}, h.mintFrom(alice))
	require.ErrorIs(t, err, ErrLiquidityOverflow)
	_, ok := h.pool.Tick(-120)
	require.False(t, ok)
}

func TestMintUnpaidRollsBack(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	before := h.pool.Slot0()

	underpay := MintCallbackFunc(func(amount0, amount1 *uint256.Int, _ []byte) error {
		return h.vault.Transfer(token0, alice, poolAddress, amount0)
	})
	_, _, err := h.pool.Mint(alice, MintParams{Recipient: alice, TickLower: -60, TickUpper: 60, Amount: uint256.NewInt(1000)}, underpay)
	require.ErrorIs(t, err, ErrMintNotPaid)

	require.True(t, h.pool.Liquidity().IsZero())
	require.Empty(t, h.pool.InitializedTicks())
	_, ok := h.pool.Position(alice, -60, 60)
	require.False(t, ok)
	b0, b1 := h.poolBalances()
	require.Zero(t, b0)
	require.Zero(t, b1)
	require.Equal(t, before, h.pool.Slot0())
	require.Len(t, h.events, 1) // only Initialize
}

func TestMintThenBurnNetsToZero(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	a0, a1 := h.mint(alice, -600, 600, 1_000_000)

	b0, b1, err := h.pool.Burn(alice, -600, 600, uint256.NewInt(1_000_000))
	require.NoError(t, err)
	// burn rounds down, mint rounds up
	require.Equal(t, uint64(29553), b0.Uint64())
	require.Equal(t, uint64(29553), b1.Uint64())
	require.LessOrEqual(t, a0.Uint64()-b0.Uint64(), uint64(1))
	require.LessOrEqual(t, a1.Uint64()-b1.Uint64(), uint64(1))

	pos, ok := h.pool.Position(alice, -600, 600)
	require.True(t, ok)
	require.True(t, pos.Liquidity.IsZero())
	require.True(t, pos.TokensOwed0.Eq(b0))
	require.True(t, pos.TokensOwed1.Eq(b1))

	require.True(t, h.pool.Liquidity().IsZero())
	require.Empty(t, h.pool.InitializedTicks())
	require.Equal(t, 0, h.pool.LiquidityNetSum().Sign())
}

func TestBurnValidation(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1000)

	_, _, err := h.pool.Burn(alice, -600, 600, uint256.NewInt(1001))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, _, err = h.pool.Burn(bob, -600, 600, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, _, err = h.pool.Burn(bob, -600, 600, new(uint256.Int))
	require.ErrorIs(t, err, ErrZeroLiquidity)

	pos, _ := h.pool.Position(alice, -600, 600)
	require.Equal(t, uint64(1000), pos.Liquidity.Uint64())
}

func TestPokeCreditsFees(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1_000_000)
	_, _, err := h.swap(bob, true, 10000, nil)
	require.NoError(t, err)

	a0, a1, err := h.pool.Burn(alice, -600, 600, new(uint256.Int))
	require.NoError(t, err)
	require.True(t, a0.IsZero())
	require.True(t, a1.IsZero())

	pos, _ := h.pool.Position(alice, -600, 600)
	// 30 of fee on token0, rounded down by the Q128 round trip
	require.Equal(t, uint64(29), pos.TokensOwed0.Uint64())
	require.True(t, pos.TokensOwed1.IsZero())
}

func TestCollectClampsAndTransfers(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1_000_000)
	_, _, err := h.pool.Burn(alice, -600, 600, uint256.NewInt(500_000))
	require.NoError(t, err)
	pos, _ := h.pool.Position(alice, -600, 600)
	owed0 := pos.TokensOwed0.Uint64()

	aliceBefore := h.vault.BalanceOf(token0, alice).Clone()
	a0, a1, err := h.pool.Collect(alice, CollectParams{
		Recipient:        alice,
		TickLower:        -600,
		TickUpper:        600,
		Amount0Requested: uint256.NewInt(10),
		Amount1Requested: uint256.NewInt(1 << 40),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(10), a0.Uint64())
	require.Equal(t, pos.TokensOwed1.Uint64(), a1.Uint64())

	pos, _ = h.pool.Position(alice, -600, 600)
	require.Equal(t, owed0-10, pos.TokensOwed0.Uint64())
	require.True(t, pos.TokensOwed1.IsZero())
	require.Equal(t, uint64(10), new(uint256.Int).Sub(h.vault.BalanceOf(token0, alice), aliceBefore).Uint64())

	// positions of other owners are untouched
	a0, a1, err = h.pool.Collect(bob, CollectParams{Recipient: bob, TickLower: -600, TickUpper: 600, Amount0Requested: uint256.NewInt(1), Amount1Requested: uint256.NewInt(1)})
	require.NoError(t, err)
	require.True(t, a0.IsZero())
	require.True(t, a1.IsZero())
}

func TestEventsCarryBeforeAndAfter(t *testing.T) {
	h := newHarness(t, 3000, 60, 0)
	h.mint(alice, -600, 600, 1_000_000)

	require.Len(t, h.events, 2)
	require.Equal(t, model.EventInitialize, h.events[0].Name)
	mint := h.events[1]
	require.Equal(t, model.EventMint, mint.Name)
	require.Equal(t, "0", mint.Before.Liquidity)
	require.Equal(t, "1000000", mint.After.Liquidity)
	require.Equal(t, uint32(1000), mint.Timestamp)
	require.Equal(t, poolAddress.Hex(), mint.Pool)

	data, ok := mint.Data.(model.MintEventData)
	require.True(t, ok)
	require.Equal(t, "29554", data.Amount0)
	require.Equal(t, alice.Hex(), data.Owner)
}

func TestLiquidityNetSumStaysZero(t *testing.T) {
	h := newHarness(t, 500, 10, 0)
	h.mint(alice, -100, 100, 5_000_000)
	h.mint(bob, -50, 200, 3_000_000)
	h.mint(alice, 30, 70, 1_000_000)

	_, _, err := h.swap(bob, true, 20_000, nil)
	require.NoError(t, err)
	_, _, err = h.pool.Burn(alice, 30, 70, uint256.NewInt(400_000))
	require.NoError(t, err)
	_, _, err = h.swap(bob, false, 50_000, nil)
	require.NoError(t, err)
	_, _, err = h.pool.Burn(bob, -50, 200, uint256.NewInt(3_000_000))
	require.NoError(t, err)

	require.Equal(t, 0, h.pool.LiquidityNetSum().Cmp(new(big.Int)))
	for _, tick := range h.pool.InitializedTicks() {
		info, _ := h.pool.Tick(tick)
		require.False(t, info.LiquidityGross.IsZero(), "tick %d", tick)
	}
}
