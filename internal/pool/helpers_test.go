package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/vault"
)

var (
	poolAddress = common.HexToAddress("0x9999999999999999999999999999999999999999")
	token0      = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	owner       = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob         = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type harness struct {
	t      *testing.T
	pool   *Pool
	vault  *vault.Vault
	now    uint32
	events []model.PoolEvent
}

func newHarness(t *testing.T, fee uint32, spacing int32, startTick int32) *harness {
	t.Helper()
	h := &harness{t: t, vault: vault.New(), now: 1000}
	p, err := New(Config{
		Address:     poolAddress,
		Token0:      token0,
		Token1:      token1,
		Fee:         fee,
		TickSpacing: spacing,
		Owner:       owner,
	}, h.vault,
		WithClock(ClockFunc(func() uint32 { return h.now })),
		WithEventSink(EventSinkFunc(func(e model.PoolEvent) { h.events = append(h.events, e) })),
	)
	require.NoError(t, err)
	h.pool = p

	price, err := clmath.SqrtRatioAtTick(startTick)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(price))

	supply := new(uint256.Int).Lsh(uint256.NewInt(1), 120)
	for _, holder := range []common.Address{alice, bob} {
		h.vault.Mint(token0, holder, supply)
		h.vault.Mint(token1, holder, supply)
	}
	return h
}

// mintFrom returns a callback paying the pool from payer.
func (h *harness) mintFrom(payer common.Address) MintCallback {
	return MintCallbackFunc(func(amount0, amount1 *uint256.Int, _ []byte) error {
		if err := h.vault.Transfer(token0, payer, poolAddress, amount0); err != nil {
			return err
		}
		return h.vault.Transfer(token1, payer, poolAddress, amount1)
	})
}

func (h *harness) swapFrom(payer common.Address) SwapCallback {
	return SwapCallbackFunc(func(amount0, amount1 *big.Int, _ []byte) error {
		if amount0.Sign() > 0 {
			return h.vault.Transfer(token0, payer, poolAddress, uint256.MustFromBig(amount0))
		}
		if amount1.Sign() > 0 {
			return h.vault.Transfer(token1, payer, poolAddress, uint256.MustFromBig(amount1))
		}
		return nil
	})
}

func (h *harness) mint(who common.Address, lower, upper int32, liquidity uint64) (*uint256.Int, *uint256.Int) {
	h.t.Helper()
	a0, a1, err := h.pool.Mint(who, MintParams{
		Recipient: who,
		TickLower: lower,
		TickUpper: upper,
		Amount:    uint256.NewInt(liquidity),
	}, h.mintFrom(who))
	require.NoError(h.t, err)
	return a0, a1
}

func (h *harness) swap(who common.Address, zeroForOne bool, amount int64, limit *uint256.Int) (*big.Int, *big.Int, error) {
	h.t.Helper()
	if limit == nil {
		limit = defaultLimit(zeroForOne)
	}
	return h.pool.Swap(who, SwapParams{
		Recipient:         who,
		ZeroForOne:        zeroForOne,
		AmountSpecified:   big.NewInt(amount),
		SqrtPriceLimitX96: limit,
	}, h.swapFrom(who))
}

func defaultLimit(zeroForOne bool) *uint256.Int {
	if zeroForOne {
		return new(uint256.Int).AddUint64(clmath.MinSqrtRatio, 1)
	}
	return new(uint256.Int).SubUint64(clmath.MaxSqrtRatio, 1)
}

func (h *harness) poolBalances() (uint64, uint64) {
	return h.vault.BalanceOf(token0, poolAddress).Uint64(), h.vault.BalanceOf(token1, poolAddress).Uint64()
}

func mustSqrt(t *testing.T, tick int32) *uint256.Int {
	t.Helper()
	price, err := clmath.SqrtRatioAtTick(tick)
	require.NoError(t, err)
	return price
}
