package vault

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	token = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestTransfer(t *testing.T) {
	v := New()
	v.Mint(token, alice, uint256.NewInt(100))

	require.NoError(t, v.Transfer(token, alice, bob, uint256.NewInt(40)))
	require.Equal(t, uint64(60), v.BalanceOf(token, alice).Uint64())
	require.Equal(t, uint64(40), v.BalanceOf(token, bob).Uint64())

	err := v.Transfer(token, bob, alice, uint256.NewInt(41))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(40), v.BalanceOf(token, bob).Uint64())
}

func TestRevertToSnapshot(t *testing.T) {
	v := New()
	v.Mint(token, alice, uint256.NewInt(100))

	outer := v.Snapshot()
	require.NoError(t, v.Transfer(token, alice, bob, uint256.NewInt(10)))
	inner := v.Snapshot()
	require.NoError(t, v.Transfer(token, alice, bob, uint256.NewInt(20)))

	v.RevertToSnapshot(inner)
	require.Equal(t, uint64(90), v.BalanceOf(token, alice).Uint64())
	require.Equal(t, uint64(10), v.BalanceOf(token, bob).Uint64())

	v.RevertToSnapshot(outer)
	require.Equal(t, uint64(100), v.BalanceOf(token, alice).Uint64())
	require.True(t, v.BalanceOf(token, bob).IsZero())
}

func TestReleaseSnapshotKeepsChanges(t *testing.T) {
	v := New()
	v.Mint(token, alice, uint256.NewInt(100))

	outer := v.Snapshot()
	inner := v.Snapshot()
	require.NoError(t, v.Transfer(token, alice, bob, uint256.NewInt(30)))
	v.ReleaseSnapshot(inner)
	require.Equal(t, uint64(30), v.BalanceOf(token, bob).Uint64())

	// the outer snapshot still covers the released changes
	v.RevertToSnapshot(outer)
	require.True(t, v.BalanceOf(token, bob).IsZero())
	require.Empty(t, v.journal)
}
