package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenMover moves pool tokens between holders. Changes made after Snapshot are
// undone by RevertToSnapshot; ReleaseSnapshot keeps them.
type TokenMover interface {
	Transfer(token, from, to common.Address, amount *uint256.Int) error
	BalanceOf(token, holder common.Address) *uint256.Int
	Snapshot() int
	RevertToSnapshot(id int)
	ReleaseSnapshot(id int)
}

// MintCallback pays the pool the token amounts owed for minted liquidity.
type MintCallback interface {
	MintCallback(amount0Owed, amount1Owed *uint256.Int, data []byte) error
}

// SwapCallback pays the pool the input side of a swap. Positive deltas are owed to the pool.
type SwapCallback interface {
	SwapCallback(amount0Delta, amount1Delta *big.Int, data []byte) error
}

// FlashCallback repays a flash loan plus fees.
type FlashCallback interface {
	FlashCallback(fee0, fee1 *uint256.Int, data []byte) error
}

// MintCallbackFunc adapts a function to MintCallback.
type MintCallbackFunc func(amount0Owed, amount1Owed *uint256.Int, data []byte) error

func (f MintCallbackFunc) MintCallback(amount0Owed, amount1Owed *uint256.Int, data []byte) error {
	return f(amount0Owed, amount1Owed, data)
}

// SwapCallbackFunc adapts a function to SwapCallback.
type SwapCallbackFunc func(amount0Delta, amount1Delta *big.Int, data []byte) error

func (f SwapCallbackFunc) SwapCallback(amount0Delta, amount1Delta *big.Int, data []byte) error {
	return f(amount0Delta, amount1Delta, data)
}

// FlashCallbackFunc adapts a function to FlashCallback.
type FlashCallbackFunc func(fee0, fee1 *uint256.Int, data []byte) error

func (f FlashCallbackFunc) FlashCallback(fee0, fee1 *uint256.Int, data []byte) error {
	return f(fee0, fee1, data)
}
