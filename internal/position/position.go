package position

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityEngine/internal/clmath"
)

var (
	ErrNoLiquidity           = errors.New("position has no liquidity to poke")
	ErrInsufficientLiquidity = errors.New("position liquidity below burn amount")
)

// Key identifies a position by owner and tick range.
type Key struct {
	Owner     common.Address
	TickLower int32
	TickUpper int32
}

// Info is the state of one position.
type Info struct {
	Liquidity                *uint256.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *uint256.Int
	TokensOwed1              *uint256.Int
}

func emptyInfo() Info {
	return Info{
		Liquidity:                new(uint256.Int),
		FeeGrowthInside0LastX128: new(uint256.Int),
		FeeGrowthInside1LastX128: new(uint256.Int),
		TokensOwed0:              new(uint256.Int),
		TokensOwed1:              new(uint256.Int),
	}
}

// Clone returns a deep copy.
func (i Info) Clone() Info {
	return Info{
		Liquidity:                i.Liquidity.Clone(),
		FeeGrowthInside0LastX128: i.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: i.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              i.TokensOwed0.Clone(),
		TokensOwed1:              i.TokensOwed1.Clone(),
	}
}

// accrue credits fees earned by the current liquidity since the last snapshot
// and then applies liquidityDelta.
func (i Info) accrue(liquidityDelta *big.Int, feeGrowthInside0X128, feeGrowthInside1X128 *uint256.Int) (Info, error) {
	next := i.Clone()
	if liquidityDelta.Sign() == 0 {
		if i.Liquidity.IsZero() {
			return Info{}, ErrNoLiquidity
		}
	} else {
		liquidity, err := clmath.AddDelta(i.Liquidity, liquidityDelta)
		if err != nil {
			if errors.Is(err, clmath.ErrLiquiditySub) {
				return Info{}, ErrInsufficientLiquidity
			}
			return Info{}, err
		}
		next.Liquidity = liquidity
	}

	owed0, err := clmath.MulDiv(new(uint256.Int).Sub(feeGrowthInside0X128, i.FeeGrowthInside0LastX128), i.Liquidity, clmath.Q128)
	if err != nil {
		return Info{}, err
	}
	owed1, err := clmath.MulDiv(new(uint256.Int).Sub(feeGrowthInside1X128, i.FeeGrowthInside1LastX128), i.Liquidity, clmath.Q128)
	if err != nil {
		return Info{}, err
	}

	next.FeeGrowthInside0LastX128 = feeGrowthInside0X128.Clone()
	next.FeeGrowthInside1LastX128 = feeGrowthInside1X128.Clone()
	next.TokensOwed0.Add(next.TokensOwed0, owed0)
	next.TokensOwed1.Add(next.TokensOwed1, owed1)
	return next, nil
}
