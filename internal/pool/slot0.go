package pool

import (
	"fmt"

	"github.com/holiman/uint256"
)

// FeeProtocol holds the protocol fee denominators of both tokens. A value of 0
// disables the protocol cut, otherwise the protocol takes 1/n of swap fees.
type FeeProtocol struct {
	token0 uint8
	token1 uint8
}

// NewFeeProtocol validates both denominators.
func NewFeeProtocol(token0, token1 uint8) (FeeProtocol, error) {
	for _, v := range []uint8{token0, token1} {
		if v != 0 && (v < 4 || v > 10) {
			return FeeProtocol{}, fmt.Errorf("fee protocol %d: %w", v, ErrInvalidFeeProtocol)
		}
	}
	return FeeProtocol{token0: token0, token1: token1}, nil
}

// UnpackFeeProtocol reads the single byte form, token0 in the low nibble.
func UnpackFeeProtocol(packed uint8) FeeProtocol {
	return FeeProtocol{token0: packed % 16, token1: packed / 16}
}

// Token0 returns the protocol fee denominator applied to token0 fees.
func (f FeeProtocol) Token0() uint8 { return f.token0 }

// Token1 returns the protocol fee denominator applied to token1 fees.
func (f FeeProtocol) Token1() uint8 { return f.token1 }

// ForInput returns the denominator for the input token of a swap.
func (f FeeProtocol) ForInput(zeroForOne bool) uint8 {
	if zeroForOne {
		return f.token0
	}
	return f.token1
}

// Packed returns the single byte form used in events.
func (f FeeProtocol) Packed() uint8 {
	return f.token0 + f.token1*16
}

// Slot0 is the root pool record.
type Slot0 struct {
	SqrtPriceX96               *uint256.Int
	Tick                       int32
	ObservationIndex           uint16
	ObservationCardinality     uint16
	ObservationCardinalityNext uint16
	FeeProtocol                FeeProtocol
	Unlocked                   bool
}

func (s Slot0) clone() Slot0 {
	c := s
	if s.SqrtPriceX96 != nil {
		c.SqrtPriceX96 = s.SqrtPriceX96.Clone()
	}
	return c
}
