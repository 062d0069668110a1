package dex

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The go-ethereum ABI unpacker returns native ints for widths up to 64 bits
// and *big.Int above that. The helpers below coerce both forms.

func asAddress(value interface{}) (common.Address, error) {
	if addr, ok := value.(common.Address); ok {
		return addr, nil
	}
	return common.Address{}, fmt.Errorf("want address, got %T", value)
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8, uint16, uint32, uint64:
		return new(big.Int).SetUint64(toUint64(v)), nil
	case int8, int16, int32, int64:
		return big.NewInt(toInt64(v)), nil
	}
	return nil, fmt.Errorf("want integer, got %T", value)
}

func asUint8(value interface{}) (uint8, error) {
	n, err := boundedUint(value, math.MaxUint8)
	return uint8(n), err
}

func asUint16(value interface{}) (uint16, error) {
	n, err := boundedUint(value, math.MaxUint16)
	return uint16(n), err
}

func boundedUint(value interface{}, limit uint64) (uint64, error) {
	n, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || !n.IsUint64() || n.Uint64() > limit {
		return 0, fmt.Errorf("%s exceeds %d", n, limit)
	}
	return n.Uint64(), nil
}

// int24FromBig narrows a decoded int24 tick.
func int24FromBig(value *big.Int) (int32, error) {
	const lo, hi = -1 << 23, 1<<23 - 1
	if !value.IsInt64() || value.Int64() < lo || value.Int64() > hi {
		return 0, fmt.Errorf("%s outside int24", value)
	}
	return int32(value.Int64()), nil
}

// parseDecimal reads a base-10 integer field of an event payload.
func parseDecimal(field, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", field, value)
	}
	return n, nil
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	default:
		return n.(uint64)
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return n.(int64)
	}
}
