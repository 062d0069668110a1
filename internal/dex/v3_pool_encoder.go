package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"liquidityEngine/internal/model"
)

// V3PoolEncoder writes engine events as V3 pool logs.
type V3PoolEncoder struct {
	poolABI abi.ABI
	chainID uint64
}

// NewV3PoolEncoder builds an encoder stamping logs with chainID.
func NewV3PoolEncoder(chainID uint64) (*V3PoolEncoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}
	return &V3PoolEncoder{poolABI: poolABI, chainID: chainID}, nil
}

// Encode packs event into a LogRecord. Block and transaction coordinates are
// left for the caller.
func (e *V3PoolEncoder) Encode(event model.PoolEvent) (model.LogRecord, error) {
	if !common.IsHexAddress(event.Pool) {
		return model.LogRecord{}, fmt.Errorf("invalid pool address: %s", event.Pool)
	}
	abiEvent, ok := e.poolABI.Events[event.Name]
	if !ok {
		return model.LogRecord{}, fmt.Errorf("unsupported event name: %s", event.Name)
	}

	indexed, values, err := eventArguments(event.Data)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("encode %s: %w", event.Name, err)
	}

	topics := []string{strings.ToLower(abiEvent.ID.Hex())}
	if len(indexed) > 0 {
		query := make([][]interface{}, len(indexed))
		for i, value := range indexed {
			query[i] = []interface{}{value}
		}
		hashes, err := abi.MakeTopics(query...)
		if err != nil {
			return model.LogRecord{}, fmt.Errorf("encode %s topics: %w", event.Name, err)
		}
		for _, hash := range hashes {
			topics = append(topics, hash[0].Hex())
		}
	}

	data, err := abiEvent.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", event.Name, err)
	}

	return model.LogRecord{
		ChainID:   e.chainID,
		Address:   common.HexToAddress(event.Pool).Hex(),
		Topics:    topics,
		Data:      hexutil.Encode(data),
		Timestamp: uint64(event.Timestamp),
	}, nil
}

// eventArguments splits a payload into indexed topic values and packed data
// values, both in ABI order.
func eventArguments(data interface{}) ([]interface{}, []interface{}, error) {
	switch v := data.(type) {
	case model.InitializeEventData:
		sqrtPrice, err := parseDecimal("sqrt_price_x96", v.SqrtPriceX96)
		if err != nil {
			return nil, nil, err
		}
		return nil, []interface{}{sqrtPrice, big.NewInt(int64(v.Tick))}, nil

	case model.SwapEventData:
		nums, err := parseDecimals(
			"amount0", v.Amount0,
			"amount1", v.Amount1,
			"sqrt_price_x96", v.SqrtPriceX96,
			"liquidity", v.Liquidity,
		)
		if err != nil {
			return nil, nil, err
		}
		return []interface{}{common.HexToAddress(v.Sender), common.HexToAddress(v.Recipient)},
			append(nums, big.NewInt(int64(v.Tick))), nil

	case model.MintEventData:
		nums, err := parseDecimals("amount", v.Amount, "amount0", v.Amount0, "amount1", v.Amount1)
		if err != nil {
			return nil, nil, err
		}
		return []interface{}{common.HexToAddress(v.Owner), big.NewInt(int64(v.TickLower)), big.NewInt(int64(v.TickUpper))},
			append([]interface{}{common.HexToAddress(v.Sender)}, nums...), nil

	case model.BurnEventData:
		nums, err := parseDecimals("amount", v.Amount, "amount0", v.Amount0, "amount1", v.Amount1)
		if err != nil {
			return nil, nil, err
		}
		return []interface{}{common.HexToAddress(v.Owner), big.NewInt(int64(v.TickLower)), big.NewInt(int64(v.TickUpper))},
			nums, nil

	case model.CollectEventData:
		nums, err := parseDecimals("amount0", v.Amount0, "amount1", v.Amount1)
		if err != nil {
			return nil, nil, err
		}
		return []interface{}{common.HexToAddress(v.Owner), big.NewInt(int64(v.TickLower)), big.NewInt(int64(v.TickUpper))},
			append([]interface{}{common.HexToAddress(v.Recipient)}, nums...), nil

	case model.FlashEventData:
		nums, err := parseDecimals("amount0", v.Amount0, "amount1", v.Amount1, "paid0", v.Paid0, "paid1", v.Paid1)
		if err != nil {
			return nil, nil, err
		}
		return []interface{}{common.HexToAddress(v.Sender), common.HexToAddress(v.Recipient)}, nums, nil

	case model.IncreaseObservationCardinalityNextEventData:
		return nil, []interface{}{v.ObservationCardinalityNextOld, v.ObservationCardinalityNextNew}, nil

	case model.SetFeeProtocolEventData:
		return nil, []interface{}{v.FeeProtocol0Old, v.FeeProtocol1Old, v.FeeProtocol0New, v.FeeProtocol1New}, nil

	case model.CollectProtocolEventData:
		nums, err := parseDecimals("amount0", v.Amount0, "amount1", v.Amount1)
		if err != nil {
			return nil, nil, err
		}
		return []interface{}{common.HexToAddress(v.Sender), common.HexToAddress(v.Recipient)}, nums, nil

	default:
		return nil, nil, fmt.Errorf("unsupported payload type %T", data)
	}
}

// parseDecimals takes alternating field names and values.
func parseDecimals(pairs ...string) ([]interface{}, error) {
	out := make([]interface{}, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		n, err := parseDecimal(pairs[i], pairs[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
