package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	Topic0Map map[string]string
}

// V3PoolDecoder decodes concentrated liquidity pool events, both engine output
// and logs recorded from V3-compatible pools.
type V3PoolDecoder struct {
	poolABI     abi.ABI
	topicToName map[string]string
}

// NewV3PoolDecoder builds a V3 pool decoder.
func NewV3PoolDecoder(cfg DecoderConfig) (*V3PoolDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &V3PoolDecoder{
		poolABI:     poolABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *V3PoolDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *V3PoolDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pool address: %s", log.Address)
	}
	pool := common.HexToAddress(log.Address)

	var poolMeta model.PoolMeta
	if ctx.PoolMetaCache != nil {
		meta, ok := ctx.PoolMetaCache.Get(pool)
		if !ok && ctx.Logger != nil {
			ctx.Logger.Debug("pool meta not cached", zap.String("pool", pool.Hex()))
		}
		poolMeta = meta
	}

	decoded, err := d.decodePayload(name, log)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return buildTypedEvent(log, name, decoded, poolMeta), nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "swap":
		return model.EventSwap
	case "mint":
		return model.EventMint
	case "burn":
		return model.EventBurn
	case "collect":
		return model.EventCollect
	case "initialize":
		return model.EventInitialize
	case "flash":
		return model.EventFlash
	case "increaseobservationcardinalitynext":
		return model.EventIncreaseObservationCardinalityNext
	case "setfeeprotocol":
		return model.EventSetFeeProtocol
	case "collectprotocol":
		return model.EventCollectProtocol
	default:
		return ""
	}
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}, meta model.PoolMeta) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PoolMeta:    meta,
		Raw:         raw,
	}
}

// decodePayload unpacks the topics and data of log into the payload type of
// the named event.
func (d *V3PoolDecoder) decodePayload(name string, log model.LogRecord) (interface{}, error) {
	event, ok := d.poolABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	f, err := unpackFields(event, log)
	if err != nil {
		return nil, err
	}

	var payload interface{}
	switch name {
	case model.EventSwap:
		payload = model.SwapEventData{
			Sender:       f.address("sender"),
			Recipient:    f.address("recipient"),
			Amount0:      f.integer("amount0"),
			Amount1:      f.integer("amount1"),
			SqrtPriceX96: f.integer("sqrtPriceX96"),
			Liquidity:    f.integer("liquidity"),
			Tick:         f.tick("tick"),
		}
	case model.EventMint:
		payload = model.MintEventData{
			Sender:    f.address("sender"),
			Owner:     f.address("owner"),
			TickLower: f.tick("tickLower"),
			TickUpper: f.tick("tickUpper"),
			Amount:    f.integer("amount"),
			Amount0:   f.integer("amount0"),
			Amount1:   f.integer("amount1"),
		}
	case model.EventBurn:
		payload = model.BurnEventData{
			Owner:     f.address("owner"),
			TickLower: f.tick("tickLower"),
			TickUpper: f.tick("tickUpper"),
			Amount:    f.integer("amount"),
			Amount0:   f.integer("amount0"),
			Amount1:   f.integer("amount1"),
		}
	case model.EventCollect:
		payload = model.CollectEventData{
			Owner:     f.address("owner"),
			Recipient: f.address("recipient"),
			TickLower: f.tick("tickLower"),
			TickUpper: f.tick("tickUpper"),
			Amount0:   f.integer("amount0"),
			Amount1:   f.integer("amount1"),
		}
	case model.EventInitialize:
		payload = model.InitializeEventData{
			SqrtPriceX96: f.integer("sqrtPriceX96"),
			Tick:         f.tick("tick"),
		}
	case model.EventFlash:
		payload = model.FlashEventData{
			Sender:    f.address("sender"),
			Recipient: f.address("recipient"),
			Amount0:   f.integer("amount0"),
			Amount1:   f.integer("amount1"),
			Paid0:     f.integer("paid0"),
			Paid1:     f.integer("paid1"),
		}
	case model.EventIncreaseObservationCardinalityNext:
		payload = model.IncreaseObservationCardinalityNextEventData{
			ObservationCardinalityNextOld: f.u16("observationCardinalityNextOld"),
			ObservationCardinalityNextNew: f.u16("observationCardinalityNextNew"),
		}
	case model.EventSetFeeProtocol:
		payload = model.SetFeeProtocolEventData{
			FeeProtocol0Old: f.u8("feeProtocol0Old"),
			FeeProtocol1Old: f.u8("feeProtocol1Old"),
			FeeProtocol0New: f.u8("feeProtocol0New"),
			FeeProtocol1New: f.u8("feeProtocol1New"),
		}
	case model.EventCollectProtocol:
		payload = model.CollectProtocolEventData{
			Sender:    f.address("sender"),
			Recipient: f.address("recipient"),
			Amount0:   f.integer("amount0"),
			Amount1:   f.integer("amount1"),
		}
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if f.err != nil {
		return nil, f.err
	}
	return payload, nil
}

// eventFields holds the unpacked arguments of one log keyed by ABI name. The
// first conversion failure sticks in err and later reads return zero values.
type eventFields struct {
	values map[string]interface{}
	err    error
}

func unpackFields(event abi.Event, log model.LogRecord) (*eventFields, error) {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}
	topics, err := parseTopicHashes(log.Topics[1:])
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{}, len(event.Inputs))
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(values, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return &eventFields{values: values}, nil
}

func (f *eventFields) lookup(key string) (interface{}, bool) {
	if f.err != nil {
		return nil, false
	}
	v, ok := f.values[key]
	if !ok {
		f.err = fmt.Errorf("missing argument %s", key)
	}
	return v, ok
}

func (f *eventFields) fail(key string, err error) {
	f.err = fmt.Errorf("argument %s: %w", key, err)
}

func (f *eventFields) address(key string) string {
	v, ok := f.lookup(key)
	if !ok {
		return ""
	}
	addr, err := asAddress(v)
	if err != nil {
		f.fail(key, err)
		return ""
	}
	return addr.Hex()
}

func (f *eventFields) bigInt(key string) *big.Int {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	n, err := asBigInt(v)
	if err != nil {
		f.fail(key, err)
		return nil
	}
	return n
}

func (f *eventFields) integer(key string) string {
	if n := f.bigInt(key); n != nil {
		return n.String()
	}
	return ""
}

func (f *eventFields) tick(key string) int32 {
	n := f.bigInt(key)
	if n == nil {
		return 0
	}
	tick, err := int24FromBig(n)
	if err != nil {
		f.fail(key, err)
	}
	return tick
}

func (f *eventFields) u8(key string) uint8 {
	v, ok := f.lookup(key)
	if !ok {
		return 0
	}
	n, err := asUint8(v)
	if err != nil {
		f.fail(key, err)
	}
	return n
}

func (f *eventFields) u16(key string) uint16 {
	v, ok := f.lookup(key)
	if !ok {
		return 0
	}
	n, err := asUint16(v)
	if err != nil {
		f.fail(key, err)
	}
	return n
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > common.HashLength {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
