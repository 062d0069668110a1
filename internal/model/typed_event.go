package model

import (
	"encoding/json"
	"fmt"
)

// TypedEvent is a decoded pool event together with its source log coordinates.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	BlockHash   string      `json:"block_hash"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	PoolMeta    PoolMeta    `json:"pool_meta"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}

// TypedEventRecord is the on-disk form of a TypedEvent with the payload left undecoded.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PoolMeta    PoolMeta        `json:"pool_meta"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// TypedEvent decodes the payload according to EventName. Payloads are
// returned as values, matching what the log decoder produces.
func (r TypedEventRecord) TypedEvent() (TypedEvent, error) {
	var (
		payload interface{}
		err     error
	)
	switch r.EventName {
	case EventSwap:
		payload, err = decodeAs[SwapEventData](r.Decoded)
	case EventMint:
		payload, err = decodeAs[MintEventData](r.Decoded)
	case EventBurn:
		payload, err = decodeAs[BurnEventData](r.Decoded)
	case EventCollect:
		payload, err = decodeAs[CollectEventData](r.Decoded)
	case EventFlash:
		payload, err = decodeAs[FlashEventData](r.Decoded)
	case EventInitialize:
		payload, err = decodeAs[InitializeEventData](r.Decoded)
	case EventIncreaseObservationCardinalityNext:
		payload, err = decodeAs[IncreaseObservationCardinalityNextEventData](r.Decoded)
	case EventSetFeeProtocol:
		payload, err = decodeAs[SetFeeProtocolEventData](r.Decoded)
	case EventCollectProtocol:
		payload, err = decodeAs[CollectProtocolEventData](r.Decoded)
	default:
		return TypedEvent{}, fmt.Errorf("unsupported event %q", r.EventName)
	}
	if err != nil {
		return TypedEvent{}, fmt.Errorf("decode %s payload: %w", r.EventName, err)
	}
	return TypedEvent{
		ChainID:     r.ChainID,
		BlockNumber: r.BlockNumber,
		BlockHash:   r.BlockHash,
		TxHash:      r.TxHash,
		LogIndex:    r.LogIndex,
		Address:     r.Address,
		EventName:   r.EventName,
		Timestamp:   r.Timestamp,
		Decoded:     payload,
		PoolMeta:    r.PoolMeta,
		Raw:         r.Raw,
	}, nil
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var out T
	err := json.Unmarshal(raw, &out)
	return out, err
}
