package dex

import (
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// Encoder turns engine events into logs a Decoder can read back.
type Encoder interface {
	Encode(event model.PoolEvent) (model.LogRecord, error)
}

// DecodeContext provides shared dependencies for decoders.
type DecodeContext struct {
	PoolMetaCache *PoolMetaCache
	Logger        *zap.Logger
}
