package replay

import (
	"encoding/json"
	"fmt"

	"liquidityEngine/internal/dex"
	"liquidityEngine/internal/model"
)

// sourceLine accepts both input forms: typed event records carry event_name,
// raw pool logs carry topics.
type sourceLine struct {
	EventName string   `json:"event_name"`
	Topics    []string `json:"topics"`
}

// decodeLine turns one JSONL line into a typed event.
func (r *Runner) decodeLine(line []byte) (model.TypedEvent, error) {
	var probe sourceLine
	if err := json.Unmarshal(line, &probe); err != nil {
		return model.TypedEvent{}, fmt.Errorf("parse line: %w", err)
	}

	if probe.EventName == "" && len(probe.Topics) > 0 {
		var log model.LogRecord
		if err := json.Unmarshal(line, &log); err != nil {
			return model.TypedEvent{}, fmt.Errorf("parse log: %w", err)
		}
		if log.Removed {
			return model.TypedEvent{}, fmt.Errorf("%w: removed log", errSkipped)
		}
		if !r.decoder.CanDecode(log.Topic0()) {
			return model.TypedEvent{}, fmt.Errorf("%w: unsupported topic0 %s", errSkipped, log.Topic0())
		}
		event, err := r.decoder.Decode(log, dex.DecodeContext{PoolMetaCache: r.metaCache, Logger: r.logger})
		if err != nil {
			return model.TypedEvent{}, err
		}
		return *event, nil
	}

	var record model.TypedEventRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return model.TypedEvent{}, fmt.Errorf("parse typed event: %w", err)
	}
	return record.TypedEvent()
}
