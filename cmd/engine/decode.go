package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/config"
	"liquidityEngine/internal/dex"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	decoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	metaCache := dex.NewPoolMetaCache()
	if cfg.Pool != "" {
		if !common.IsHexAddress(cfg.Pool) {
			return fmt.Errorf("invalid pool address: %s", cfg.Pool)
		}
		meta := model.PoolMeta{Token0: cfg.Token0, Token1: cfg.Token1, Fee: cfg.Fee}
		if spacing, err := clmath.TickSpacingForFee(cfg.Fee); err == nil {
			meta.TickSpacing = spacing
		}
		metaCache.Set(common.HexToAddress(cfg.Pool), meta)
	}
	decodeCtx := dex.DecodeContext{PoolMetaCache: metaCache, Logger: logger}

	reader, err := storage.OpenLines(cfg.In)
	if err != nil {
		return err
	}
	defer reader.Close()

	out := newBatchWriter(cfg.Out)
	if err := out.file.Truncate(); err != nil {
		return err
	}
	var errOut *batchWriter
	if cfg.Errors != "" {
		errOut = newBatchWriter(cfg.Errors)
		if err := errOut.file.Truncate(); err != nil {
			return err
		}
	}

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
	)

	workers, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	var stats decodeStats
	chunk := make([]rawLine, 0, decodeBatchSize)
	drain := func() error {
		results, err := decodeChunk(workers, decoder, decodeCtx, chunk)
		if err != nil {
			return err
		}
		chunk = chunk[:0]
		for _, res := range results {
			switch {
			case res.failure != nil:
				stats.failed++
				err = errOut.add(*res.failure)
			case res.event == nil:
				stats.skipped++
			default:
				stats.decoded++
				err = out.add(res.event)
			}
			if err != nil {
				return err
			}
		}
		return nil
	}

	for {
		line, ok := reader.Next()
		if !ok {
			break
		}
		chunk = append(chunk, rawLine{no: reader.Line(), data: append([]byte(nil), line...)})
		if len(chunk) == decodeBatchSize {
			if err := drain(); err != nil {
				return err
			}
		}
	}
	if err := reader.Err(); err != nil {
		return err
	}
	if err := drain(); err != nil {
		return err
	}
	if err := out.flush(); err != nil {
		return err
	}
	if err := errOut.flush(); err != nil {
		return err
	}

	logger.Info("decode complete", stats.fields()...)
	return nil
}

type rawLine struct {
	no   int
	data []byte
}

type decodeResult struct {
	event   *model.TypedEvent
	failure *model.DecodeError
}

// decodeChunk decodes lines on the worker pool. Results keep input order.
func decodeChunk(workers *ants.Pool, decoder dex.Decoder, ctx dex.DecodeContext, lines []rawLine) ([]decodeResult, error) {
	results := make([]decodeResult, len(lines))
	var wg sync.WaitGroup
	for i := range lines {
		i := i
		wg.Add(1)
		err := workers.Submit(func() {
			defer wg.Done()
			results[i].event, results[i].failure = decodeRawLine(decoder, ctx, lines[i].data, lines[i].no)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit decode task: %w", err)
		}
	}
	wg.Wait()
	return results, nil
}

type decodeStats struct {
	decoded, skipped, failed int
}

func (s decodeStats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("total", s.decoded+s.skipped+s.failed),
		zap.Int("decoded", s.decoded),
		zap.Int("skipped", s.skipped),
		zap.Int("failed", s.failed),
	}
}

// decodeRawLine decodes one raw log line. A nil event with a nil error means
// the log belongs to an event the decoder does not handle.
func decodeRawLine(decoder dex.Decoder, ctx dex.DecodeContext, line []byte, lineNo int) (*model.TypedEvent, *model.DecodeError) {
	var record model.LogRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, &model.DecodeError{Line: lineNo, Error: err.Error()}
	}
	if record.Topic0() == "" {
		failure := record.DecodeErrorAt(lineNo, fmt.Errorf("missing topic0"))
		return nil, &failure
	}
	if !decoder.CanDecode(record.Topic0()) {
		return nil, nil
	}
	event, err := decoder.Decode(record, ctx)
	if err != nil {
		failure := record.DecodeErrorAt(lineNo, err)
		return nil, &failure
	}
	return event, nil
}

const decodeBatchSize = 500

// batchWriter buffers JSONL output and appends it in batches. A nil
// batchWriter drops everything.
type batchWriter struct {
	file    *storage.JSONLFile
	pending []interface{}
}

func newBatchWriter(path string) *batchWriter {
	return &batchWriter{file: storage.NewJSONLFile(path)}
}

func (w *batchWriter) add(value interface{}) error {
	if w == nil {
		return nil
	}
	w.pending = append(w.pending, value)
	if len(w.pending) >= decodeBatchSize {
		return w.flush()
	}
	return nil
}

func (w *batchWriter) flush() error {
	if w == nil || len(w.pending) == 0 {
		return nil
	}
	if err := w.file.Append(w.pending...); err != nil {
		return err
	}
	w.pending = w.pending[:0]
	return nil
}
