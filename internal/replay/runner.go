package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/dex"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/pool"
	"liquidityEngine/internal/storage"
	"liquidityEngine/internal/vault"
)

// Config holds runtime settings for a replay.
type Config struct {
	ChainID uint64
	// Pool overrides the metadata carried by the source. Zero fields are
	// filled from the first record.
	Pool pool.Config
	// SqrtPriceX96 initializes the pool before the first record when set.
	SqrtPriceX96    *uint256.Int
	CardinalityNext uint16
	SwapMode        SwapMode
	// Until stops the replay at the first record after this unix timestamp.
	Until        uint64
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	Topic0Map    map[string]string
}

// SnapshotStore persists the final pool state.
type SnapshotStore interface {
	SavePoolSnapshot(ctx context.Context, snapshot model.PoolSnapshot) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSink sets where engine events are written as logs.
func WithSink(sink storage.Storage) Option {
	return func(r *Runner) { r.sink = sink }
}

// WithSnapshotStore sets where the final pool state is saved.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(r *Runner) { r.snapshots = store }
}

// WithStateStore sets where replay progress is kept.
func WithStateStore(store StateStore) Option {
	return func(r *Runner) { r.state = store }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner replays a recorded pool history through an engine pool.
type Runner struct {
	cfg       Config
	decoder   *dex.V3PoolDecoder
	encoder   *dex.V3PoolEncoder
	metaCache *dex.PoolMetaCache
	sink      storage.Storage
	snapshots SnapshotStore
	state     StateStore
	logger    *zap.Logger

	vault    *vault.Vault
	pool     *pool.Pool
	replayer *replayer
	now      uint32
	pending  []model.PoolEvent
	grown    bool
	seen     map[string]struct{}
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	decoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}
	encoder, err := dex.NewV3PoolEncoder(cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("build encoder: %w", err)
	}

	r := &Runner{
		cfg:       cfg,
		decoder:   decoder,
		encoder:   encoder,
		metaCache: dex.NewPoolMetaCache(),
		logger:    zap.NewNop(),
		vault:     vault.New(),
		seen:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.Pool.Address != (common.Address{}) && cfg.Pool.Token0 != (common.Address{}) {
		r.metaCache.Set(cfg.Pool.Address, model.PoolMeta{
			Token0:      cfg.Pool.Token0.Hex(),
			Token1:      cfg.Pool.Token1.Hex(),
			Fee:         cfg.Pool.Fee,
			TickSpacing: cfg.Pool.TickSpacing,
		})
	}
	return r, nil
}

// Pool returns the engine pool, or nil before the first record.
func (r *Runner) Pool() *pool.Pool { return r.pool }

// Vault returns the token ledger backing the pool.
func (r *Runner) Vault() *vault.Vault { return r.vault }

// Run replays a JSONL file of typed events or raw pool logs. Records that
// fail to apply are counted and skipped. Engine events of records at or
// before the stored progress are not written again.
func (r *Runner) Run(ctx context.Context, inputPath string) (Summary, error) {
	summary := newSummary()

	var (
		resume    model.Progress
		hasResume bool
	)
	if r.state != nil {
		var err error
		resume, hasResume, err = r.state.Load(ctx)
		if err != nil {
			return summary, fmt.Errorf("load state: %w", err)
		}
		if hasResume {
			r.logger.Info("resume output after stored progress",
				zap.Uint64("last_block", resume.BlockNumber),
				zap.Uint64("last_log_index", resume.LogIndex),
			)
		}
	}

	reader, err := storage.OpenLines(inputPath)
	if err != nil {
		return summary, err
	}
	defer reader.Close()

	batch := make([]model.LogRecord, 0, r.cfg.BatchSize)
	started := false

	for {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		line, ok := reader.Next()
		if !ok {
			break
		}
		summary.Records++

		event, err := r.decodeLine(line)
		if err != nil {
			if errors.Is(err, errSkipped) {
				summary.Skipped++
				continue
			}
			summary.Failed++
			r.logger.Warn("decode record", zap.Error(err), zap.Int("line", reader.Line()))
			continue
		}
		if r.cfg.Until > 0 && event.Timestamp > r.cfg.Until {
			r.logger.Info("stop at until", zap.Uint64("timestamp", event.Timestamp), zap.Uint64("until", r.cfg.Until))
			break
		}
		if r.isDuplicate(event) {
			summary.Skipped++
			continue
		}

		pos := model.Progress{BlockNumber: event.BlockNumber, LogIndex: event.LogIndex}
		if started && pos.Before(summary.Last) {
			summary.Failed++
			r.logger.Warn("record out of order",
				zap.Uint64("block_number", event.BlockNumber),
				zap.Uint64("log_index", event.LogIndex),
			)
			continue
		}

		r.pending = r.pending[:0]
		if event.Timestamp > 0 && uint32(event.Timestamp) >= r.now {
			r.now = uint32(event.Timestamp)
		}
		if err := r.ensurePool(event); err != nil {
			return summary, err
		}
		if r.pool.Config().Address != common.HexToAddress(event.Address) {
			summary.Skipped++
			continue
		}
		started = true
		summary.Last = pos

		diverged, err := r.replayer.apply(event)
		switch {
		case errors.Is(err, errSkipped):
			summary.Skipped++
			r.logger.Debug("record skipped", zap.String("event", event.EventName), zap.Error(err))
		case err != nil:
			summary.Failed++
			r.logger.Warn("apply record",
				zap.Error(err),
				zap.String("event", event.EventName),
				zap.Uint64("block_number", event.BlockNumber),
				zap.Uint64("log_index", event.LogIndex),
			)
		default:
			summary.Applied++
			if diverged {
				summary.Divergent++
				r.logger.Debug("engine result differs from record",
					zap.String("event", event.EventName),
					zap.Uint64("block_number", event.BlockNumber),
					zap.Uint64("log_index", event.LogIndex),
				)
			}
		}
		if err := r.growObservations(); err != nil {
			return summary, err
		}
		summary.addSwaps(r.pending, r.pool.Config().Fee)

		if hasResume && !resume.Before(pos) {
			continue
		}
		batch = append(batch, r.encodePending(event)...)

		if len(batch) >= r.cfg.BatchSize {
			if err := r.flush(ctx, batch, summary.Last); err != nil {
				return summary, err
			}
			summary.Emitted += len(batch)
			batch = batch[:0]
		}
	}

	if err := reader.Err(); err != nil {
		return summary, err
	}

	if started {
		if err := r.flush(ctx, batch, summary.Last); err != nil {
			return summary, err
		}
		summary.Emitted += len(batch)
	}

	if err := r.saveSnapshot(ctx, summary.Last); err != nil {
		return summary, err
	}

	summary.finish(r.pool)
	return summary, nil
}

// ensurePool creates the engine pool from the configured overrides and the
// metadata of the first record.
func (r *Runner) ensurePool(event model.TypedEvent) error {
	if r.pool != nil {
		return nil
	}

	cfg := r.cfg.Pool
	meta := event.PoolMeta
	if cfg.Address == (common.Address{}) {
		if !common.IsHexAddress(event.Address) {
			return fmt.Errorf("invalid pool address: %s", event.Address)
		}
		cfg.Address = common.HexToAddress(event.Address)
	}
	if cached, ok := r.metaCache.Get(cfg.Address); ok {
		meta = meta.Merge(cached)
	}
	if cfg.Token0 == (common.Address{}) && common.IsHexAddress(meta.Token0) {
		cfg.Token0 = common.HexToAddress(meta.Token0)
	}
	if cfg.Token1 == (common.Address{}) && common.IsHexAddress(meta.Token1) {
		cfg.Token1 = common.HexToAddress(meta.Token1)
	}
	if cfg.Fee == 0 {
		cfg.Fee = meta.Fee
	}
	if cfg.TickSpacing == 0 {
		cfg.TickSpacing = meta.TickSpacing
	}
	if cfg.Token0 == cfg.Token1 {
		return fmt.Errorf("pool %s: token0 and token1 must differ", cfg.Address.Hex())
	}

	p, err := pool.New(cfg, r.vault,
		pool.WithLogger(r.logger),
		pool.WithClock(pool.ClockFunc(func() uint32 { return r.now })),
		pool.WithEventSink(pool.EventSinkFunc(func(event model.PoolEvent) {
			r.pending = append(r.pending, event)
		})),
	)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	r.pool = p
	r.replayer = &replayer{pool: p, vault: r.vault, cfg: p.Config(), mode: r.cfg.SwapMode}
	r.metaCache.Set(cfg.Address, model.PoolMeta{
		Token0:      cfg.Token0.Hex(),
		Token1:      cfg.Token1.Hex(),
		Fee:         cfg.Fee,
		TickSpacing: p.Config().TickSpacing,
	})
	r.logger.Info("pool created",
		zap.String("pool", cfg.Address.Hex()),
		zap.String("token0", cfg.Token0.Hex()),
		zap.String("token1", cfg.Token1.Hex()),
		zap.Uint32("fee", cfg.Fee),
		zap.Int32("tick_spacing", p.Config().TickSpacing),
	)

	sqrtPrice := r.cfg.SqrtPriceX96
	if sqrtPrice == nil && meta.Slot0 != nil && event.EventName != model.EventInitialize {
		parsed, err := parseUint("slot0 sqrt_price_x96", meta.Slot0.SqrtPriceX96)
		if err != nil {
			return err
		}
		sqrtPrice = parsed
	}
	if sqrtPrice != nil {
		if err := p.Initialize(sqrtPrice); err != nil {
			return fmt.Errorf("initialize pool: %w", err)
		}
	}
	return r.growObservations()
}

// growObservations applies the configured oracle capacity once the pool has a price.
func (r *Runner) growObservations() error {
	if r.grown || r.cfg.CardinalityNext <= 1 || r.pool.Slot0().SqrtPriceX96 == nil {
		return nil
	}
	r.grown = true
	if err := r.pool.IncreaseObservationCardinalityNext(r.cfg.CardinalityNext); err != nil {
		return fmt.Errorf("grow observations: %w", err)
	}
	return nil
}

// encodePending turns the engine events of one record into logs stamped with
// the record's source coordinates.
func (r *Runner) encodePending(source model.TypedEvent) []model.LogRecord {
	if len(r.pending) == 0 {
		return nil
	}
	ingestedAt := time.Now().UTC().Format(time.RFC3339Nano)
	out := make([]model.LogRecord, 0, len(r.pending))
	for _, event := range r.pending {
		log, err := r.encoder.Encode(event)
		if err != nil {
			r.logger.Warn("encode engine event", zap.Error(err), zap.String("event", event.Name))
			continue
		}
		log.BlockNumber = source.BlockNumber
		log.BlockHash = source.BlockHash
		log.TxHash = source.TxHash
		log.LogIndex = source.LogIndex
		log.IngestedAt = ingestedAt
		out = append(out, log)
	}
	return out
}

func (r *Runner) flush(ctx context.Context, batch []model.LogRecord, last model.Progress) error {
	if r.sink != nil && len(batch) > 0 {
		err := r.retry().do(ctx, "store logs", func(context.Context) error {
			return r.sink.PutLogBatch(batch)
		})
		if err != nil {
			return fmt.Errorf("store logs: %w", err)
		}
	}
	if r.state != nil {
		if err := r.state.Save(ctx, last); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	r.logger.Debug("batch complete", zap.Int("logs", len(batch)), zap.Uint64("last_block", last.BlockNumber))
	return nil
}

func (r *Runner) saveSnapshot(ctx context.Context, last model.Progress) error {
	if r.snapshots == nil || r.pool == nil {
		return nil
	}
	snapshot := r.pool.Snapshot(r.cfg.ChainID)
	snapshot.BlockNumber = last.BlockNumber
	err := r.retry().do(ctx, "save snapshot", func(ctx context.Context) error {
		return r.snapshots.SavePoolSnapshot(ctx, snapshot)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	r.logger.Info("snapshot saved",
		zap.String("pool", snapshot.Pool.Address),
		zap.Int("ticks", len(snapshot.Ticks)),
		zap.Int("positions", len(snapshot.Positions)),
	)
	return nil
}

func (r *Runner) isDuplicate(event model.TypedEvent) bool {
	if event.TxHash == "" {
		return false
	}
	id := fmt.Sprintf("%d:%s:%d", event.BlockNumber, event.TxHash, event.LogIndex)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

func (r *Runner) retry() retrier {
	return newRetrier(r.cfg.MaxRetries, r.cfg.RetryBackoff, r.logger)
}
