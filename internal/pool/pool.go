package pool

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/oracle"
	"liquidityEngine/internal/position"
	"liquidityEngine/internal/tick"
)

// Config is the immutable configuration of a pool.
type Config struct {
	Address common.Address
	Token0  common.Address
	Token1  common.Address
	// Fee is the swap fee in hundredths of a basis point.
	Fee uint32
	// TickSpacing defaults to the spacing of the standard fee tier when zero.
	TickSpacing int32
	// Owner may change and collect protocol fees.
	Owner common.Address
}

// Clock supplies the block timestamp used by the oracle.
type Clock interface {
	BlockTimestamp() uint32
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint32

func (f ClockFunc) BlockTimestamp() uint32 { return f() }

type systemClock struct{}

func (systemClock) BlockTimestamp() uint32 { return uint32(time.Now().Unix()) }

// EventSink receives events of successful state-changing calls.
type EventSink interface {
	Emit(event model.PoolEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event model.PoolEvent)

func (f EventSinkFunc) Emit(event model.PoolEvent) { f(event) }

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock sets the block timestamp source.
func WithClock(clock Clock) Option {
	return func(p *Pool) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithEventSink sets the event sink.
func WithEventSink(sink EventSink) Option {
	return func(p *Pool) {
		p.sink = sink
	}
}

// Pool is a concentrated liquidity pool. It is not safe for concurrent use:
// callers serialize every call.
type Pool struct {
	cfg                 Config
	maxLiquidityPerTick *uint256.Int

	tokens TokenMover
	clock  Clock
	sink   EventSink
	logger *zap.Logger

	slot0                Slot0
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	protocolFees0        *uint256.Int
	protocolFees1        *uint256.Int
	liquidity            *uint256.Int

	ticks        *tick.Table
	positions    *position.Ledger
	observations *oracle.Buffer
}

// New creates an uninitialized pool.
func New(cfg Config, tokens TokenMover, opts ...Option) (*Pool, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token mover is required")
	}
	if err := clmath.ValidateFee(cfg.Fee); err != nil {
		return nil, err
	}
	if cfg.TickSpacing == 0 {
		spacing, err := clmath.TickSpacingForFee(cfg.Fee)
		if err != nil {
			return nil, fmt.Errorf("tick spacing for fee %d: %w", cfg.Fee, err)
		}
		cfg.TickSpacing = spacing
	}
	maxLiquidity, err := clmath.MaxLiquidityPerTick(cfg.TickSpacing)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:                  cfg,
		maxLiquidityPerTick:  maxLiquidity,
		tokens:               tokens,
		clock:                systemClock{},
		logger:               zap.NewNop(),
		feeGrowthGlobal0X128: new(uint256.Int),
		feeGrowthGlobal1X128: new(uint256.Int),
		protocolFees0:        new(uint256.Int),
		protocolFees1:        new(uint256.Int),
		liquidity:            new(uint256.Int),
		ticks:                tick.NewTable(),
		positions:            position.NewLedger(),
		observations:         oracle.NewBuffer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("pool", cfg.Address.Hex()))
	return p, nil
}

// Initialize sets the starting price. It can be called once.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int) error {
	if p.slot0.SqrtPriceX96 != nil {
		return ErrAlreadyInitialized
	}
	tickAtPrice, err := clmath.TickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	before := p.state()
	cardinality, cardinalityNext := p.observations.Initialize(p.clock.BlockTimestamp())
	p.slot0 = Slot0{
		SqrtPriceX96:               sqrtPriceX96.Clone(),
		Tick:                       tickAtPrice,
		ObservationCardinality:     cardinality,
		ObservationCardinalityNext: cardinalityNext,
		Unlocked:                   true,
	}

	p.logger.Info("pool initialized",
		zap.String("sqrt_price_x96", sqrtPriceX96.ToBig().String()),
		zap.Int32("tick", tickAtPrice),
	)
	p.emit(model.PoolEvent{
		Name: model.EventInitialize,
		Data: model.InitializeEventData{
			SqrtPriceX96: sqrtPriceX96.ToBig().String(),
			Tick:         tickAtPrice,
		},
		Before: before,
	})
	return nil
}

// Config returns the pool configuration with the resolved tick spacing.
func (p *Pool) Config() Config { return p.cfg }

// MaxLiquidityPerTick returns the liquidityGross cap of a single tick.
func (p *Pool) MaxLiquidityPerTick() *uint256.Int { return p.maxLiquidityPerTick.Clone() }

// Slot0 returns a copy of the root pool record.
func (p *Pool) Slot0() Slot0 { return p.slot0.clone() }

// Liquidity returns the active liquidity.
func (p *Pool) Liquidity() *uint256.Int { return p.liquidity.Clone() }

// FeeGrowthGlobal returns the global fee growth accumulators of both tokens.
func (p *Pool) FeeGrowthGlobal() (*uint256.Int, *uint256.Int) {
	return p.feeGrowthGlobal0X128.Clone(), p.feeGrowthGlobal1X128.Clone()
}

// ProtocolFees returns the uncollected protocol fees of both tokens.
func (p *Pool) ProtocolFees() (*uint256.Int, *uint256.Int) {
	return p.protocolFees0.Clone(), p.protocolFees1.Clone()
}

// Tick returns the data stored at t.
func (p *Pool) Tick(t int32) (tick.Info, bool) { return p.ticks.Get(t) }

// InitializedTicks returns every initialized tick in ascending order.
func (p *Pool) InitializedTicks() []int32 { return p.ticks.Initialized() }

// LiquidityNetSum returns the sum of liquidityNet over all ticks, zero in a consistent pool.
func (p *Pool) LiquidityNetSum() *big.Int { return p.ticks.LiquidityNetSum() }

// Position returns the position of owner over [tickLower, tickUpper].
func (p *Pool) Position(owner common.Address, tickLower, tickUpper int32) (position.Info, bool) {
	return p.positions.Get(position.Key{Owner: owner, TickLower: tickLower, TickUpper: tickUpper})
}

// PositionKeys returns the keys of every position ever created.
func (p *Pool) PositionKeys() []position.Key { return p.positions.Keys() }

// Observation returns the oracle slot at index.
func (p *Pool) Observation(index uint16) oracle.Observation { return p.observations.At(index) }

func (p *Pool) checkTicks(tickLower, tickUpper int32) error {
	switch {
	case tickLower >= tickUpper:
		return fmt.Errorf("lower %d >= upper %d: %w", tickLower, tickUpper, ErrInvalidRange)
	case tickLower < clmath.MinTick || tickUpper > clmath.MaxTick:
		return fmt.Errorf("range [%d, %d] out of bounds: %w", tickLower, tickUpper, ErrInvalidRange)
	case !clmath.IsAlignedTick(tickLower, p.cfg.TickSpacing) || !clmath.IsAlignedTick(tickUpper, p.cfg.TickSpacing):
		return fmt.Errorf("range [%d, %d] not aligned to spacing %d: %w", tickLower, tickUpper, p.cfg.TickSpacing, ErrInvalidRange)
	}
	return nil
}

func (p *Pool) balance0() *uint256.Int {
	return p.tokens.BalanceOf(p.cfg.Token0, p.cfg.Address)
}

func (p *Pool) balance1() *uint256.Int {
	return p.tokens.BalanceOf(p.cfg.Token1, p.cfg.Address)
}

func (p *Pool) globals(time uint32, tickCumulative int64, secondsPerLiquidity *uint256.Int) tick.Globals {
	return tick.Globals{
		FeeGrowthGlobal0X128:              p.feeGrowthGlobal0X128,
		FeeGrowthGlobal1X128:              p.feeGrowthGlobal1X128,
		SecondsPerLiquidityCumulativeX128: secondsPerLiquidity,
		TickCumulative:                    tickCumulative,
		Time:                              time,
	}
}

func (p *Pool) state() model.PoolState {
	s := model.PoolState{
		Tick:                       p.slot0.Tick,
		Liquidity:                  dec(p.liquidity),
		FeeGrowthGlobal0X128:       dec(p.feeGrowthGlobal0X128),
		FeeGrowthGlobal1X128:       dec(p.feeGrowthGlobal1X128),
		ProtocolFees0:              dec(p.protocolFees0),
		ProtocolFees1:              dec(p.protocolFees1),
		ObservationIndex:           p.slot0.ObservationIndex,
		ObservationCardinality:     p.slot0.ObservationCardinality,
		ObservationCardinalityNext: p.slot0.ObservationCardinalityNext,
		FeeProtocol:                p.slot0.FeeProtocol.Packed(),
	}
	if p.slot0.SqrtPriceX96 != nil {
		s.SqrtPriceX96 = dec(p.slot0.SqrtPriceX96)
	} else {
		s.SqrtPriceX96 = "0"
	}
	return s
}

func (p *Pool) emit(event model.PoolEvent) {
	if p.sink == nil {
		return
	}
	event.Pool = p.cfg.Address.Hex()
	event.Timestamp = p.clock.BlockTimestamp()
	event.After = p.state()
	p.sink.Emit(event)
}

func dec(v *uint256.Int) string {
	return v.ToBig().String()
}
