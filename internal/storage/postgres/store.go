package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityEngine/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables used by the store.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func schemaStatements() []string {
	parts := strings.Split(schemaSQL, ";")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// SavePoolSnapshot replaces the stored state of one pool in a single transaction.
// Ticks no longer initialized are removed; positions are never deleted.
func (s *Store) SavePoolSnapshot(ctx context.Context, snapshot model.PoolSnapshot) error {
	if snapshot.Pool.Address == "" {
		return fmt.Errorf("pool address is required")
	}
	batch := snapshotBatch(snapshot)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("snapshot statement %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

func snapshotBatch(snapshot model.PoolSnapshot) *pgx.Batch {
	pool := snapshot.Pool
	state := snapshot.State
	chainID := int64(pool.ChainID)

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO pools (
			chain_id, pool_address, token0, token1, fee, tick_spacing, owner, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (chain_id, pool_address)
		DO UPDATE SET
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			fee = EXCLUDED.fee,
			tick_spacing = EXCLUDED.tick_spacing,
			owner = EXCLUDED.owner,
			updated_at = now()
	`,
		chainID,
		pool.Address,
		pool.Token0,
		pool.Token1,
		int32(pool.Fee),
		pool.TickSpacing,
		pool.Owner,
	)

	batch.Queue(`
		INSERT INTO pool_states (
			chain_id, pool_address, block_number, sqrt_price_x96, tick, liquidity,
			fee_growth_global0_x128, fee_growth_global1_x128, protocol_fees0, protocol_fees1,
			observation_index, observation_cardinality, observation_cardinality_next, fee_protocol, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
		ON CONFLICT (chain_id, pool_address)
		DO UPDATE SET
			block_number = EXCLUDED.block_number,
			sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
			tick = EXCLUDED.tick,
			liquidity = EXCLUDED.liquidity,
			fee_growth_global0_x128 = EXCLUDED.fee_growth_global0_x128,
			fee_growth_global1_x128 = EXCLUDED.fee_growth_global1_x128,
			protocol_fees0 = EXCLUDED.protocol_fees0,
			protocol_fees1 = EXCLUDED.protocol_fees1,
			observation_index = EXCLUDED.observation_index,
			observation_cardinality = EXCLUDED.observation_cardinality,
			observation_cardinality_next = EXCLUDED.observation_cardinality_next,
			fee_protocol = EXCLUDED.fee_protocol,
			updated_at = now()
	`,
		chainID,
		pool.Address,
		int64(snapshot.BlockNumber),
		state.SqrtPriceX96,
		state.Tick,
		state.Liquidity,
		state.FeeGrowthGlobal0X128,
		state.FeeGrowthGlobal1X128,
		state.ProtocolFees0,
		state.ProtocolFees1,
		int32(state.ObservationIndex),
		int32(state.ObservationCardinality),
		int32(state.ObservationCardinalityNext),
		int16(state.FeeProtocol),
	)

	batch.Queue(`DELETE FROM pool_ticks WHERE chain_id = $1 AND pool_address = $2`, chainID, pool.Address)
	for _, t := range snapshot.Ticks {
		batch.Queue(`
			INSERT INTO pool_ticks (
				chain_id, pool_address, tick, liquidity_gross, liquidity_net,
				fee_growth_outside0_x128, fee_growth_outside1_x128, tick_cumulative_outside,
				seconds_per_liquidity_outside_x128, seconds_outside
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			chainID,
			pool.Address,
			t.Tick,
			t.LiquidityGross,
			t.LiquidityNet,
			t.FeeGrowthOutside0X128,
			t.FeeGrowthOutside1X128,
			t.TickCumulativeOutside,
			t.SecondsPerLiquidityOutsideX128,
			int64(t.SecondsOutside),
		)
	}

	for _, p := range snapshot.Positions {
		batch.Queue(`
			INSERT INTO pool_positions (
				chain_id, pool_address, owner, tick_lower, tick_upper, liquidity,
				fee_growth_inside0_last_x128, fee_growth_inside1_last_x128, tokens_owed0, tokens_owed1, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
			ON CONFLICT (chain_id, pool_address, owner, tick_lower, tick_upper)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				fee_growth_inside0_last_x128 = EXCLUDED.fee_growth_inside0_last_x128,
				fee_growth_inside1_last_x128 = EXCLUDED.fee_growth_inside1_last_x128,
				tokens_owed0 = EXCLUDED.tokens_owed0,
				tokens_owed1 = EXCLUDED.tokens_owed1,
				updated_at = now()
		`,
			chainID,
			pool.Address,
			p.Owner,
			p.TickLower,
			p.TickUpper,
			p.Liquidity,
			p.FeeGrowthInside0LastX128,
			p.FeeGrowthInside1LastX128,
			p.TokensOwed0,
			p.TokensOwed1,
		)
	}
	return batch
}

// LoadState returns the replay progress stored under name.
func (s *Store) LoadState(ctx context.Context, name string) (model.Progress, bool, error) {
	if name == "" {
		return model.Progress{}, false, fmt.Errorf("state name required")
	}
	var block, logIndex int64
	row := s.pool.QueryRow(ctx, `SELECT last_block, last_log_index FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&block, &logIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Progress{}, false, nil
		}
		return model.Progress{}, false, err
	}
	return model.Progress{BlockNumber: uint64(block), LogIndex: uint64(logIndex)}, true, nil
}

// SaveState upserts the replay progress for name.
func (s *Store) SaveState(ctx context.Context, name string, progress model.Progress) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_block, last_log_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_block = EXCLUDED.last_block, last_log_index = EXCLUDED.last_log_index, updated_at = now()
	`, name, int64(progress.BlockNumber), int64(progress.LogIndex))
	return err
}
