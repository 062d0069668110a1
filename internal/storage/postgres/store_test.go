package postgres

import (
	"strings"
	"testing"

	"liquidityEngine/internal/model"
)

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	for _, table := range []string{"pools", "pool_states", "pool_ticks", "pool_positions", "replay_state"} {
		found := false
		for _, stmt := range stmts {
			if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" (") {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestSnapshotBatch(t *testing.T) {
	snapshot := model.PoolSnapshot{
		Pool: model.Pool{ChainID: 1, Address: "0x9999999999999999999999999999999999999999", Fee: 3000, TickSpacing: 60},
		State: model.PoolState{
			SqrtPriceX96: "79228162514264337593543950336",
			Liquidity:    "1000000",
		},
		Ticks: []model.TickSnapshot{
			{Tick: -600, LiquidityGross: "1000000", LiquidityNet: "1000000"},
			{Tick: 600, LiquidityGross: "1000000", LiquidityNet: "-1000000"},
		},
		Positions: []model.PositionSnapshot{
			{Owner: "0x1111111111111111111111111111111111111111", TickLower: -600, TickUpper: 600, Liquidity: "1000000"},
		},
		BlockNumber: 42,
	}

	batch := snapshotBatch(snapshot)
	// pool, state, tick cleanup, two ticks, one position
	if batch.Len() != 6 {
		t.Fatalf("expected 6 queued statements, got %d", batch.Len())
	}
	cleanup := batch.QueuedQueries[2]
	if !strings.Contains(cleanup.SQL, "DELETE FROM pool_ticks") {
		t.Fatalf("expected tick cleanup third, got %q", cleanup.SQL)
	}
	state := batch.QueuedQueries[1]
	if state.Arguments[2] != int64(42) {
		t.Fatalf("block number argument mismatch: %v", state.Arguments[2])
	}
	tickArgs := batch.QueuedQueries[4].Arguments
	if tickArgs[2] != int32(600) || tickArgs[4] != "-1000000" {
		t.Fatalf("tick arguments mismatch: %v", tickArgs)
	}
}
