package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"liquidityEngine/internal/dex"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/pool"
	"liquidityEngine/internal/storage"
)

const (
	poolAddr  = "0x1111111111111111111111111111111111111111"
	otherPool = "0x9999999999999999999999999999999999999999"
	lp        = "0x2222222222222222222222222222222222222222"
	trader    = "0x3333333333333333333333333333333333333333"
	stranger  = "0x4444444444444444444444444444444444444444"
	tokenA    = "0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa"
	tokenB    = "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"
	q96       = "79228162514264337593543950336"
)

func record(t *testing.T, block, logIndex, ts uint64, address, name string, payload interface{}) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	line, err := json.Marshal(model.TypedEventRecord{
		ChainID:     1,
		BlockNumber: block,
		TxHash:      fmt.Sprintf("0x%064x", block*100+logIndex),
		LogIndex:    logIndex,
		Address:     address,
		EventName:   name,
		Timestamp:   ts,
		Decoded:     data,
		PoolMeta: model.PoolMeta{
			Token0:      tokenA,
			Token1:      tokenB,
			Fee:         3000,
			TickSpacing: 60,
		},
	})
	require.NoError(t, err)
	return string(line)
}

func mustUint(t *testing.T, value string) *uint256.Int {
	t.Helper()
	n, err := parseUint("value", value)
	require.NoError(t, err)
	return n
}

func poolConfig() pool.Config {
	return pool.Config{
		Address: common.HexToAddress(poolAddr),
		Token0:  common.HexToAddress(tokenA),
		Token1:  common.HexToAddress(tokenB),
		Fee:     3000,
	}
}

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	return path
}

func readLogs(t *testing.T, path string) []model.LogRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []model.LogRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var log model.LogRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &log))
		out = append(out, log)
	}
	require.NoError(t, scanner.Err())
	return out
}

func history(t *testing.T) []string {
	return []string{
		record(t, 1, 0, 1000, poolAddr, model.EventInitialize, model.InitializeEventData{SqrtPriceX96: q96, Tick: 0}),
		record(t, 2, 0, 1010, poolAddr, model.EventMint, model.MintEventData{
			Sender: lp, Owner: lp, TickLower: -600, TickUpper: 600,
			Amount: "1000000000000000000", Amount0: "0", Amount1: "0",
		}),
		record(t, 3, 0, 1020, poolAddr, model.EventSwap, model.SwapEventData{
			Sender: trader, Recipient: trader, Amount0: "1000000", Amount1: "-990000",
			SqrtPriceX96: q96, Liquidity: "1000000000000000000", Tick: 0,
		}),
		record(t, 4, 0, 1030, poolAddr, model.EventBurn, model.BurnEventData{
			Owner: lp, TickLower: -600, TickUpper: 600,
			Amount: "1000000000000000000", Amount0: "0", Amount1: "0",
		}),
		record(t, 5, 0, 1040, poolAddr, model.EventCollect, model.CollectEventData{
			Owner: lp, Recipient: lp, TickLower: -600, TickUpper: 600, Amount0: "1", Amount1: "1",
		}),
		record(t, 6, 0, 1050, otherPool, model.EventSwap, model.SwapEventData{
			Sender: trader, Recipient: trader, Amount0: "5", Amount1: "-4", SqrtPriceX96: q96, Liquidity: "1",
		}),
		`{"event_name":`,
		record(t, 7, 0, 1060, poolAddr, model.EventBurn, model.BurnEventData{
			Owner: stranger, TickLower: -600, TickUpper: 600, Amount: "5", Amount0: "0", Amount1: "0",
		}),
	}
}

func TestRunnerReplaysHistory(t *testing.T) {
	input := writeInput(t, history(t)...)
	dir := t.TempDir()
	output := filepath.Join(dir, "out.jsonl")
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}

	runner, err := NewRunner(Config{ChainID: 1, BatchSize: 2}, WithSink(storage.NewJsonlStorage(output)), WithStateStore(state))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 8, summary.Records)
	require.Equal(t, 5, summary.Applied)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 2, summary.Failed)
	require.Equal(t, 5, summary.Emitted)
	require.Equal(t, uint64(1), summary.SwapCount)
	require.Equal(t, "1000000", summary.Volume0.String())
	require.Equal(t, "3000", summary.Fee0.String())
	require.Equal(t, model.Progress{BlockNumber: 7}, summary.Last)
	require.NotNil(t, summary.FinalSqrtPriceX96)

	p := runner.Pool()
	require.NotNil(t, p)
	require.Equal(t, common.HexToAddress(poolAddr), p.Config().Address)
	require.Equal(t, int32(60), p.Config().TickSpacing)
	require.True(t, p.Liquidity().IsZero())
	require.True(t, runner.Vault().BalanceOf(common.HexToAddress(tokenA), common.HexToAddress(lp)).Eq(uint256.NewInt(1)))

	logs := readLogs(t, output)
	require.Len(t, logs, 5)
	decoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{})
	require.NoError(t, err)
	names := make([]string, 0, len(logs))
	for _, log := range logs {
		event, err := decoder.Decode(log, dex.DecodeContext{})
		require.NoError(t, err)
		names = append(names, event.EventName)
	}
	require.Equal(t, []string{
		model.EventInitialize, model.EventMint, model.EventSwap, model.EventBurn, model.EventCollect,
	}, names)
	require.Equal(t, uint64(3), logs[2].BlockNumber)

	progress, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.Progress{BlockNumber: 7}, progress)
}

func TestRunnerResumeSkipsWrittenOutput(t *testing.T) {
	input := writeInput(t, history(t)...)
	dir := t.TempDir()
	output := filepath.Join(dir, "out.jsonl")
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}

	for i := 0; i < 2; i++ {
		runner, err := NewRunner(Config{ChainID: 1}, WithSink(storage.NewJsonlStorage(output)), WithStateStore(state))
		require.NoError(t, err)
		summary, err := runner.Run(context.Background(), input)
		require.NoError(t, err)
		require.Equal(t, 5, summary.Applied)
		if i == 1 {
			require.Equal(t, 0, summary.Emitted)
		}
	}
	require.Len(t, readLogs(t, output), 5)
}

func TestRunnerStopsAtUntil(t *testing.T) {
	input := writeInput(t, history(t)...)
	runner, err := NewRunner(Config{ChainID: 1, Until: 1010})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)
	require.Equal(t, uint64(0), summary.SwapCount)
	require.False(t, runner.Pool().Liquidity().IsZero())
}

func TestRunnerConfiguredPriceAndCardinality(t *testing.T) {
	lines := history(t)[1:3]
	input := writeInput(t, lines...)

	runner, err := NewRunner(Config{
		ChainID:         1,
		SqrtPriceX96:    mustUint(t, q96),
		CardinalityNext: 8,
		SwapMode:        SwapToRecordedPrice,
	})
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)
	slot0 := runner.Pool().Slot0()
	require.Equal(t, uint16(8), slot0.ObservationCardinalityNext)
	// The recorded price equals the start price, so the limit falls back to the bound.
	require.True(t, slot0.SqrtPriceX96.Lt(mustUint(t, q96)))
}

type memorySnapshots struct {
	saved []model.PoolSnapshot
}

func (m *memorySnapshots) SavePoolSnapshot(_ context.Context, snapshot model.PoolSnapshot) error {
	m.saved = append(m.saved, snapshot)
	return nil
}

func TestRunnerSavesSnapshot(t *testing.T) {
	input := writeInput(t, history(t)[:3]...)
	snapshots := &memorySnapshots{}
	runner, err := NewRunner(Config{ChainID: 5}, WithSnapshotStore(snapshots))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, snapshots.saved, 1)
	snap := snapshots.saved[0]
	require.Equal(t, uint64(5), snap.Pool.ChainID)
	require.Equal(t, uint64(3), snap.BlockNumber)
	require.Len(t, snap.Ticks, 2)
	require.Len(t, snap.Positions, 1)
}

func TestRunnerDecodesRawLogs(t *testing.T) {
	encoder, err := dex.NewV3PoolEncoder(1)
	require.NoError(t, err)

	var lines []string
	events := []model.PoolEvent{
		{Pool: poolAddr, Name: model.EventInitialize, Timestamp: 1000, Data: model.InitializeEventData{SqrtPriceX96: q96}},
		{Pool: poolAddr, Name: model.EventMint, Timestamp: 1010, Data: model.MintEventData{
			Sender: lp, Owner: lp, TickLower: -600, TickUpper: 600, Amount: "1000", Amount0: "0", Amount1: "0",
		}},
	}
	for i, event := range events {
		log, err := encoder.Encode(event)
		require.NoError(t, err)
		log.BlockNumber = uint64(i + 1)
		data, err := json.Marshal(log)
		require.NoError(t, err)
		lines = append(lines, string(data))
	}
	input := writeInput(t, lines...)

	runner, err := NewRunner(Config{ChainID: 1, Pool: poolConfig()})
	require.NoError(t, err)
	summary, err := runner.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Applied)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, uint32(3000), runner.Pool().Config().Fee)
}
