package dex

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"liquidityEngine/internal/model"
)

var (
	testPool  = common.HexToAddress("0x5555555555555555555555555555555555555555")
	testAlice = common.HexToAddress("0x6666666666666666666666666666666666666666")
	testBob   = common.HexToAddress("0x7777777777777777777777777777777777777777")
)

// chainLog packs a log the way a deployed pool would emit it.
func chainLog(t *testing.T, name string, indexed []common.Hash, values ...interface{}) model.LogRecord {
	t.Helper()
	poolABI, err := V3PoolABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	event := poolABI.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	topics := []string{event.ID.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		ChainID:     10,
		BlockNumber: 777,
		TxHash:      "0x0a",
		LogIndex:    4,
		Address:     strings.ToLower(testPool.Hex()),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1710000000,
	}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// tickTopic sign-extends a tick to a full 32-byte word.
func tickTopic(tick int32) common.Hash {
	v := big.NewInt(int64(tick))
	if tick < 0 {
		v.Add(v, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(v)
}

func newTestDecoder(t *testing.T, topic0Map map[string]string) *V3PoolDecoder {
	t.Helper()
	d, err := NewV3PoolDecoder(DecoderConfig{Topic0Map: topic0Map})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return d
}

func TestV3PoolDecoderChainLogs(t *testing.T) {
	decoder := newTestDecoder(t, nil)
	cache := NewPoolMetaCache()
	cache.Set(testPool, model.PoolMeta{Token0: "0x01", Token1: "0x02", Fee: 100, TickSpacing: 1})
	ctx := DecodeContext{PoolMetaCache: cache, Logger: zap.NewNop()}

	cases := []struct {
		name string
		log  model.LogRecord
		want interface{}
	}{
		{
			name: model.EventSwap,
			log: chainLog(t, model.EventSwap,
				[]common.Hash{addressTopic(testAlice), addressTopic(testBob)},
				big.NewInt(-250), big.NewInt(251), big.NewInt(4295128740), big.NewInt(1), big.NewInt(-887272)),
			want: model.SwapEventData{
				Sender: testAlice.Hex(), Recipient: testBob.Hex(),
				Amount0: "-250", Amount1: "251", SqrtPriceX96: "4295128740", Liquidity: "1", Tick: -887272,
			},
		},
		{
			name: model.EventMint,
			log: chainLog(t, model.EventMint,
				[]common.Hash{addressTopic(testBob), tickTopic(-887272), tickTopic(887272)},
				testAlice, big.NewInt(1000), big.NewInt(1000), big.NewInt(1000)),
			want: model.MintEventData{
				Sender: testAlice.Hex(), Owner: testBob.Hex(), TickLower: -887272, TickUpper: 887272,
				Amount: "1000", Amount0: "1000", Amount1: "1000",
			},
		},
		{
			name: model.EventBurn,
			log: chainLog(t, model.EventBurn,
				[]common.Hash{addressTopic(testBob), tickTopic(-3), tickTopic(-1)},
				big.NewInt(0), big.NewInt(0), big.NewInt(0)),
			want: model.BurnEventData{
				Owner: testBob.Hex(), TickLower: -3, TickUpper: -1, Amount: "0", Amount0: "0", Amount1: "0",
			},
		},
		{
			name: model.EventCollect,
			log: chainLog(t, model.EventCollect,
				[]common.Hash{addressTopic(testBob), tickTopic(-3), tickTopic(-1)},
				testAlice, big.NewInt(12), big.NewInt(0)),
			want: model.CollectEventData{
				Owner: testBob.Hex(), Recipient: testAlice.Hex(), TickLower: -3, TickUpper: -1, Amount0: "12", Amount1: "0",
			},
		},
		{
			name: model.EventInitialize,
			log:  chainLog(t, model.EventInitialize, nil, big.NewInt(4295128739), big.NewInt(-887272)),
			want: model.InitializeEventData{SqrtPriceX96: "4295128739", Tick: -887272},
		},
		{
			name: model.EventFlash,
			log: chainLog(t, model.EventFlash,
				[]common.Hash{addressTopic(testAlice), addressTopic(testBob)},
				big.NewInt(0), big.NewInt(10000), big.NewInt(0), big.NewInt(1)),
			want: model.FlashEventData{
				Sender: testAlice.Hex(), Recipient: testBob.Hex(), Amount0: "0", Amount1: "10000", Paid0: "0", Paid1: "1",
			},
		},
		{
			name: model.EventIncreaseObservationCardinalityNext,
			log:  chainLog(t, model.EventIncreaseObservationCardinalityNext, nil, uint16(1), uint16(100)),
			want: model.IncreaseObservationCardinalityNextEventData{
				ObservationCardinalityNextOld: 1, ObservationCardinalityNextNew: 100,
			},
		},
		{
			name: model.EventSetFeeProtocol,
			log:  chainLog(t, model.EventSetFeeProtocol, nil, uint8(0), uint8(0), uint8(4), uint8(10)),
			want: model.SetFeeProtocolEventData{FeeProtocol0New: 4, FeeProtocol1New: 10},
		},
		{
			name: model.EventCollectProtocol,
			log: chainLog(t, model.EventCollectProtocol,
				[]common.Hash{addressTopic(testAlice), addressTopic(testBob)},
				big.NewInt(3), big.NewInt(0)),
			want: model.CollectProtocolEventData{
				Sender: testAlice.Hex(), Recipient: testBob.Hex(), Amount0: "3", Amount1: "0",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !decoder.CanDecode(tc.log.Topic0()) {
				t.Fatalf("topic0 not recognized")
			}
			event, err := decoder.Decode(tc.log, ctx)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if event.EventName != tc.name {
				t.Fatalf("event name %q", event.EventName)
			}
			if event.Decoded != tc.want {
				t.Fatalf("decoded %+v, want %+v", event.Decoded, tc.want)
			}
			if event.BlockNumber != 777 || event.LogIndex != 4 || event.ChainID != 10 {
				t.Fatalf("position not carried: %+v", event)
			}
			if event.PoolMeta.TickSpacing != 1 || event.PoolMeta.Fee != 100 {
				t.Fatalf("pool meta %+v", event.PoolMeta)
			}
			if event.Raw == nil || event.Raw.Data != tc.log.Data {
				t.Fatalf("raw reference missing")
			}
		})
	}
}

func TestV3PoolDecoderTopic0Alias(t *testing.T) {
	alias := crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24,uint128,uint128)"))
	decoder := newTestDecoder(t, map[string]string{alias.Hex(): " SWAP "})

	log := chainLog(t, model.EventSwap,
		[]common.Hash{addressTopic(testAlice), addressTopic(testAlice)},
		big.NewInt(5), big.NewInt(-4), big.NewInt(1<<40), big.NewInt(9), big.NewInt(12))
	log.Topics[0] = alias.Hex()

	if !decoder.CanDecode(strings.ToUpper(alias.Hex())) {
		t.Fatalf("alias topic0 should be decodable regardless of case")
	}
	event, err := decoder.Decode(log, DecodeContext{})
	if err != nil {
		t.Fatalf("decode alias: %v", err)
	}
	swap := event.Decoded.(model.SwapEventData)
	if event.EventName != model.EventSwap || swap.Tick != 12 {
		t.Fatalf("alias decoded as %s %+v", event.EventName, swap)
	}
	if event.PoolMeta != (model.PoolMeta{}) {
		t.Fatalf("pool meta without cache: %+v", event.PoolMeta)
	}
}

func TestV3PoolDecoderRejectsUnknownAlias(t *testing.T) {
	_, err := NewV3PoolDecoder(DecoderConfig{Topic0Map: map[string]string{"0x01": "Sync"}})
	if err == nil {
		t.Fatalf("expected error for unsupported alias name")
	}
}

func TestV3PoolDecoderMalformedLogs(t *testing.T) {
	decoder := newTestDecoder(t, nil)
	valid := chainLog(t, model.EventCollectProtocol,
		[]common.Hash{addressTopic(testAlice), addressTopic(testBob)},
		big.NewInt(1), big.NewInt(2))

	cases := map[string]func(log *model.LogRecord){
		"no topics":       func(log *model.LogRecord) { log.Topics = nil },
		"unknown topic0":  func(log *model.LogRecord) { log.Topics[0] = common.Hash{}.Hex() },
		"bad address":     func(log *model.LogRecord) { log.Address = "pool" },
		"missing topic":   func(log *model.LogRecord) { log.Topics = log.Topics[:2] },
		"bad topic hex":   func(log *model.LogRecord) { log.Topics[1] = "0xzz" },
		"truncated data":  func(log *model.LogRecord) { log.Data = log.Data[:34] },
		"data is not hex": func(log *model.LogRecord) { log.Data = "deadbeef" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			log := valid
			log.Topics = append([]string(nil), valid.Topics...)
			mutate(&log)
			if _, err := decoder.Decode(log, DecodeContext{}); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
}
