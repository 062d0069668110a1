package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Sender:       "0x1111111111111111111111111111111111111111",
		Recipient:    "0x2222222222222222222222222222222222222222",
		Amount0:      "12345678901234567890",
		Amount1:      "-42",
		SqrtPriceX96: "79228162514264337593543950336",
		Liquidity:    "5000000000000000000",
		Tick:         10,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, field := range []string{"amount0", "amount1", "sqrt_price_x96", "liquidity"} {
		if _, ok := decoded[field].(string); !ok {
			t.Fatalf("%s should be string", field)
		}
	}
}

func TestTypedEventRecordDecodesPayload(t *testing.T) {
	line := `{"block_number":10,"log_index":2,"event_name":"Mint","timestamp":1620000000,` +
		`"decoded":{"sender":"0x1","owner":"0x2","tick_lower":-60,"tick_upper":60,"amount":"1000","amount0":"3","amount1":"3"},` +
		`"pool_meta":{"token0":"0xa","token1":"0xb","fee":3000,"tick_spacing":60}}`

	var record TypedEventRecord
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	event, err := record.TypedEvent()
	if err != nil {
		t.Fatalf("typed event failed: %v", err)
	}
	mint, ok := event.Decoded.(MintEventData)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Decoded)
	}
	if mint.TickLower != -60 || mint.Amount != "1000" {
		t.Fatalf("unexpected mint payload: %+v", mint)
	}
	if event.PoolMeta.TickSpacing != 60 {
		t.Fatalf("pool meta not carried: %+v", event.PoolMeta)
	}

	record.EventName = EventSetFeeProtocol
	record.Decoded = []byte(`{"fee_protocol0_old":0,"fee_protocol1_old":0,"fee_protocol0_new":4,"fee_protocol1_new":5}`)
	event, err = record.TypedEvent()
	if err != nil {
		t.Fatalf("typed event failed: %v", err)
	}
	if fp, ok := event.Decoded.(SetFeeProtocolEventData); !ok || fp.FeeProtocol1New != 5 {
		t.Fatalf("unexpected fee protocol payload: %#v", event.Decoded)
	}

	record.EventName = "Sync"
	if _, err := record.TypedEvent(); err == nil {
		t.Fatalf("expected unsupported event error")
	}
}
