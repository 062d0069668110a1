package model

// PoolEvent is emitted by the engine after a state-changing call succeeds.
// Before and After are the pool-level state around the call.
type PoolEvent struct {
	Pool      string      `json:"pool"`
	Name      string      `json:"name"`
	Timestamp uint32      `json:"timestamp"`
	Data      interface{} `json:"data"`
	Before    PoolState   `json:"before"`
	After     PoolState   `json:"after"`
}

// PoolState is the pool-level engine state, numbers encoded as decimal strings.
type PoolState struct {
	SqrtPriceX96               string `json:"sqrt_price_x96"`
	Tick                       int32  `json:"tick"`
	Liquidity                  string `json:"liquidity"`
	FeeGrowthGlobal0X128       string `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128       string `json:"fee_growth_global1_x128"`
	ProtocolFees0              string `json:"protocol_fees0"`
	ProtocolFees1              string `json:"protocol_fees1"`
	ObservationIndex           uint16 `json:"observation_index"`
	ObservationCardinality     uint16 `json:"observation_cardinality"`
	ObservationCardinalityNext uint16 `json:"observation_cardinality_next"`
	FeeProtocol                uint8  `json:"fee_protocol"`
}
