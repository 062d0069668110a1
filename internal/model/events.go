package model

// Event names as they appear in logs and typed event records.
const (
	EventInitialize                         = "Initialize"
	EventMint                               = "Mint"
	EventBurn                               = "Burn"
	EventCollect                            = "Collect"
	EventSwap                               = "Swap"
	EventFlash                              = "Flash"
	EventIncreaseObservationCardinalityNext = "IncreaseObservationCardinalityNext"
	EventSetFeeProtocol                     = "SetFeeProtocol"
	EventCollectProtocol                    = "CollectProtocol"
)

// InitializeEventData is the Initialize event payload.
type InitializeEventData struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// SwapEventData is the Swap event payload. Amounts are signed from the pool's
// point of view: positive flows into the pool.
type SwapEventData struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
}

// MintEventData is the Mint event payload.
type MintEventData struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// BurnEventData is the Burn event payload.
type BurnEventData struct {
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// CollectEventData is the Collect event payload.
type CollectEventData struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

// FlashEventData is the Flash event payload. Paid amounts include principal
// repayment over the borrowed amount, i.e. the fees actually received.
type FlashEventData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	Paid0     string `json:"paid0"`
	Paid1     string `json:"paid1"`
}

// IncreaseObservationCardinalityNextEventData is emitted when the oracle ring is grown.
type IncreaseObservationCardinalityNextEventData struct {
	ObservationCardinalityNextOld uint16 `json:"observation_cardinality_next_old"`
	ObservationCardinalityNextNew uint16 `json:"observation_cardinality_next_new"`
}

// SetFeeProtocolEventData is emitted when the protocol fee denominators change.
type SetFeeProtocolEventData struct {
	FeeProtocol0Old uint8 `json:"fee_protocol0_old"`
	FeeProtocol1Old uint8 `json:"fee_protocol1_old"`
	FeeProtocol0New uint8 `json:"fee_protocol0_new"`
	FeeProtocol1New uint8 `json:"fee_protocol1_new"`
}

// CollectProtocolEventData is emitted when accrued protocol fees are withdrawn.
type CollectProtocolEventData struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}
