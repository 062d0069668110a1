package model

// PoolSnapshot is a full dump of a pool used for persistence.
type PoolSnapshot struct {
	Pool      Pool               `json:"pool"`
	State     PoolState          `json:"state"`
	Ticks     []TickSnapshot     `json:"ticks"`
	Positions []PositionSnapshot `json:"positions"`
	// BlockNumber is the last source block applied to the pool.
	BlockNumber uint64 `json:"block_number"`
}

// TickSnapshot is the stored form of one initialized tick.
type TickSnapshot struct {
	Tick                           int32  `json:"tick"`
	LiquidityGross                 string `json:"liquidity_gross"`
	LiquidityNet                   string `json:"liquidity_net"`
	FeeGrowthOutside0X128          string `json:"fee_growth_outside0_x128"`
	FeeGrowthOutside1X128          string `json:"fee_growth_outside1_x128"`
	TickCumulativeOutside          int64  `json:"tick_cumulative_outside"`
	SecondsPerLiquidityOutsideX128 string `json:"seconds_per_liquidity_outside_x128"`
	SecondsOutside                 uint32 `json:"seconds_outside"`
}

// PositionSnapshot is the stored form of one position.
type PositionSnapshot struct {
	Owner                    string `json:"owner"`
	TickLower                int32  `json:"tick_lower"`
	TickUpper                int32  `json:"tick_upper"`
	Liquidity                string `json:"liquidity"`
	FeeGrowthInside0LastX128 string `json:"fee_growth_inside0_last_x128"`
	FeeGrowthInside1LastX128 string `json:"fee_growth_inside1_last_x128"`
	TokensOwed0              string `json:"tokens_owed0"`
	TokensOwed1              string `json:"tokens_owed1"`
}
