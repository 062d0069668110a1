package model

// PoolMeta is the pool configuration attached to a typed event. Slot0 and
// Liquidity describe the pool state before the event when the producer knew
// it, and are used to seed a pool that is replayed from the middle of its
// history.
type PoolMeta struct {
	Token0      string     `json:"token0"`
	Token1      string     `json:"token1"`
	Fee         uint32     `json:"fee"`
	TickSpacing int32      `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity,omitempty"`
	Slot0       *PoolSlot0 `json:"slot0,omitempty"`
}

type PoolSlot0 struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int32  `json:"tick"`
}

// Merge returns m with every zero field filled from fallback.
func (m PoolMeta) Merge(fallback PoolMeta) PoolMeta {
	if m.Token0 == "" {
		m.Token0 = fallback.Token0
	}
	if m.Token1 == "" {
		m.Token1 = fallback.Token1
	}
	if m.Fee == 0 {
		m.Fee = fallback.Fee
	}
	if m.TickSpacing == 0 {
		m.TickSpacing = fallback.TickSpacing
	}
	if m.Liquidity == "" {
		m.Liquidity = fallback.Liquidity
	}
	if m.Slot0 == nil {
		m.Slot0 = fallback.Slot0
	}
	return m
}
