package replay

import (
	"fmt"
	"strings"
)

// SwapMode selects how a recorded swap is turned into an engine swap.
type SwapMode int

const (
	// SwapExactInput replays the recorded input amount as an exact-input swap
	// with no price limit.
	SwapExactInput SwapMode = iota
	// SwapToRecordedPrice replays the recorded input amount with the recorded
	// post-swap price as the limit, so the engine stops where the source did.
	SwapToRecordedPrice
)

func (m SwapMode) String() string {
	switch m {
	case SwapExactInput:
		return "exact-input"
	case SwapToRecordedPrice:
		return "match-price"
	default:
		return fmt.Sprintf("SwapMode(%d)", int(m))
	}
}

// ParseSwapMode parses the String form of a SwapMode.
func ParseSwapMode(value string) (SwapMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "exact-input":
		return SwapExactInput, nil
	case "match-price":
		return SwapToRecordedPrice, nil
	default:
		return 0, fmt.Errorf("unknown swap mode %q", value)
	}
}
