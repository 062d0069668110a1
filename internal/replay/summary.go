package replay

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityEngine/internal/dex"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/pool"
	"liquidityEngine/internal/price"
)

// Summary holds the counters and engine totals of one replay run.
type Summary struct {
	Records   int
	Applied   int
	Skipped   int
	Failed    int
	Divergent int
	Emitted   int

	SwapCount uint64
	Volume0   *big.Int
	Volume1   *big.Int
	Fee0      *big.Int
	Fee1      *big.Int

	Last      model.Progress
	Token0    common.Address
	Token1    common.Address
	FinalTick int32
	// FinalSqrtPriceX96 is nil when the pool was never initialized.
	FinalSqrtPriceX96 *uint256.Int
}

func newSummary() Summary {
	return Summary{
		Volume0: big.NewInt(0),
		Volume1: big.NewInt(0),
		Fee0:    big.NewInt(0),
		Fee1:    big.NewInt(0),
	}
}

// addSwaps folds the engine swap events of one record into the totals. Fees
// are estimated from the input amount and the fee tier.
func (s *Summary) addSwaps(events []model.PoolEvent, feeRate uint32) {
	for _, event := range events {
		swap, ok := event.Data.(model.SwapEventData)
		if !ok {
			continue
		}
		amount0, ok0 := new(big.Int).SetString(swap.Amount0, 10)
		amount1, ok1 := new(big.Int).SetString(swap.Amount1, 10)
		if !ok0 || !ok1 {
			continue
		}

		absAdd(s.Volume0, amount0)
		absAdd(s.Volume1, amount1)
		if amount0.Sign() > 0 {
			s.Fee0.Add(s.Fee0, feeFromAmount(amount0, feeRate))
		} else if amount1.Sign() > 0 {
			s.Fee1.Add(s.Fee1, feeFromAmount(amount1, feeRate))
		}
		s.SwapCount++
	}
}

func (s *Summary) finish(p *pool.Pool) {
	if p == nil {
		return
	}
	cfg := p.Config()
	s.Token0 = cfg.Token0
	s.Token1 = cfg.Token1
	slot0 := p.Slot0()
	s.FinalTick = slot0.Tick
	if slot0.SqrtPriceX96 != nil {
		s.FinalSqrtPriceX96 = slot0.SqrtPriceX96
	}
}

// Fields renders the summary as log fields, scaling amounts by the token
// decimals known to tokens.
func (s Summary) Fields(tokens *dex.TokenMetaCache) []zap.Field {
	decimals0 := tokens.Decimals(s.Token0, 18)
	decimals1 := tokens.Decimals(s.Token1, 18)

	fields := []zap.Field{
		zap.Int("records", s.Records),
		zap.Int("applied", s.Applied),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
		zap.Int("divergent", s.Divergent),
		zap.Int("emitted", s.Emitted),
		zap.Uint64("swaps", s.SwapCount),
		zap.String("volume0", price.FormatAmount(s.Volume0, decimals0)),
		zap.String("volume1", price.FormatAmount(s.Volume1, decimals1)),
		zap.String("fee0", price.FormatAmount(s.Fee0, decimals0)),
		zap.String("fee1", price.FormatAmount(s.Fee1, decimals1)),
		zap.Uint64("last_block", s.Last.BlockNumber),
		zap.Uint64("last_log_index", s.Last.LogIndex),
	}
	if s.FinalSqrtPriceX96 != nil {
		fields = append(fields,
			zap.Int32("tick", s.FinalTick),
			zap.String("sqrt_price_x96", s.FinalSqrtPriceX96.Dec()),
			zap.String("price", price.FromSqrtPriceX96(s.FinalSqrtPriceX96, decimals0, decimals1).String()),
		)
	}
	return fields
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	target.Add(target, new(big.Int).Abs(value))
}

func feeFromAmount(amountIn *big.Int, feeRate uint32) *big.Int {
	if amountIn == nil || feeRate == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Abs(amountIn)
	fee.Mul(fee, big.NewInt(int64(feeRate)))
	fee.Div(fee, big.NewInt(1_000_000))
	return fee
}
