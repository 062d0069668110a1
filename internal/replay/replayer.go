package replay

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityEngine/internal/clmath"
	"liquidityEngine/internal/model"
	"liquidityEngine/internal/pool"
	"liquidityEngine/internal/vault"
)

// errSkipped marks a record that has nothing to apply.
var errSkipped = errors.New("record skipped")

// replayer applies recorded events to one engine pool. Actors are funded on
// demand so that only engine state decides whether an operation succeeds.
type replayer struct {
	pool  *pool.Pool
	vault *vault.Vault
	cfg   pool.Config
	mode  SwapMode
}

// apply replays event and reports whether the engine result differs from the
// recorded one.
func (r *replayer) apply(event model.TypedEvent) (bool, error) {
	switch d := event.Decoded.(type) {
	case model.InitializeEventData:
		return r.initialize(d)
	case model.MintEventData:
		return r.mint(d)
	case model.BurnEventData:
		return r.burn(d)
	case model.CollectEventData:
		return r.collect(d)
	case model.SwapEventData:
		return r.swap(d)
	case model.FlashEventData:
		return false, r.flash(d)
	case model.IncreaseObservationCardinalityNextEventData:
		return false, r.pool.IncreaseObservationCardinalityNext(d.ObservationCardinalityNextNew)
	case model.SetFeeProtocolEventData:
		return false, r.pool.SetFeeProtocol(r.cfg.Owner, d.FeeProtocol0New, d.FeeProtocol1New)
	case model.CollectProtocolEventData:
		return r.collectProtocol(d)
	default:
		return false, fmt.Errorf("%w: unsupported payload %T", errSkipped, event.Decoded)
	}
}

func (r *replayer) initialize(d model.InitializeEventData) (bool, error) {
	if r.pool.Slot0().SqrtPriceX96 != nil {
		return false, fmt.Errorf("%w: pool already initialized", errSkipped)
	}
	sqrtPrice, err := parseUint("sqrt_price_x96", d.SqrtPriceX96)
	if err != nil {
		return false, err
	}
	if err := r.pool.Initialize(sqrtPrice); err != nil {
		return false, err
	}
	return r.pool.Slot0().Tick != d.Tick, nil
}

func (r *replayer) mint(d model.MintEventData) (bool, error) {
	amount, err := parseUint("amount", d.Amount)
	if err != nil {
		return false, err
	}
	sender := common.HexToAddress(d.Sender)
	amount0, amount1, err := r.pool.Mint(sender, pool.MintParams{
		Recipient: common.HexToAddress(d.Owner),
		TickLower: d.TickLower,
		TickUpper: d.TickUpper,
		Amount:    amount,
	}, pool.MintCallbackFunc(func(owed0, owed1 *uint256.Int, _ []byte) error {
		if err := r.pay(r.cfg.Token0, sender, owed0); err != nil {
			return err
		}
		return r.pay(r.cfg.Token1, sender, owed1)
	}))
	if err != nil {
		return false, err
	}
	return differs(amount0.ToBig(), d.Amount0) || differs(amount1.ToBig(), d.Amount1), nil
}

func (r *replayer) burn(d model.BurnEventData) (bool, error) {
	amount, err := parseUint("amount", d.Amount)
	if err != nil {
		return false, err
	}
	amount0, amount1, err := r.pool.Burn(common.HexToAddress(d.Owner), d.TickLower, d.TickUpper, amount)
	if err != nil {
		return false, err
	}
	return differs(amount0.ToBig(), d.Amount0) || differs(amount1.ToBig(), d.Amount1), nil
}

func (r *replayer) collect(d model.CollectEventData) (bool, error) {
	requested0, err := parseUint("amount0", d.Amount0)
	if err != nil {
		return false, err
	}
	requested1, err := parseUint("amount1", d.Amount1)
	if err != nil {
		return false, err
	}
	amount0, amount1, err := r.pool.Collect(common.HexToAddress(d.Owner), pool.CollectParams{
		Recipient:        common.HexToAddress(d.Recipient),
		TickLower:        d.TickLower,
		TickUpper:        d.TickUpper,
		Amount0Requested: requested0,
		Amount1Requested: requested1,
	})
	if err != nil {
		return false, err
	}
	return !amount0.Eq(requested0) || !amount1.Eq(requested1), nil
}

func (r *replayer) swap(d model.SwapEventData) (bool, error) {
	recorded0, err := parseInt("amount0", d.Amount0)
	if err != nil {
		return false, err
	}
	recorded1, err := parseInt("amount1", d.Amount1)
	if err != nil {
		return false, err
	}
	recordedPrice, err := parseUint("sqrt_price_x96", d.SqrtPriceX96)
	if err != nil {
		return false, err
	}

	zeroForOne := recorded0.Sign() > 0
	input := recorded1
	if zeroForOne {
		input = recorded0
	}
	if input.Sign() <= 0 {
		return false, fmt.Errorf("%w: swap without input", errSkipped)
	}

	limit := r.swapLimit(zeroForOne, recordedPrice)
	sender := common.HexToAddress(d.Sender)
	amount0, amount1, err := r.pool.Swap(sender, pool.SwapParams{
		Recipient:         common.HexToAddress(d.Recipient),
		ZeroForOne:        zeroForOne,
		AmountSpecified:   input,
		SqrtPriceLimitX96: limit,
	}, pool.SwapCallbackFunc(func(delta0, delta1 *big.Int, _ []byte) error {
		if delta0.Sign() > 0 {
			return r.pay(r.cfg.Token0, sender, uint256.MustFromBig(delta0))
		}
		if delta1.Sign() > 0 {
			return r.pay(r.cfg.Token1, sender, uint256.MustFromBig(delta1))
		}
		return nil
	}))
	if err != nil {
		return false, err
	}

	diverged := amount0.Cmp(recorded0) != 0 || amount1.Cmp(recorded1) != 0 ||
		!r.pool.Slot0().SqrtPriceX96.Eq(recordedPrice)
	return diverged, nil
}

// swapLimit picks the price limit for a replayed swap. The recorded price is
// used only when it lies strictly ahead of the current price.
func (r *replayer) swapLimit(zeroForOne bool, recorded *uint256.Int) *uint256.Int {
	current := r.pool.Slot0().SqrtPriceX96
	if r.mode == SwapToRecordedPrice && current != nil {
		if zeroForOne && recorded.Lt(current) && recorded.Gt(clmath.MinSqrtRatio) {
			return recorded
		}
		if !zeroForOne && recorded.Gt(current) && recorded.Lt(clmath.MaxSqrtRatio) {
			return recorded
		}
	}
	if zeroForOne {
		return new(uint256.Int).AddUint64(clmath.MinSqrtRatio, 1)
	}
	return new(uint256.Int).SubUint64(clmath.MaxSqrtRatio, 1)
}

func (r *replayer) flash(d model.FlashEventData) error {
	amount0, err := parseUint("amount0", d.Amount0)
	if err != nil {
		return err
	}
	amount1, err := parseUint("amount1", d.Amount1)
	if err != nil {
		return err
	}
	paid0, err := parseUint("paid0", d.Paid0)
	if err != nil {
		return err
	}
	paid1, err := parseUint("paid1", d.Paid1)
	if err != nil {
		return err
	}

	recipient := common.HexToAddress(d.Recipient)
	return r.pool.Flash(common.HexToAddress(d.Sender), pool.FlashParams{
		Recipient: recipient,
		Amount0:   amount0,
		Amount1:   amount1,
	}, pool.FlashCallbackFunc(func(_, _ *uint256.Int, _ []byte) error {
		r.vault.Mint(r.cfg.Token0, recipient, paid0)
		r.vault.Mint(r.cfg.Token1, recipient, paid1)
		if err := r.vault.Transfer(r.cfg.Token0, recipient, r.cfg.Address, new(uint256.Int).Add(amount0, paid0)); err != nil {
			return err
		}
		return r.vault.Transfer(r.cfg.Token1, recipient, r.cfg.Address, new(uint256.Int).Add(amount1, paid1))
	}))
}

func (r *replayer) collectProtocol(d model.CollectProtocolEventData) (bool, error) {
	requested0, err := parseUint("amount0", d.Amount0)
	if err != nil {
		return false, err
	}
	requested1, err := parseUint("amount1", d.Amount1)
	if err != nil {
		return false, err
	}
	amount0, amount1, err := r.pool.CollectProtocol(r.cfg.Owner, common.HexToAddress(d.Recipient), requested0, requested1)
	if err != nil {
		return false, err
	}
	return !amount0.Eq(requested0) || !amount1.Eq(requested1), nil
}

// pay funds payer with amount of token and moves it into the pool.
func (r *replayer) pay(token, payer common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	r.vault.Mint(token, payer, amount)
	return r.vault.Transfer(token, payer, r.cfg.Address, amount)
}

func differs(engine *big.Int, recorded string) bool {
	n, ok := new(big.Int).SetString(recorded, 10)
	return !ok || n.Cmp(engine) != 0
}

func parseInt(field, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", field, value)
	}
	return n, nil
}

func parseUint(field, value string) (*uint256.Int, error) {
	n, err := parseInt(field, value)
	if err != nil {
		return nil, err
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative %s: %s", field, value)
	}
	out, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("%s overflows 256 bits: %s", field, value)
	}
	return out, nil
}
