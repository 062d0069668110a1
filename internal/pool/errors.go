package pool

import "errors"

var (
	ErrAlreadyInitialized        = errors.New("pool already initialized")
	ErrNotInitialized            = errors.New("pool not initialized")
	ErrReentrant                 = errors.New("pool is locked")
	ErrZeroLiquidity             = errors.New("liquidity amount must be positive")
	ErrInvalidRange              = errors.New("invalid tick range")
	ErrLiquidityOverflow         = errors.New("liquidity exceeds per tick maximum")
	ErrInsufficientLiquidity     = errors.New("insufficient liquidity")
	ErrZeroAmount                = errors.New("amount specified must be non-zero")
	ErrInvalidPriceLimit         = errors.New("invalid sqrt price limit")
	ErrInsufficientInputAmount   = errors.New("swap input not paid")
	ErrMintNotPaid               = errors.New("mint amounts not paid")
	ErrFlashNotRepaid            = errors.New("flash loan not repaid with fee")
	ErrNoLiquidity               = errors.New("pool has no active liquidity")
	ErrNotOwner                  = errors.New("caller is not the pool owner")
	ErrInvalidFeeProtocol        = errors.New("fee protocol must be 0 or between 4 and 10")
	ErrTickNotInitialized        = errors.New("tick not initialized")
	ErrObservationNotInitialized = errors.New("observation window not covered")
	ErrCardinalityZero           = errors.New("observation cardinality is zero")
)
