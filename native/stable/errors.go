package stable

import "errors"

var (
	errNilState            = errors.New("stable engine: state not configured")
	errNilTokens           = errors.New("stable engine: token ledger not configured")
	ErrInvalidAmount       = errors.New("stable engine: amount must be positive")
	ErrAssetNotAllowed     = errors.New("stable engine: collateral asset not registered")
	ErrAssetConfigMismatch = errors.New("stable engine: collateral asset and price feed counts differ")

	ErrTransferFailed = errors.New("stable engine: token transfer failed")
	ErrMintFailed     = errors.New("stable engine: stable unit mint failed")
	ErrBurnFailed     = errors.New("stable engine: stable unit burn failed")

	ErrInsufficientCollateral = errors.New("stable engine: insufficient collateral")
	ErrInsufficientDebt       = errors.New("stable engine: insufficient debt")

	ErrHealthFactorBroken       = errors.New("stable engine: health factor below minimum")
	ErrHealthFactorOk           = errors.New("stable engine: health factor not below minimum")
	ErrLiquidationDidNotImprove = errors.New("stable engine: liquidation did not improve health factor")

	ErrInvalidPriceFeed = errors.New("stable engine: invalid price feed reading")
	ErrReentrantCall    = errors.New("stable engine: reentrant call rejected")
)
