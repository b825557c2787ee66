package stable

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The solvency engine prices positions in 18-decimal USD-equivalent units and
// derives the health factor gating every debt-affecting operation.

// CollateralValue sums the USD-equivalent value of every registered asset the
// account has deposited, querying each feed once.
func (e *Engine) CollateralValue(account common.Address) (*big.Int, error) {
	position, err := e.loadPosition(account)
	if err != nil {
		return nil, err
	}
	return e.collateralValueOf(position)
}

func (e *Engine) collateralValueOf(position *Position) (*big.Int, error) {
	total := big.NewInt(0)
	for _, asset := range e.registry.assets {
		balance, ok := position.Collateral[asset]
		if !ok || balance == nil || balance.Sign() == 0 {
			continue
		}
		price, err := e.normalizedPrice(asset)
		if err != nil {
			return nil, err
		}
		total.Add(total, mulDiv(price, balance, precision))
	}
	return total, nil
}

// HealthFactor reports how close the account is to liquidation in 1e18 fixed
// point. Accounts with no debt report the maximum representable value: a
// position with nothing minted can never be broken.
func (e *Engine) HealthFactor(account common.Address) (*big.Int, error) {
	position, err := e.loadPosition(account)
	if err != nil {
		return nil, err
	}
	return e.healthFactorOf(position)
}

func (e *Engine) healthFactorOf(position *Position) (*big.Int, error) {
	if position.Debt == nil || position.Debt.Sign() == 0 {
		return new(big.Int).Set(maxHealthFactor), nil
	}
	value, err := e.collateralValueOf(position)
	if err != nil {
		return nil, err
	}
	adjusted := mulDiv(value, new(big.Int).SetUint64(e.params.LiquidationThreshold), new(big.Int).SetUint64(e.params.LiquidationPrecision))
	return mulDiv(adjusted, precision, position.Debt), nil
}

// assertHealthy fails with ErrHealthFactorBroken when the position sits below
// the minimum health factor. It runs after every operation that can worsen a
// ratio and never blocks one that only reduces risk.
func (e *Engine) assertHealthy(position *Position) error {
	factor, err := e.healthFactorOf(position)
	if err != nil {
		return err
	}
	if factor.Cmp(e.params.MinHealthFactor) < 0 {
		return fmt.Errorf("%w: health factor %s", ErrHealthFactorBroken, factor)
	}
	return nil
}

// UsdValue converts a token amount of the asset into 18-decimal USD units at
// the current oracle price.
func (e *Engine) UsdValue(asset common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	price, err := e.normalizedPrice(asset)
	if err != nil {
		return nil, err
	}
	return mulDiv(price, amount, precision), nil
}

// TokenAmountFromUsd converts an 18-decimal USD value into token units of the
// asset at the current oracle price.
func (e *Engine) TokenAmountFromUsd(asset common.Address, usdValue *big.Int) (*big.Int, error) {
	if usdValue == nil || usdValue.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	price, err := e.normalizedPrice(asset)
	if err != nil {
		return nil, err
	}
	return mulDiv(usdValue, precision, price), nil
}

// CollateralBalance returns the account's deposited amount for one asset.
func (e *Engine) CollateralBalance(account, asset common.Address) (*big.Int, error) {
	if !e.registry.allowed(asset) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset.Hex())
	}
	position, err := e.loadPosition(account)
	if err != nil {
		return nil, err
	}
	return position.CollateralBalance(asset), nil
}

// Debt returns the account's outstanding minted stable units.
func (e *Engine) Debt(account common.Address) (*big.Int, error) {
	position, err := e.loadPosition(account)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(position.Debt), nil
}

// AccountInformation returns the outstanding debt and the total collateral
// value for the account in one read.
func (e *Engine) AccountInformation(account common.Address) (debt, collateralValue *big.Int, err error) {
	position, err := e.loadPosition(account)
	if err != nil {
		return nil, nil, err
	}
	value, err := e.collateralValueOf(position)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(position.Debt), value, nil
}
