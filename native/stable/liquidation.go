package stable

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Liquidate lets a third party forcibly close part of an unhealthy position.
// The liquidator supplies debtToCover stable units, which are burned against
// the target's debt, and receives the equivalent collateral plus the
// liquidation bonus. The call is one atomic unit: every precondition is
// evaluated against the projected outcome before any external effect runs.
func (e *Engine) Liquidate(liquidator, target, asset common.Address, debtToCover *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	return e.liquidate(liquidator, target, asset, debtToCover)
}

func (e *Engine) liquidate(liquidator, target, asset common.Address, debtToCover *big.Int) error {
	position, err := e.loadPosition(target)
	if err != nil {
		return err
	}
	startingFactor, err := e.healthFactorOf(position)
	if err != nil {
		return err
	}
	if startingFactor.Cmp(e.params.MinHealthFactor) >= 0 {
		return fmt.Errorf("%w: health factor %s", ErrHealthFactorOk, startingFactor)
	}
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return ErrInvalidAmount
	}

	// Convert the covered debt into collateral units at the current price and
	// add the liquidation bonus on top.
	collateralToSeize, err := e.TokenAmountFromUsd(asset, debtToCover)
	if err != nil {
		return err
	}
	bonus := mulDiv(collateralToSeize, new(big.Int).SetUint64(e.params.LiquidationBonus), new(big.Int).SetUint64(e.params.LiquidationPrecision))
	totalSeized := new(big.Int).Add(collateralToSeize, bonus)

	// Project the post-liquidation position and validate every solvency rule
	// before touching the token ledgers.
	projected := position.Clone()
	if err := e.debitCollateral(projected, asset, totalSeized); err != nil {
		return err
	}
	if err := e.decreaseDebt(projected, debtToCover); err != nil {
		return err
	}
	endingFactor, err := e.healthFactorOf(projected)
	if err != nil {
		return err
	}
	if endingFactor.Cmp(startingFactor) <= 0 {
		return fmt.Errorf("%w: %s -> %s", ErrLiquidationDidNotImprove, startingFactor, endingFactor)
	}
	liquidatorPosition, err := e.loadPosition(liquidator)
	if err != nil {
		return err
	}
	if err := e.assertHealthy(liquidatorPosition); err != nil {
		return err
	}

	// External effects, ordered so each failure needs at most one
	// compensating action to restore the liquidator.
	if !e.tokens.TransferFrom(e.stableAsset, liquidator, e.custody, debtToCover) {
		return fmt.Errorf("%w: debt cover of %s", ErrTransferFailed, debtToCover)
	}
	if err := e.tokens.Burn(e.stableAsset, debtToCover); err != nil {
		e.tokens.Transfer(e.stableAsset, liquidator, debtToCover)
		return fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if !e.tokens.Transfer(asset, liquidator, totalSeized) {
		e.tokens.Mint(e.stableAsset, liquidator, debtToCover)
		return fmt.Errorf("%w: collateral payout of %s", ErrTransferFailed, totalSeized)
	}

	if err := e.persistPosition(projected); err != nil {
		// Reverse both payouts so the stored position never credits
		// collateral that already left custody.
		pulledBack := e.tokens.TransferFrom(asset, liquidator, e.custody, totalSeized)
		if !e.tokens.Mint(e.stableAsset, liquidator, debtToCover) || !pulledBack {
			return fmt.Errorf("%v (rollback incomplete)", err)
		}
		return err
	}
	e.emitter.Emit(Liquidated{
		Liquidator:       liquidator,
		Account:          target,
		Asset:            asset,
		DebtCovered:      new(big.Int).Set(debtToCover),
		CollateralSeized: totalSeized,
	})
	return nil
}
