package stable

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// engineState is the persistence boundary for position state. The engine owns
// every mutation flowing through it; a nil position means the account has
// never interacted with the engine.
type engineState interface {
	GetPosition(account common.Address) (*Position, error)
	PutPosition(position *Position) error
}

// Engine is the single entry point for the stable-unit issuance system. It
// composes the position ledger, the solvency rules and the liquidation flow
// behind an all-or-nothing execution discipline: every public operation either
// commits all of its effects or none of them.
type Engine struct {
	state       engineState
	tokens      TokenLedger
	stableAsset common.Address
	custody     common.Address
	registry    *collateralRegistry
	params      RiskParameters
	guard       entryGuard
	pauses      PauseView
	emitter     Emitter
	now         func() time.Time
}

// EngineConfig carries the construction-time wiring for an Engine. The
// collateral assets and price feeds must pair up one-to-one.
type EngineConfig struct {
	CollateralAssets []common.Address
	PriceFeeds       []PriceFeed
	Tokens           TokenLedger
	StableAsset      common.Address
	Custody          common.Address
	Params           RiskParameters
}

// New constructs an engine from the supplied configuration. Construction
// fails with ErrAssetConfigMismatch when the asset and feed lists differ in
// length.
func New(cfg EngineConfig) (*Engine, error) {
	registry, err := newCollateralRegistry(cfg.CollateralAssets, cfg.PriceFeeds)
	if err != nil {
		return nil, err
	}
	if cfg.Tokens == nil {
		return nil, errNilTokens
	}
	params := cfg.Params.Clone()
	params.normalize()
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		tokens:      cfg.Tokens,
		stableAsset: cfg.StableAsset,
		custody:     cfg.Custody,
		registry:    registry,
		params:      params,
		emitter:     NoopEmitter{},
		now:         time.Now,
	}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses installs the operator pause switches consulted on every public
// operation.
func (e *Engine) SetPauses(p PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter installs the event sink for successful operations.
func (e *Engine) SetEmitter(emitter Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the time source used for oracle staleness checks.
func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.now = now
}

// Params returns a copy of the fixed risk parameters.
func (e *Engine) Params() RiskParameters { return e.params.Clone() }

// StableAsset returns the stable-unit asset handle the engine mints and burns.
func (e *Engine) StableAsset() common.Address { return e.stableAsset }

// CollateralAssets returns the approved collateral assets in registration
// order.
func (e *Engine) CollateralAssets() []common.Address { return e.registry.list() }

func (e *Engine) enter() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.guard.enter(); err != nil {
		return err
	}
	if err := pauseGuard(e.pauses); err != nil {
		e.guard.exit()
		return err
	}
	return nil
}

// DepositCollateral pulls amount of the asset from the depositor into engine
// custody and credits their position. Depositing can only improve a position,
// so no solvency check runs.
func (e *Engine) DepositCollateral(from, asset common.Address, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	return e.depositCollateral(from, asset, amount)
}

func (e *Engine) depositCollateral(from, asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.registry.allowed(asset) {
		return fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset.Hex())
	}
	position, err := e.loadPosition(from)
	if err != nil {
		return err
	}
	if !e.tokens.TransferFrom(asset, from, e.custody, amount) {
		return fmt.Errorf("%w: deposit of %s", ErrTransferFailed, amount)
	}
	e.creditCollateral(position, asset, amount)
	if err := e.persistPosition(position); err != nil {
		// Return the pulled funds when the ledger write fails.
		if !e.tokens.Transfer(asset, from, amount) {
			return fmt.Errorf("%v (deposit return failed)", err)
		}
		return err
	}
	e.emitter.Emit(CollateralDeposited{Account: from, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// RedeemCollateral releases amount of the asset from the caller's position
// back to their wallet, provided the remaining position stays healthy.
func (e *Engine) RedeemCollateral(from, asset common.Address, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	return e.redeemCollateral(from, asset, amount)
}

func (e *Engine) redeemCollateral(owner, asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.registry.allowed(asset) {
		return fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset.Hex())
	}
	position, err := e.loadPosition(owner)
	if err != nil {
		return err
	}
	if err := e.debitCollateral(position, asset, amount); err != nil {
		return err
	}
	if err := e.assertHealthy(position); err != nil {
		return err
	}
	if !e.tokens.Transfer(asset, owner, amount) {
		return fmt.Errorf("%w: redeem of %s", ErrTransferFailed, amount)
	}
	if err := e.persistPosition(position); err != nil {
		// Pull the payout back so the stored position never credits
		// collateral that already left custody.
		if !e.tokens.TransferFrom(asset, owner, e.custody, amount) {
			return fmt.Errorf("%v (payout reversal failed)", err)
		}
		return err
	}
	e.emitter.Emit(CollateralRedeemed{Account: owner, Asset: asset, Amount: new(big.Int).Set(amount)})
	return nil
}

// MintStable issues amount stable units against the caller's collateral. The
// solvency check runs before the external mint so an unhealthy mint never
// reaches the token ledger.
func (e *Engine) MintStable(from common.Address, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	return e.mintStable(from, amount)
}

func (e *Engine) mintStable(from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	position, err := e.loadPosition(from)
	if err != nil {
		return err
	}
	e.increaseDebt(position, amount)
	if err := e.assertHealthy(position); err != nil {
		return err
	}
	if !e.tokens.Mint(e.stableAsset, from, amount) {
		return fmt.Errorf("%w: mint of %s", ErrMintFailed, amount)
	}
	if err := e.persistPosition(position); err != nil {
		// Claw the issued units back so no debt exists off the books.
		if !e.tokens.TransferFrom(e.stableAsset, from, e.custody, amount) || e.tokens.Burn(e.stableAsset, amount) != nil {
			return fmt.Errorf("%v (mint reversal failed)", err)
		}
		return err
	}
	e.emitter.Emit(StableMinted{Account: from, Amount: new(big.Int).Set(amount)})
	return nil
}

// BurnStable retires amount stable units pulled from the caller and reduces
// their debt. Burning only reduces risk, so no solvency check runs and no
// price is read; an underwater account can always repay.
func (e *Engine) BurnStable(from common.Address, amount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	return e.burnStable(from, amount)
}

func (e *Engine) burnStable(payer common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	position, err := e.loadPosition(payer)
	if err != nil {
		return err
	}
	if err := e.decreaseDebt(position, amount); err != nil {
		return err
	}
	if !e.tokens.TransferFrom(e.stableAsset, payer, e.custody, amount) {
		return fmt.Errorf("%w: burn of %s", ErrTransferFailed, amount)
	}
	if err := e.tokens.Burn(e.stableAsset, amount); err != nil {
		// Compensate the pull so the payer is made whole before aborting.
		e.tokens.Transfer(e.stableAsset, payer, amount)
		return fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if err := e.persistPosition(position); err != nil {
		// Re-issue the burned units so the payer is not charged for a
		// debt reduction that was never recorded.
		if !e.tokens.Mint(e.stableAsset, payer, amount) {
			return fmt.Errorf("%v (burn reversal failed)", err)
		}
		return err
	}
	e.emitter.Emit(StableBurned{Account: payer, Amount: new(big.Int).Set(amount)})
	return nil
}

// DepositCollateralAndMintStable deposits collateral and mints stable units
// in one call. Both legs are staged on one in-memory position with a single
// solvency check and a single ledger write, so a failure on either leg
// leaves no partial state behind.
func (e *Engine) DepositCollateralAndMintStable(from, asset common.Address, collateralAmount, mintAmount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if collateralAmount == nil || collateralAmount.Sign() <= 0 || mintAmount == nil || mintAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.registry.allowed(asset) {
		return fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset.Hex())
	}
	position, err := e.loadPosition(from)
	if err != nil {
		return err
	}
	e.creditCollateral(position, asset, collateralAmount)
	e.increaseDebt(position, mintAmount)
	if err := e.assertHealthy(position); err != nil {
		return err
	}
	if !e.tokens.TransferFrom(asset, from, e.custody, collateralAmount) {
		return fmt.Errorf("%w: deposit of %s", ErrTransferFailed, collateralAmount)
	}
	if !e.tokens.Mint(e.stableAsset, from, mintAmount) {
		// Return the deposit so the failed composite leaves no trace.
		if !e.tokens.Transfer(asset, from, collateralAmount) {
			return fmt.Errorf("%w: mint of %s (deposit return failed)", ErrMintFailed, mintAmount)
		}
		return fmt.Errorf("%w: mint of %s", ErrMintFailed, mintAmount)
	}
	if err := e.persistPosition(position); err != nil {
		clawedBack := e.tokens.TransferFrom(e.stableAsset, from, e.custody, mintAmount) && e.tokens.Burn(e.stableAsset, mintAmount) == nil
		if !e.tokens.Transfer(asset, from, collateralAmount) || !clawedBack {
			return fmt.Errorf("%v (rollback incomplete)", err)
		}
		return err
	}
	e.emitter.Emit(CollateralDeposited{Account: from, Asset: asset, Amount: new(big.Int).Set(collateralAmount)})
	e.emitter.Emit(StableMinted{Account: from, Amount: new(big.Int).Set(mintAmount)})
	return nil
}

// RedeemCollateralForStable burns stable units and redeems collateral in one
// call, staged the same way as the deposit-and-mint composite.
func (e *Engine) RedeemCollateralForStable(from, asset common.Address, collateralAmount, burnAmount *big.Int) error {
	if err := e.enter(); err != nil {
		return err
	}
	defer e.guard.exit()
	if collateralAmount == nil || collateralAmount.Sign() <= 0 || burnAmount == nil || burnAmount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !e.registry.allowed(asset) {
		return fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset.Hex())
	}
	position, err := e.loadPosition(from)
	if err != nil {
		return err
	}
	if err := e.decreaseDebt(position, burnAmount); err != nil {
		return err
	}
	if err := e.debitCollateral(position, asset, collateralAmount); err != nil {
		return err
	}
	if err := e.assertHealthy(position); err != nil {
		return err
	}
	if !e.tokens.TransferFrom(e.stableAsset, from, e.custody, burnAmount) {
		return fmt.Errorf("%w: burn of %s", ErrTransferFailed, burnAmount)
	}
	if err := e.tokens.Burn(e.stableAsset, burnAmount); err != nil {
		e.tokens.Transfer(e.stableAsset, from, burnAmount)
		return fmt.Errorf("%w: %v", ErrBurnFailed, err)
	}
	if !e.tokens.Transfer(asset, from, collateralAmount) {
		// Re-issue the burned units so the caller is made whole.
		if !e.tokens.Mint(e.stableAsset, from, burnAmount) {
			return fmt.Errorf("%w: redeem of %s (burn reversal failed)", ErrTransferFailed, collateralAmount)
		}
		return fmt.Errorf("%w: redeem of %s", ErrTransferFailed, collateralAmount)
	}
	if err := e.persistPosition(position); err != nil {
		pulledBack := e.tokens.TransferFrom(asset, from, e.custody, collateralAmount)
		if !e.tokens.Mint(e.stableAsset, from, burnAmount) || !pulledBack {
			return fmt.Errorf("%v (rollback incomplete)", err)
		}
		return err
	}
	e.emitter.Emit(StableBurned{Account: from, Amount: new(big.Int).Set(burnAmount)})
	e.emitter.Emit(CollateralRedeemed{Account: from, Asset: asset, Amount: new(big.Int).Set(collateralAmount)})
	return nil
}
