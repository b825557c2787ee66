package stable

import (
	"fmt"
	"math/big"
	"time"
)

// RiskParameters groups the solvency limits enforced on every debt-affecting
// operation. The engine treats them as immutable after construction.
type RiskParameters struct {
	// LiquidationThreshold is the share of collateral value counted toward
	// solvency, expressed against LiquidationPrecision. The defaults give a
	// 200% over-collateralization requirement.
	LiquidationThreshold uint64
	// LiquidationPrecision is the denominator for threshold and bonus.
	LiquidationPrecision uint64
	// LiquidationBonus is the extra collateral share awarded to a liquidator,
	// expressed against LiquidationPrecision.
	LiquidationBonus uint64
	// MinHealthFactor is the lowest acceptable health factor in 1e18 fixed
	// point. Positions below it are liquidatable.
	MinHealthFactor *big.Int
	// OracleMaxAge bounds how old a price round may be before the engine
	// fails closed.
	OracleMaxAge time.Duration
}

// DefaultRiskParameters returns the fixed production parameters: a 50%
// liquidation threshold, a 10% liquidation bonus, a minimum health factor of
// 1.0 and a three hour oracle staleness bound.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		LiquidationThreshold: 50,
		LiquidationPrecision: 100,
		LiquidationBonus:     10,
		MinHealthFactor:      new(big.Int).Set(precision),
		OracleMaxAge:         3 * time.Hour,
	}
}

// Clone returns a deep copy of the parameters.
func (p RiskParameters) Clone() RiskParameters {
	clone := p
	if p.MinHealthFactor != nil {
		clone.MinHealthFactor = new(big.Int).Set(p.MinHealthFactor)
	}
	return clone
}

func (p *RiskParameters) normalize() {
	defaults := DefaultRiskParameters()
	if p.LiquidationPrecision == 0 {
		p.LiquidationPrecision = defaults.LiquidationPrecision
	}
	if p.LiquidationThreshold == 0 {
		p.LiquidationThreshold = defaults.LiquidationThreshold
	}
	if p.MinHealthFactor == nil || p.MinHealthFactor.Sign() <= 0 {
		p.MinHealthFactor = defaults.MinHealthFactor
	}
	if p.OracleMaxAge <= 0 {
		p.OracleMaxAge = defaults.OracleMaxAge
	}
}

func (p RiskParameters) validate() error {
	if p.LiquidationThreshold > p.LiquidationPrecision {
		return fmt.Errorf("stable engine: liquidation threshold %d exceeds precision %d", p.LiquidationThreshold, p.LiquidationPrecision)
	}
	if p.LiquidationBonus > p.LiquidationPrecision {
		return fmt.Errorf("stable engine: liquidation bonus %d exceeds precision %d", p.LiquidationBonus, p.LiquidationPrecision)
	}
	return nil
}
