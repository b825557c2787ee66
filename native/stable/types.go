package stable

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position holds the per-account state owned by the position ledger: one
// deposited balance per collateral asset plus the minted stable-unit debt.
// Amounts are 18-decimal fixed-point integers and never negative.
type Position struct {
	Account    common.Address
	Collateral map[common.Address]*big.Int
	Debt       *big.Int
}

// NewPosition returns an empty position for the given account.
func NewPosition(account common.Address) *Position {
	return &Position{
		Account:    account,
		Collateral: make(map[common.Address]*big.Int),
		Debt:       big.NewInt(0),
	}
}

// CollateralBalance returns the deposited amount for the asset, zero when the
// asset has never been touched. The returned value is a copy.
func (p *Position) CollateralBalance(asset common.Address) *big.Int {
	if p == nil || p.Collateral == nil {
		return big.NewInt(0)
	}
	balance, ok := p.Collateral[asset]
	if !ok || balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := NewPosition(p.Account)
	for asset, balance := range p.Collateral {
		if balance != nil {
			clone.Collateral[asset] = new(big.Int).Set(balance)
		}
	}
	if p.Debt != nil {
		clone.Debt = new(big.Int).Set(p.Debt)
	}
	return clone
}

// Empty reports whether the position carries no collateral and no debt.
func (p *Position) Empty() bool {
	if p == nil {
		return true
	}
	if p.Debt != nil && p.Debt.Sign() > 0 {
		return false
	}
	for _, balance := range p.Collateral {
		if balance != nil && balance.Sign() > 0 {
			return false
		}
	}
	return true
}

func (p *Position) ensureDefaults() {
	if p.Collateral == nil {
		p.Collateral = make(map[common.Address]*big.Int)
	}
	if p.Debt == nil {
		p.Debt = big.NewInt(0)
	}
}
