package stable

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The position ledger: every balance mutation flows through the helpers in
// this file, which operate on in-memory copies. Callers persist the copy only
// after every external effect of the operation has succeeded.

func (e *Engine) loadPosition(account common.Address) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, err := e.state.GetPosition(account)
	if err != nil {
		return nil, err
	}
	if position == nil {
		position = NewPosition(account)
	}
	position.ensureDefaults()
	return position, nil
}

func (e *Engine) persistPosition(position *Position) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.PutPosition(position)
}

func (e *Engine) creditCollateral(position *Position, asset common.Address, amount *big.Int) {
	balance, ok := position.Collateral[asset]
	if !ok || balance == nil {
		balance = big.NewInt(0)
	}
	position.Collateral[asset] = new(big.Int).Add(balance, amount)
}

func (e *Engine) debitCollateral(position *Position, asset common.Address, amount *big.Int) error {
	balance, ok := position.Collateral[asset]
	if !ok || balance == nil {
		balance = big.NewInt(0)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientCollateral, amount, balance)
	}
	position.Collateral[asset] = new(big.Int).Sub(balance, amount)
	return nil
}

func (e *Engine) increaseDebt(position *Position, amount *big.Int) {
	position.Debt = new(big.Int).Add(position.Debt, amount)
}

func (e *Engine) decreaseDebt(position *Position, amount *big.Int) error {
	if position.Debt.Cmp(amount) < 0 {
		return fmt.Errorf("%w: requested %s, outstanding %s", ErrInsufficientDebt, amount, position.Debt)
	}
	position.Debt = new(big.Int).Sub(position.Debt, amount)
	return nil
}
