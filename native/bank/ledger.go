package bank

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is an in-memory multi-asset token ledger. It tracks per-asset
// account balances and total supply, and is safe for concurrent use. The
// stable engine talks to it through a Handle bound to its custody account.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*big.Int
	supply   map[common.Address]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]map[common.Address]*big.Int),
		supply:   make(map[common.Address]*big.Int),
	}
}

// BalanceOf returns a copy of the account's balance for the asset.
func (l *Ledger) BalanceOf(asset, account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.balance(asset, account))
}

// Supply returns a copy of the asset's total supply.
func (l *Ledger) Supply(asset common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	current, ok := l.supply[asset]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(current)
}

// Credit funds an account out of thin air, growing supply. Used for genesis
// balances and tests.
func (l *Ledger) Credit(asset, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: credit amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(asset, account, amount)
	l.addSupply(asset, amount)
	return nil
}

func (l *Ledger) balance(asset, account common.Address) *big.Int {
	accounts, ok := l.balances[asset]
	if !ok {
		return big.NewInt(0)
	}
	balance, ok := accounts[account]
	if !ok {
		return big.NewInt(0)
	}
	return balance
}

func (l *Ledger) add(asset, account common.Address, amount *big.Int) {
	accounts, ok := l.balances[asset]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		l.balances[asset] = accounts
	}
	current, ok := accounts[account]
	if !ok {
		current = big.NewInt(0)
	}
	accounts[account] = new(big.Int).Add(current, amount)
}

func (l *Ledger) addSupply(asset common.Address, amount *big.Int) {
	current, ok := l.supply[asset]
	if !ok {
		current = big.NewInt(0)
	}
	l.supply[asset] = new(big.Int).Add(current, amount)
}

func (l *Ledger) move(asset, from, to common.Address, amount *big.Int) bool {
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	balance := l.balance(asset, from)
	if balance.Cmp(amount) < 0 {
		return false
	}
	l.balances[asset][from] = new(big.Int).Sub(balance, amount)
	l.add(asset, to, amount)
	return true
}

// Handle binds the ledger to an owner account so self-addressed operations
// (Transfer, Burn) act on that account. It satisfies the stable engine's
// token ledger contract.
type Handle struct {
	ledger *Ledger
	owner  common.Address
}

func (l *Ledger) Handle(owner common.Address) *Handle {
	return &Handle{ledger: l, owner: owner}
}

// TransferFrom moves amount of the asset between two accounts, reporting
// failure instead of mutating on insufficient balance.
func (h *Handle) TransferFrom(asset, from, to common.Address, amount *big.Int) bool {
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()
	return h.ledger.move(asset, from, to, amount)
}

// Transfer moves amount of the asset from the owner account.
func (h *Handle) Transfer(asset, to common.Address, amount *big.Int) bool {
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()
	return h.ledger.move(asset, h.owner, to, amount)
}

// Mint creates amount of the asset in the recipient's balance.
func (h *Handle) Mint(asset, to common.Address, amount *big.Int) bool {
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()
	h.ledger.add(asset, to, amount)
	h.ledger.addSupply(asset, amount)
	return true
}

// Burn destroys amount of the asset held by the owner account.
func (h *Handle) Burn(asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("bank: burn amount must be positive")
	}
	h.ledger.mu.Lock()
	defer h.ledger.mu.Unlock()
	balance := h.ledger.balance(asset, h.owner)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("bank: burn of %s exceeds balance %s", amount, balance)
	}
	h.ledger.balances[asset][h.owner] = new(big.Int).Sub(balance, amount)
	supply := h.ledger.supply[asset]
	if supply == nil {
		supply = big.NewInt(0)
	}
	h.ledger.supply[asset] = new(big.Int).Sub(supply, amount)
	return nil
}
