package stable

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the capability the engine needs from the asset ledgers it
// moves value on. Transfer and Burn act on the engine's custody account; a
// false return signals failure and aborts the calling operation. The engine
// consults the ledger but never owns its state.
type TokenLedger interface {
	TransferFrom(asset, from, to common.Address, amount *big.Int) bool
	Transfer(asset, to common.Address, amount *big.Int) bool
	Mint(asset, to common.Address, amount *big.Int) bool
	Burn(asset common.Address, amount *big.Int) error
}
