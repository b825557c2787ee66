package stable

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	TypeCollateralDeposited = "stable.collateral.deposited"
	TypeCollateralRedeemed  = "stable.collateral.redeemed"
	TypeStableMinted        = "stable.minted"
	TypeStableBurned        = "stable.burned"
	TypeLiquidated          = "stable.liquidated"
)

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding all events.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

type CollateralDeposited struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

type CollateralRedeemed struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

type StableMinted struct {
	Account common.Address
	Amount  *big.Int
}

func (StableMinted) EventType() string { return TypeStableMinted }

type StableBurned struct {
	Account common.Address
	Amount  *big.Int
}

func (StableBurned) EventType() string { return TypeStableBurned }

type Liquidated struct {
	Liquidator       common.Address
	Account          common.Address
	Asset            common.Address
	DebtCovered      *big.Int
	CollateralSeized *big.Int
}

func (Liquidated) EventType() string { return TypeLiquidated }
