package stable

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"stablecore/storage"
)

// PositionStore persists account positions as RLP records in a keyed store.
// It is the production implementation of the engine's state boundary.
type PositionStore struct {
	db storage.Database
}

func NewPositionStore(db storage.Database) *PositionStore {
	return &PositionStore{db: db}
}

type storedPosition struct {
	Account common.Address
	Assets  []common.Address
	Amounts []*big.Int
	Debt    *big.Int
}

// GetPosition loads the stored position for the account, returning nil when
// the account has never interacted with the engine.
func (s *PositionStore) GetPosition(account common.Address) (*Position, error) {
	raw, err := s.db.Get(positionKey(account))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("position store: load %s: %w", account.Hex(), err)
	}
	var stored storedPosition
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return nil, fmt.Errorf("position store: decode %s: %w", account.Hex(), err)
	}
	if len(stored.Assets) != len(stored.Amounts) {
		return nil, fmt.Errorf("position store: corrupt record for %s", account.Hex())
	}
	position := NewPosition(stored.Account)
	for i, asset := range stored.Assets {
		amount := stored.Amounts[i]
		if amount == nil {
			amount = big.NewInt(0)
		}
		position.Collateral[asset] = new(big.Int).Set(amount)
	}
	if stored.Debt != nil {
		position.Debt = new(big.Int).Set(stored.Debt)
	}
	return position, nil
}

// PutPosition writes the position, dropping zero collateral buckets. Assets
// are stored in a deterministic order so records are byte-stable.
func (s *PositionStore) PutPosition(position *Position) error {
	if position == nil {
		return fmt.Errorf("position store: nil position")
	}
	stored := storedPosition{Account: position.Account, Debt: position.Debt}
	if stored.Debt == nil {
		stored.Debt = big.NewInt(0)
	}
	assets := make([]common.Address, 0, len(position.Collateral))
	for asset, amount := range position.Collateral {
		if amount == nil || amount.Sign() == 0 {
			continue
		}
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Hex() < assets[j].Hex()
	})
	for _, asset := range assets {
		stored.Assets = append(stored.Assets, asset)
		stored.Amounts = append(stored.Amounts, position.Collateral[asset])
	}
	raw, err := rlp.EncodeToBytes(&stored)
	if err != nil {
		return fmt.Errorf("position store: encode %s: %w", position.Account.Hex(), err)
	}
	return s.db.Put(positionKey(position.Account), raw)
}
