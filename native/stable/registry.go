package stable

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// collateralRegistry is the fixed, insertion-ordered set of approved
// collateral assets, each bound to exactly one price feed.
type collateralRegistry struct {
	assets []common.Address
	feeds  map[common.Address]PriceFeed
}

func newCollateralRegistry(assets []common.Address, feeds []PriceFeed) (*collateralRegistry, error) {
	if len(assets) != len(feeds) {
		return nil, fmt.Errorf("%w: %d assets, %d feeds", ErrAssetConfigMismatch, len(assets), len(feeds))
	}
	registry := &collateralRegistry{
		assets: make([]common.Address, 0, len(assets)),
		feeds:  make(map[common.Address]PriceFeed, len(assets)),
	}
	for i, asset := range assets {
		if feeds[i] == nil {
			return nil, fmt.Errorf("%w: nil feed for %s", ErrAssetConfigMismatch, asset.Hex())
		}
		if _, exists := registry.feeds[asset]; exists {
			return nil, fmt.Errorf("%w: duplicate asset %s", ErrAssetConfigMismatch, asset.Hex())
		}
		registry.assets = append(registry.assets, asset)
		registry.feeds[asset] = feeds[i]
	}
	return registry, nil
}

func (r *collateralRegistry) feed(asset common.Address) (PriceFeed, bool) {
	feed, ok := r.feeds[asset]
	return feed, ok
}

func (r *collateralRegistry) allowed(asset common.Address) bool {
	_, ok := r.feeds[asset]
	return ok
}

// list returns a copy of the registered assets in insertion order.
func (r *collateralRegistry) list() []common.Address {
	return append([]common.Address(nil), r.assets...)
}
