package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Validate checks the configuration for problems that would otherwise only
// surface deep inside engine construction.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.CustodyAddress) {
		return fmt.Errorf("config: CustodyAddress %q is not a valid address", c.CustodyAddress)
	}
	if !common.IsHexAddress(c.StableAsset) {
		return fmt.Errorf("config: StableAsset %q is not a valid address", c.StableAsset)
	}
	if len(c.Collateral) == 0 {
		return fmt.Errorf("config: at least one collateral asset is required")
	}
	seen := make(map[common.Address]bool, len(c.Collateral))
	for i, collateral := range c.Collateral {
		if !common.IsHexAddress(collateral.Asset) {
			return fmt.Errorf("config: collateral[%d].Asset %q is not a valid address", i, collateral.Asset)
		}
		asset := common.HexToAddress(collateral.Asset)
		if seen[asset] {
			return fmt.Errorf("config: duplicate collateral asset %s", asset.Hex())
		}
		seen[asset] = true
		if collateral.FeedDecimals > 30 {
			return fmt.Errorf("config: collateral[%d].FeedDecimals %d out of range", i, collateral.FeedDecimals)
		}
		if strings.TrimSpace(collateral.FeedURL) == "" {
			price, ok := new(big.Int).SetString(strings.TrimSpace(collateral.InitialPrice), 10)
			if !ok || price.Sign() <= 0 {
				return fmt.Errorf("config: collateral[%d] needs a FeedURL or a positive InitialPrice", i)
			}
		}
	}
	return nil
}
