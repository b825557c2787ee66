package stable

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RoundData is a single observation from a price source. Price is a signed
// fixed-point integer in the feed's own decimals; Complete reports whether
// the upstream round has finished.
type RoundData struct {
	Price     *big.Int
	UpdatedAt time.Time
	Complete  bool
}

// PriceFeed resolves the USD-equivalent price for one collateral asset.
// Implementations live outside the engine so tests and deployments can swap
// in doubles or live adapters.
type PriceFeed interface {
	LatestRound() (RoundData, error)
	Decimals() uint8
}

// normalizedPrice reads the asset's feed, rejects stale, incomplete or
// non-positive rounds and scales the price to the engine's 18-decimal fixed
// point.
func (e *Engine) normalizedPrice(asset common.Address) (*big.Int, error) {
	feed, ok := e.registry.feed(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset.Hex())
	}
	round, err := feed.LatestRound()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPriceFeed, asset.Hex(), err)
	}
	if round.Price == nil || round.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s: non-positive price", ErrInvalidPriceFeed, asset.Hex())
	}
	if !round.Complete {
		return nil, fmt.Errorf("%w: %s: round not complete", ErrInvalidPriceFeed, asset.Hex())
	}
	age := e.now().Sub(round.UpdatedAt)
	if age > e.params.OracleMaxAge {
		return nil, fmt.Errorf("%w: %s: round is %s old", ErrInvalidPriceFeed, asset.Hex(), age.Truncate(time.Second))
	}
	decimals := feed.Decimals()
	if decimals > tokenDecimals {
		return new(big.Int).Quo(round.Price, pow10(decimals-tokenDecimals)), nil
	}
	return new(big.Int).Mul(round.Price, pow10(tokenDecimals-decimals)), nil
}
