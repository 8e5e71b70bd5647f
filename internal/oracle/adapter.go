/*

Adapter between asset configuration and a raw PriceSource. It is the only way the
rest of the system reads prices: it rejects assets with no configured feed and
readings that are zero or negative, so the valuation path only ever sees a
strictly positive price.

*/

package oracle

import (
	"fmt"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

var oracleLogger = logger.GetForComponent("oracle_adapter")

// Adapter wraps a PriceSource with the validation the vault requires.
type Adapter struct {
	source PriceSource
}

// NewAdapter creates an adapter over the given source.
func NewAdapter(source PriceSource) *Adapter {
	return &Adapter{source: source}
}

// AssetPrice returns the validated latest price for the asset's configured feed.
// Fails with ErrPriceFeedNotSet when the asset has no feed, and with
// ErrPriceNegative when the source reports a price <= 0.
func (a *Adapter) AssetPrice(asset types.AssetConfig) (Price, error) {
	if !asset.HasPriceFeed() {
		return Price{}, fmt.Errorf("%w: %s", types.ErrPriceFeedNotSet, asset.Denom)
	}

	price, err := a.source.LatestPrice(asset.PriceFeed)
	if err != nil {
		return Price{}, fmt.Errorf("%w: feed %s: %v", types.ErrPriceFeedNotSet, asset.PriceFeed, err)
	}

	if price.Value.IsNil() || !price.Value.IsPositive() {
		reported := "nil"
		if !price.Value.IsNil() {
			reported = price.Value.String()
		}
		oracleLogger.Error().
			Str("denom", asset.Denom).
			Str("feed", asset.PriceFeed).
			Str("price", reported).
			Msg("Oracle reported non-positive price")
		return Price{}, fmt.Errorf("%w: feed %s reported %s", types.ErrPriceNegative, asset.PriceFeed, reported)
	}

	return price, nil
}
