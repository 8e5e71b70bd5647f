/*

Asset configuration state for the vault. Every asset the vault custodies, including
the native currency, has exactly one AssetConfig entry. The native currency is
represented by a reserved sentinel denom rather than a real asset identifier.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// NativeDenom is the reserved sentinel identifier for the chain's base currency.
// It is configured once at initialization and can never be re-configured through
// the admin path.
const NativeDenom = "native"

// UsdDecimals is the canonical precision for all capacity accounting. Every
// valuation, the global cap, and totalDepositedUsd are integers at this scale.
const UsdDecimals = 6

// DefaultAssetDecimals is used when an asset is configured with decimals=0 and
// its own metadata cannot be queried.
const DefaultAssetDecimals = 18

// AssetConfig holds the per-asset configuration the registry manages.
type AssetConfig struct {
	Denom         string      `json:"denom"`          // e.g., "uusdc", or NativeDenom
	Supported     bool        `json:"supported"`      // gate for all operations on this asset
	IsNative      bool        `json:"is_native"`      // true only for the NativeDenom entry
	Decimals      uint8       `json:"decimals"`       // native precision of the smallest unit
	WithdrawLimit sdkmath.Int `json:"withdraw_limit"` // max native units per single withdrawal
	PriceFeed     string      `json:"price_feed"`     // oracle feed identifier; empty means valuation is impossible
}

// HasPriceFeed reports whether the asset has an oracle reference configured.
func (a AssetConfig) HasPriceFeed() bool {
	return a.PriceFeed != ""
}
