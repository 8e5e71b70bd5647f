/*

Pure fixed-point conversion from an asset amount at its native precision, combined
with an oracle price at the feed's own precision, into the canonical 6-decimal USD
unit used for all capacity accounting.

The arithmetic is done on sdkmath.Int (big-integer backed), so the amount*price
product can never silently overflow regardless of operand magnitude. Both the
price-decimal adjustment and the asset-decimal rescale use truncating integer
division: rounding loss always favors the vault, never the depositor, and the
truncation direction is part of the compatibility contract.

*/

package valuation

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/types"
)

var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrPriceInvalid   = errors.New("price must be positive")
)

// pow10 returns 10^n as an sdkmath.Int.
func pow10(n uint8) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, int(n))
}

// ToUsd converts amount (at assetDecimals precision) priced by price (at
// priceDecimals precision) into an integer at the canonical 6-decimal USD scale.
//
// Order matters: the price-decimal adjustment happens before the asset-decimal
// rescale, both truncating toward zero. This is deterministic and uniform for any
// combination of feed precision (e.g. 8) and asset precision (e.g. 6 or 18).
func ToUsd(amount sdkmath.Int, assetDecimals uint8, price sdkmath.Int, priceDecimals uint8) (sdkmath.Int, error) {
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAmountNegative, amount)
	}
	if amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if price.IsNil() || !price.IsPositive() {
		return sdkmath.ZeroInt(), ErrPriceInvalid
	}

	numerator := amount.Mul(price)

	if priceDecimals > 0 {
		numerator = numerator.Quo(pow10(priceDecimals))
	}

	if assetDecimals >= types.UsdDecimals {
		return numerator.Quo(pow10(assetDecimals - types.UsdDecimals)), nil
	}
	return numerator.Mul(pow10(types.UsdDecimals - assetDecimals)), nil
}
