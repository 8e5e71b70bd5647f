/*

Notification payloads emitted by the registry and the vault engine. These are
observable side effects, not a queryable interface: the default sink logs them
and the state layer persists operation receipts built from the same fields.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// ConfigurationChanged is emitted every time an asset is (re-)configured,
// including idempotent re-configuration with identical parameters.
type ConfigurationChanged struct {
	Denom         string      `json:"denom"`
	Supported     bool        `json:"supported"`
	Decimals      uint8       `json:"decimals"`
	WithdrawLimit sdkmath.Int `json:"withdraw_limit"`
	PriceFeed     string      `json:"price_feed"`
	Timestamp     time.Time   `json:"timestamp"`
}

// DepositCompleted is emitted after a deposit's bookkeeping has been applied.
type DepositCompleted struct {
	OperationID string      `json:"operation_id"`
	Denom       string      `json:"denom"`
	Account     string      `json:"account"`
	Amount      sdkmath.Int `json:"amount"`
	NewBalance  sdkmath.Int `json:"new_balance"`
	UsdValue    sdkmath.Int `json:"usd_value"` // valuation at deposit time, usd6
	Timestamp   time.Time   `json:"timestamp"`
}

// WithdrawalCompleted is emitted after a withdrawal has been applied and the
// outbound transfer delivered. UsdValue is recomputed at withdrawal time, not
// the historical deposit-time valuation.
type WithdrawalCompleted struct {
	OperationID string      `json:"operation_id"`
	Denom       string      `json:"denom"`
	Account     string      `json:"account"`
	Amount      sdkmath.Int `json:"amount"`
	NewBalance  sdkmath.Int `json:"new_balance"`
	UsdValue    sdkmath.Int `json:"usd_value"` // valuation at withdrawal time, usd6
	Timestamp   time.Time   `json:"timestamp"`
}
