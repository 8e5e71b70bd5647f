package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Operation types recorded in receipts.
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
)

// OperationReceipt is the audit record persisted for every attempted deposit or
// withdrawal, successful or not.
type OperationReceipt struct {
	OperationID string      `json:"operation_id"`
	OpType      string      `json:"op_type"`
	Denom       string      `json:"denom"`
	Account     string      `json:"account"`
	Amount      sdkmath.Int `json:"amount"`
	UsdValue    sdkmath.Int `json:"usd_value"`
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
