/*

Error taxonomy for the vault core. Every failure is fail-fast: it aborts the whole
operation with no partial ledger mutation and no external transfer attempted.

Simple validation failures are package-level sentinels. Failures that carry
operands (cap, withdraw limit, balance) are typed errors that still match their
sentinel through errors.Is, so callers can branch on kind without losing the
diagnostic values.

*/

package types

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrZeroAmount            = errors.New("amount must be non-zero")
	ErrUnsupportedToken      = errors.New("token is not supported")
	ErrPriceFeedNotSet       = errors.New("price feed is not set")
	ErrPriceNegative         = errors.New("oracle price is zero or negative")
	ErrCapExceeded           = errors.New("bank cap exceeded")
	ErrWithdrawLimitExceeded = errors.New("withdraw limit exceeded")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrNativeTransferFailed  = errors.New("native transfer failed")
	ErrReentrantCall         = errors.New("reentrant call")
	ErrUnauthorized          = errors.New("identity lacks required role")
)

// CapExceededError reports a deposit whose valuation would push the cumulative
// USD total above the immutable bank cap.
type CapExceededError struct {
	AttemptedUsd sdkmath.Int
	BankCapUsd   sdkmath.Int
}

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("bank cap exceeded: attempted %s usd6, cap %s usd6", e.AttemptedUsd, e.BankCapUsd)
}

func (e *CapExceededError) Is(target error) bool { return target == ErrCapExceeded }

// WithdrawLimitError reports a withdrawal above the asset's per-withdrawal limit.
type WithdrawLimitError struct {
	Requested sdkmath.Int
	Limit     sdkmath.Int
}

func (e *WithdrawLimitError) Error() string {
	return fmt.Sprintf("withdraw limit exceeded: requested %s, limit %s", e.Requested, e.Limit)
}

func (e *WithdrawLimitError) Is(target error) bool { return target == ErrWithdrawLimitExceeded }

// InsufficientBalanceError reports a withdrawal above the account's balance.
type InsufficientBalanceError struct {
	Balance   sdkmath.Int
	Requested sdkmath.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, requested %s", e.Balance, e.Requested)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }
