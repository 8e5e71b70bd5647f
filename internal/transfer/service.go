/*

The asset-transfer primitive that actually moves value between the vault and a
caller. It is an external collaborator assumed atomic and all-or-nothing; the
vault only sees explicit success or failure.

*/

package transfer

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

var ErrTransferRejected = errors.New("transfer rejected by asset service")

// Service moves asset units in and out of the vault's custody.
type Service interface {
	// PullFrom transfers amount of denom from the depositor into the vault.
	// Must fail loudly on transfer failure (e.g. insufficient allowance).
	PullFrom(denom, from string, amount sdkmath.Int) error

	// PushTo transfers amount of denom (or native currency, for the native
	// sentinel) from the vault to the recipient.
	PushTo(denom, to string, amount sdkmath.Int) error
}
