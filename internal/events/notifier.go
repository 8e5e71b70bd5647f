/*

Default notification sink: every configuration-changed, deposit-completed and
withdrawal-completed notification is logged with its literal fields. Satisfies
both the registry's and the vault engine's Notifier interfaces.

*/

package events

import (
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// LogNotifier writes notifications to the component logger.
type LogNotifier struct{}

// NewLogNotifier creates the default sink.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

var eventLogger = logger.GetForComponent("notifications")

// ConfigurationChanged logs an asset configuration notification.
func (n *LogNotifier) ConfigurationChanged(ev types.ConfigurationChanged) {
	eventLogger.Info().
		Str("event", "configuration_changed").
		Str("denom", ev.Denom).
		Bool("supported", ev.Supported).
		Uint8("decimals", ev.Decimals).
		Str("withdrawLimit", ev.WithdrawLimit.String()).
		Str("priceFeed", ev.PriceFeed).
		Time("timestamp", ev.Timestamp).
		Msg("Asset configuration changed")
}

// DepositCompleted logs a deposit notification.
func (n *LogNotifier) DepositCompleted(ev types.DepositCompleted) {
	eventLogger.Info().
		Str("event", "deposit_completed").
		Str("operationId", ev.OperationID).
		Str("denom", ev.Denom).
		Str("account", ev.Account).
		Str("amount", ev.Amount.String()).
		Str("newBalance", ev.NewBalance.String()).
		Str("usdValue", ev.UsdValue.String()).
		Time("timestamp", ev.Timestamp).
		Msg("Deposit completed")
}

// WithdrawalCompleted logs a withdrawal notification.
func (n *LogNotifier) WithdrawalCompleted(ev types.WithdrawalCompleted) {
	eventLogger.Info().
		Str("event", "withdrawal_completed").
		Str("operationId", ev.OperationID).
		Str("denom", ev.Denom).
		Str("account", ev.Account).
		Str("amount", ev.Amount.String()).
		Str("newBalance", ev.NewBalance.String()).
		Str("usdValue", ev.UsdValue.String()).
		Time("timestamp", ev.Timestamp).
		Msg("Withdrawal completed")
}
