/*

Vault operations: the deposit/withdraw/query entry points that compose the
registry, the oracle adapter, the normalizer, and the ledger.

Execution discipline: every mutating operation runs to completion (or fails
entirely) before the next begins, and ledger effects are always applied before
the external transfer call. The transfer is the only suspension point and is
treated as a re-entry vector — a nested call into any mutating entry point while
one is in flight fails with ErrReentrantCall. When a transfer fails after
effects were applied, the engine compensates so no partial state is observable.

*/

package vault

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/oracle"
	"github.com/custodia-labs/vaultd/internal/registry"
	"github.com/custodia-labs/vaultd/internal/transfer"
	"github.com/custodia-labs/vaultd/internal/types"
	"github.com/custodia-labs/vaultd/internal/valuation"
)

var vaultLogger = logger.GetForComponent("vault_engine")

// Notifier receives the deposit/withdrawal notifications.
type Notifier interface {
	DepositCompleted(types.DepositCompleted)
	WithdrawalCompleted(types.WithdrawalCompleted)
}

// ReceiptSink persists operation receipts and ledger mutations. The in-memory
// ledger stays authoritative while the process runs; sink failures are logged,
// never unwound.
type ReceiptSink interface {
	InsertReceipt(types.OperationReceipt) error
	SaveBalance(denom, account string, balance sdkmath.Int) error
	SaveVaultState(totalDepositedUsd sdkmath.Int, depositCount, withdrawCount uint64) error
}

// Engine is the vault's only mutating surface.
type Engine struct {
	registry  *registry.Registry
	ledger    *ledger.Ledger
	oracle    *oracle.Adapter
	transfers transfer.Service
	notifier  Notifier
	sink      ReceiptSink

	opMu     sync.Mutex
	inFlight atomic.Bool
}

// Config wires an Engine. Notifier and Sink are optional.
type Config struct {
	Registry  *registry.Registry
	Ledger    *ledger.Ledger
	Oracle    *oracle.Adapter
	Transfers transfer.Service
	Notifier  Notifier
	Sink      ReceiptSink
}

// NewEngine validates the wiring and creates the engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle adapter is required")
	}
	if cfg.Transfers == nil {
		return nil, fmt.Errorf("transfer service is required")
	}
	return &Engine{
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		oracle:    cfg.Oracle,
		transfers: cfg.Transfers,
		notifier:  cfg.Notifier,
		sink:      cfg.Sink,
	}, nil
}

// begin acquires the non-reentrant execution guard. The in-flight flag is
// checked before the serializing mutex so a nested call from within a transfer
// callback fails fast instead of deadlocking; concurrent callers from other
// goroutines serialize on the mutex.
func (e *Engine) begin() error {
	if e.inFlight.Load() {
		return types.ErrReentrantCall
	}
	e.opMu.Lock()
	e.inFlight.Store(true)
	return nil
}

func (e *Engine) end() {
	e.inFlight.Store(false)
	e.opMu.Unlock()
}

// DepositNative credits a native-currency deposit that accompanied the call.
// The native units are already in the vault's custody, so no transfer-in occurs.
func (e *Engine) DepositNative(account string, amount sdkmath.Int) (types.DepositCompleted, error) {
	if err := e.begin(); err != nil {
		return types.DepositCompleted{}, err
	}
	defer e.end()
	return e.deposit(e.registry.Native(), account, amount, false)
}

// DepositAsset pulls a non-native asset from the depositor into custody and
// credits the account, enforcing the global cap at deposit-time valuation.
func (e *Engine) DepositAsset(account, denom string, amount sdkmath.Int) (types.DepositCompleted, error) {
	if err := e.begin(); err != nil {
		return types.DepositCompleted{}, err
	}
	defer e.end()

	// Amount validation comes before the denom lookup: a zero amount is a
	// zero-amount error even for an unknown or native denom.
	if err := validateAmount(amount); err != nil {
		return types.DepositCompleted{}, err
	}
	asset, err := e.lookupNonNative(denom)
	if err != nil {
		return types.DepositCompleted{}, err
	}
	return e.deposit(asset, account, amount, true)
}

func (e *Engine) deposit(asset types.AssetConfig, account string, amount sdkmath.Int, pull bool) (types.DepositCompleted, error) {
	if err := validateAmount(amount); err != nil {
		return types.DepositCompleted{}, err
	}
	if !asset.Supported {
		return types.DepositCompleted{}, fmt.Errorf("%w: %s", types.ErrUnsupportedToken, asset.Denom)
	}

	usdValue, err := e.valueInUsd(asset, amount)
	if err != nil {
		return types.DepositCompleted{}, err
	}

	// Effects before external interaction.
	newBalance, err := e.ledger.ApplyDeposit(asset.Denom, account, amount, usdValue)
	if err != nil {
		e.recordFailure(types.OpDeposit, asset.Denom, account, amount, usdValue, err)
		return types.DepositCompleted{}, err
	}

	if pull {
		if pullErr := e.transfers.PullFrom(asset.Denom, account, amount); pullErr != nil {
			if unwindErr := e.ledger.UnwindDeposit(asset.Denom, account, amount, usdValue); unwindErr != nil {
				// Unreachable while the guard holds: nothing else mutated the entry.
				vaultLogger.Error().Err(unwindErr).Msg("Failed to unwind deposit after transfer failure")
			}
			e.recordFailure(types.OpDeposit, asset.Denom, account, amount, usdValue, pullErr)
			return types.DepositCompleted{}, fmt.Errorf("transfer-in failed for %s: %w", asset.Denom, pullErr)
		}
	}

	ev := types.DepositCompleted{
		OperationID: uuid.NewString(),
		Denom:       asset.Denom,
		Account:     account,
		Amount:      amount,
		NewBalance:  newBalance,
		UsdValue:    usdValue,
		Timestamp:   time.Now(),
	}

	vaultLogger.Info().
		Str("operationId", ev.OperationID).
		Str("denom", ev.Denom).
		Str("account", ev.Account).
		Str("amount", ev.Amount.String()).
		Str("newBalance", ev.NewBalance.String()).
		Str("usdValue", ev.UsdValue.String()).
		Msg("Deposit completed")

	if e.notifier != nil {
		e.notifier.DepositCompleted(ev)
	}
	e.persistAfterOp(types.OperationReceipt{
		OperationID: ev.OperationID,
		OpType:      types.OpDeposit,
		Denom:       ev.Denom,
		Account:     ev.Account,
		Amount:      ev.Amount,
		UsdValue:    ev.UsdValue,
		Success:     true,
		Timestamp:   ev.Timestamp,
	}, ev.Denom, ev.Account, ev.NewBalance)

	return ev, nil
}

// WithdrawNative debits the caller and pushes native currency out. A failed
// low-level native transfer unwinds the whole operation.
func (e *Engine) WithdrawNative(account string, amount sdkmath.Int) (types.WithdrawalCompleted, error) {
	if err := e.begin(); err != nil {
		return types.WithdrawalCompleted{}, err
	}
	defer e.end()
	return e.withdraw(e.registry.Native(), account, amount)
}

// WithdrawAsset debits the caller and pushes a non-native asset out.
func (e *Engine) WithdrawAsset(account, denom string, amount sdkmath.Int) (types.WithdrawalCompleted, error) {
	if err := e.begin(); err != nil {
		return types.WithdrawalCompleted{}, err
	}
	defer e.end()

	if err := validateAmount(amount); err != nil {
		return types.WithdrawalCompleted{}, err
	}
	asset, err := e.lookupNonNative(denom)
	if err != nil {
		return types.WithdrawalCompleted{}, err
	}
	return e.withdraw(asset, account, amount)
}

func (e *Engine) withdraw(asset types.AssetConfig, account string, amount sdkmath.Int) (types.WithdrawalCompleted, error) {
	if err := validateAmount(amount); err != nil {
		return types.WithdrawalCompleted{}, err
	}
	if !asset.Supported {
		return types.WithdrawalCompleted{}, fmt.Errorf("%w: %s", types.ErrUnsupportedToken, asset.Denom)
	}
	if !asset.WithdrawLimit.IsNil() && amount.GT(asset.WithdrawLimit) {
		err := &types.WithdrawLimitError{Requested: amount, Limit: asset.WithdrawLimit}
		e.recordFailure(types.OpWithdraw, asset.Denom, account, amount, sdkmath.ZeroInt(), err)
		return types.WithdrawalCompleted{}, err
	}

	// Recomputed at withdrawal time; this never touches totalDepositedUsd.
	usdValue, err := e.valueInUsd(asset, amount)
	if err != nil {
		return types.WithdrawalCompleted{}, err
	}

	// Effects before external interaction.
	newBalance, err := e.ledger.ApplyWithdrawal(asset.Denom, account, amount)
	if err != nil {
		e.recordFailure(types.OpWithdraw, asset.Denom, account, amount, usdValue, err)
		return types.WithdrawalCompleted{}, err
	}

	if pushErr := e.transfers.PushTo(asset.Denom, account, amount); pushErr != nil {
		e.ledger.UnwindWithdrawal(asset.Denom, account, amount)
		e.recordFailure(types.OpWithdraw, asset.Denom, account, amount, usdValue, pushErr)
		if asset.IsNative {
			return types.WithdrawalCompleted{}, fmt.Errorf("%w: %v", types.ErrNativeTransferFailed, pushErr)
		}
		return types.WithdrawalCompleted{}, fmt.Errorf("transfer-out failed for %s: %w", asset.Denom, pushErr)
	}

	ev := types.WithdrawalCompleted{
		OperationID: uuid.NewString(),
		Denom:       asset.Denom,
		Account:     account,
		Amount:      amount,
		NewBalance:  newBalance,
		UsdValue:    usdValue,
		Timestamp:   time.Now(),
	}

	vaultLogger.Info().
		Str("operationId", ev.OperationID).
		Str("denom", ev.Denom).
		Str("account", ev.Account).
		Str("amount", ev.Amount.String()).
		Str("newBalance", ev.NewBalance.String()).
		Str("usdValue", ev.UsdValue.String()).
		Msg("Withdrawal completed")

	if e.notifier != nil {
		e.notifier.WithdrawalCompleted(ev)
	}
	e.persistAfterOp(types.OperationReceipt{
		OperationID: ev.OperationID,
		OpType:      types.OpWithdraw,
		Denom:       ev.Denom,
		Account:     ev.Account,
		Amount:      ev.Amount,
		UsdValue:    ev.UsdValue,
		Success:     true,
		Timestamp:   ev.Timestamp,
	}, ev.Denom, ev.Account, ev.NewBalance)

	return ev, nil
}

// BalanceOf is a pure read of the account's balance for an asset.
func (e *Engine) BalanceOf(account, denom string) (sdkmath.Int, error) {
	if _, ok := e.registry.Get(denom); !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", types.ErrUnsupportedToken, denom)
	}
	return e.ledger.Balance(denom, account), nil
}

// UsdValueOf values any account's balance for an asset at the live price. May
// fail with the oracle errors when valuation is impossible.
func (e *Engine) UsdValueOf(account, denom string) (sdkmath.Int, error) {
	asset, ok := e.registry.Get(denom)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", types.ErrUnsupportedToken, denom)
	}
	return e.valueInUsd(asset, e.ledger.Balance(denom, account))
}

// Summary is the global accounting state exposed to the query surface.
type Summary struct {
	TotalDepositedUsd sdkmath.Int `json:"total_deposited_usd"`
	BankCapUsd        sdkmath.Int `json:"bank_cap_usd"`
	DepositCount      uint64      `json:"deposit_count"`
	WithdrawCount     uint64      `json:"withdraw_count"`
}

// Summarize returns the current global state.
func (e *Engine) Summarize() Summary {
	return Summary{
		TotalDepositedUsd: e.ledger.TotalDepositedUsd(),
		BankCapUsd:        e.ledger.BankCapUsd(),
		DepositCount:      e.ledger.DepositCount(),
		WithdrawCount:     e.ledger.WithdrawCount(),
	}
}

// valueInUsd values amount of the asset at the latest validated oracle price.
func (e *Engine) valueInUsd(asset types.AssetConfig, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	price, err := e.oracle.AssetPrice(asset)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return valuation.ToUsd(amount, asset.Decimals, price.Value, price.Decimals)
}

// lookupNonNative resolves a denom for the token paths, rejecting the native
// sentinel and unknown assets alike.
func (e *Engine) lookupNonNative(denom string) (types.AssetConfig, error) {
	if denom == types.NativeDenom {
		return types.AssetConfig{}, fmt.Errorf("%w: native asset must use the native entry points", types.ErrUnsupportedToken)
	}
	asset, ok := e.registry.Get(denom)
	if !ok {
		return types.AssetConfig{}, fmt.Errorf("%w: %s", types.ErrUnsupportedToken, denom)
	}
	return asset, nil
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() || amount.IsZero() {
		return types.ErrZeroAmount
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", types.ErrZeroAmount, amount)
	}
	return nil
}

// persistAfterOp writes the receipt and the mutated rows. The ledger has already
// committed; sink errors are logged and the operation result stands.
func (e *Engine) persistAfterOp(receipt types.OperationReceipt, denom, account string, balance sdkmath.Int) {
	if e.sink == nil {
		return
	}
	if err := e.sink.InsertReceipt(receipt); err != nil {
		vaultLogger.Error().Err(err).Str("operationId", receipt.OperationID).Msg("Failed to persist operation receipt")
	}
	if err := e.sink.SaveBalance(denom, account, balance); err != nil {
		vaultLogger.Error().Err(err).Str("denom", denom).Str("account", account).Msg("Failed to persist balance")
	}
	if err := e.sink.SaveVaultState(e.ledger.TotalDepositedUsd(), e.ledger.DepositCount(), e.ledger.WithdrawCount()); err != nil {
		vaultLogger.Error().Err(err).Msg("Failed to persist vault state")
	}
}

// recordFailure persists an audit receipt for a rejected operation.
func (e *Engine) recordFailure(opType, denom, account string, amount, usdValue sdkmath.Int, opErr error) {
	if e.sink == nil {
		return
	}
	receipt := types.OperationReceipt{
		OperationID: uuid.NewString(),
		OpType:      opType,
		Denom:       denom,
		Account:     account,
		Amount:      amount,
		UsdValue:    usdValue,
		Success:     false,
		Message:     opErr.Error(),
		Timestamp:   time.Now(),
	}
	if err := e.sink.InsertReceipt(receipt); err != nil {
		vaultLogger.Error().Err(err).Str("opType", opType).Msg("Failed to persist failure receipt")
	}
}
