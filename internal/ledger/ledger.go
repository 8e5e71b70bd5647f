/*

The ledger is the vault's bookkeeping core: per-(asset,account) balances, the
global accumulated USD total, the immutable bank cap, and the operation
counters. It is exclusively owned by the vault engine — constructed once at
initialization, mutated only through deposit/withdraw operations, read through
queries, torn down only at process shutdown.

totalDepositedUsd is a running sum of deposit valuations at deposit time. It is
never decremented on withdrawal, so the cap is a cumulative-deposit ceiling, not
a live mark-to-market solvency figure.

*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/types"
)

var (
	ErrInvalidCap     = errors.New("bank cap must be positive")
	ErrNegativeAmount = errors.New("ledger amounts must be non-negative")
)

// balanceKey identifies one (asset, account) entry.
type balanceKey struct {
	denom   string
	account string
}

// Ledger holds all mutable accounting state.
type Ledger struct {
	mu sync.RWMutex

	balances map[balanceKey]sdkmath.Int

	totalDepositedUsd sdkmath.Int
	bankCapUsd        sdkmath.Int

	depositCount  uint64
	withdrawCount uint64
}

// New creates a ledger with the immutable bank cap, in canonical usd6 units.
func New(bankCapUsd sdkmath.Int) (*Ledger, error) {
	if bankCapUsd.IsNil() || !bankCapUsd.IsPositive() {
		return nil, ErrInvalidCap
	}
	return &Ledger{
		balances:          make(map[balanceKey]sdkmath.Int),
		totalDepositedUsd: sdkmath.ZeroInt(),
		bankCapUsd:        bankCapUsd,
	}, nil
}

// Balance returns the account's balance for the asset, zero if no entry exists.
// Entries are created implicitly on first deposit and never deleted, only zeroed.
func (l *Ledger) Balance(denom, account string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.balances[balanceKey{denom, account}]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// ApplyDeposit atomically credits the account, adds the deposit-time valuation
// to the global total, and increments the deposit counter. If the valuation
// would push the total above the cap, nothing changes and a CapExceededError is
// returned.
func (l *Ledger) ApplyDeposit(denom, account string, amount, usdValue sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNegative() || usdValue.IsNegative() {
		return sdkmath.ZeroInt(), ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	attempted := l.totalDepositedUsd.Add(usdValue)
	if attempted.GT(l.bankCapUsd) {
		return sdkmath.ZeroInt(), &types.CapExceededError{AttemptedUsd: attempted, BankCapUsd: l.bankCapUsd}
	}

	key := balanceKey{denom, account}
	newBalance := l.entry(key).Add(amount)
	l.balances[key] = newBalance
	l.totalDepositedUsd = attempted
	l.depositCount++
	return newBalance, nil
}

// UnwindDeposit reverses a previously applied deposit. Used only by the engine
// when the follow-on external transfer-in fails, so the operation stays
// all-or-nothing.
func (l *Ledger) UnwindDeposit(denom, account string, amount, usdValue sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{denom, account}
	newBalance := l.entry(key).Sub(amount)
	if newBalance.IsNegative() {
		return fmt.Errorf("cannot unwind deposit of %s %s for %s: balance would go negative", amount, denom, account)
	}
	l.balances[key] = newBalance
	l.totalDepositedUsd = l.totalDepositedUsd.Sub(usdValue)
	l.depositCount--
	return nil
}

// ApplyWithdrawal atomically debits the account and increments the withdraw
// counter. The global USD total is deliberately untouched.
func (l *Ledger) ApplyWithdrawal(denom, account string, amount sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrNegativeAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{denom, account}
	balance := l.entry(key)
	if balance.LT(amount) {
		return sdkmath.ZeroInt(), &types.InsufficientBalanceError{Balance: balance, Requested: amount}
	}
	newBalance := balance.Sub(amount)
	l.balances[key] = newBalance
	l.withdrawCount++
	return newBalance, nil
}

// UnwindWithdrawal reverses a previously applied withdrawal after a failed
// external transfer-out.
func (l *Ledger) UnwindWithdrawal(denom, account string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{denom, account}
	l.balances[key] = l.entry(key).Add(amount)
	l.withdrawCount--
}

// entry returns the balance for key, zero when absent. Caller must hold the lock.
func (l *Ledger) entry(key balanceKey) sdkmath.Int {
	if bal, ok := l.balances[key]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// TotalDepositedUsd returns the accumulated usd6 total.
func (l *Ledger) TotalDepositedUsd() sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalDepositedUsd
}

// BankCapUsd returns the immutable cap in usd6 units.
func (l *Ledger) BankCapUsd() sdkmath.Int {
	return l.bankCapUsd
}

// DepositCount returns the number of completed deposits.
func (l *Ledger) DepositCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.depositCount
}

// WithdrawCount returns the number of completed withdrawals.
func (l *Ledger) WithdrawCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.withdrawCount
}

// Entry is one persisted balance row, used when saving/restoring state.
type Entry struct {
	Denom   string
	Account string
	Balance sdkmath.Int
}

// Entries returns a copy of every balance row.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.balances))
	for key, bal := range l.balances {
		out = append(out, Entry{Denom: key.denom, Account: key.account, Balance: bal})
	}
	return out
}

// Restore installs persisted state at boot, before the engine starts serving.
func (l *Ledger) Restore(entries []Entry, totalDepositedUsd sdkmath.Int, depositCount, withdrawCount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if totalDepositedUsd.IsNil() || totalDepositedUsd.IsNegative() {
		return ErrNegativeAmount
	}
	if totalDepositedUsd.GT(l.bankCapUsd) {
		return fmt.Errorf("persisted total %s usd6 exceeds cap %s usd6", totalDepositedUsd, l.bankCapUsd)
	}
	for _, e := range entries {
		if e.Balance.IsNil() || e.Balance.IsNegative() {
			return fmt.Errorf("%w: %s/%s", ErrNegativeAmount, e.Denom, e.Account)
		}
		l.balances[balanceKey{e.Denom, e.Account}] = e.Balance
	}
	l.totalDepositedUsd = totalDepositedUsd
	l.depositCount = depositCount
	l.withdrawCount = withdrawCount
	return nil
}
