package vault

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultd/internal/auth"
	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/oracle"
	"github.com/custodia-labs/vaultd/internal/registry"
	"github.com/custodia-labs/vaultd/internal/transfer"
	"github.com/custodia-labs/vaultd/internal/types"
)

const (
	admin = "vault-admin"
	alice = "alice"
	bob   = "bob"
)

// oneEth is one native unit at 18 decimals.
var oneEth = sdkmath.NewIntWithDecimal(1, 18)

type fixture struct {
	engine    *Engine
	registry  *registry.Registry
	ledger    *ledger.Ledger
	source    *oracle.StaticSource
	transfers *transfer.MockService
}

// newFixture wires an engine with a 10,000.000000 usd6 cap, a native asset
// priced at 2000 USD, and a supported 6-decimal token priced at 1 USD.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	source := oracle.NewStaticSource()
	source.Set("ETH", sdkmath.NewInt(2000_00000000), 8)
	source.Set("USDC", sdkmath.NewInt(1_00000000), 8)

	reg := registry.New(auth.NewRoleTable(admin), nil, nil, "ETH", oneEth.MulRaw(2))
	require.NoError(t, reg.Configure(admin, "uusdc", true, 6, sdkmath.NewInt(500_000000), "USDC"))

	led, err := ledger.New(sdkmath.NewInt(10_000_000000))
	require.NoError(t, err)

	transfers := transfer.NewMockService()
	engine, err := NewEngine(Config{
		Registry:  reg,
		Ledger:    led,
		Oracle:    oracle.NewAdapter(source),
		Transfers: transfers,
	})
	require.NoError(t, err)

	return &fixture{engine: engine, registry: reg, ledger: led, source: source, transfers: transfers}
}

func TestDepositNative(t *testing.T) {
	f := newFixture(t)

	ev, err := f.engine.DepositNative(alice, oneEth)
	require.NoError(t, err)
	require.Equal(t, types.NativeDenom, ev.Denom)
	require.Equal(t, "2000000000", ev.UsdValue.String())
	require.True(t, ev.NewBalance.Equal(oneEth))
	require.NotEmpty(t, ev.OperationID)

	require.Equal(t, "2000000000", f.ledger.TotalDepositedUsd().String())
	require.Equal(t, uint64(1), f.ledger.DepositCount())
	// Native units arrive with the call; no transfer-in happens.
	require.Empty(t, f.transfers.Movements)
}

func TestDepositAssetPullsFromDepositor(t *testing.T) {
	f := newFixture(t)

	amount := sdkmath.NewInt(250_000000) // 250 USDC
	ev, err := f.engine.DepositAsset(alice, "uusdc", amount)
	require.NoError(t, err)
	require.Equal(t, "250000000", ev.UsdValue.String())

	require.Len(t, f.transfers.Movements, 1)
	mv := f.transfers.Movements[0]
	require.True(t, mv.Inbound)
	require.Equal(t, "uusdc", mv.Denom)
	require.Equal(t, alice, mv.Account)
}

func TestDepositTotalsAreSumOfDepositTimeValuations(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.DepositAsset(alice, "uusdc", sdkmath.NewInt(100_000000))
	require.NoError(t, err)

	// Price doubles; later deposits are valued at the new price while the
	// earlier contribution keeps its historical valuation.
	f.source.Set("USDC", sdkmath.NewInt(2_00000000), 8)
	_, err = f.engine.DepositAsset(bob, "uusdc", sdkmath.NewInt(100_000000))
	require.NoError(t, err)

	require.Equal(t, "300000000", f.ledger.TotalDepositedUsd().String())
	require.True(t, f.ledger.TotalDepositedUsd().LTE(f.ledger.BankCapUsd()))
}

func TestDepositPreconditions(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.DepositNative(alice, sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = f.engine.DepositAsset(alice, "unknown", sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrUnsupportedToken)

	// The native sentinel is rejected on the asset path.
	_, err = f.engine.DepositAsset(alice, types.NativeDenom, sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrUnsupportedToken)

	// An asset configured but not supported is rejected too.
	require.NoError(t, f.registry.Configure(admin, "upaused", false, 6, sdkmath.NewInt(1), "USDC"))
	_, err = f.engine.DepositAsset(alice, "upaused", sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrUnsupportedToken)

	require.Equal(t, uint64(0), f.ledger.DepositCount())
	require.True(t, f.ledger.TotalDepositedUsd().IsZero())
}

// A zero or negative amount is a zero-amount error even when the denom is
// unknown or the native sentinel; the amount check precedes the denom lookup.
func TestZeroAmountRejectedBeforeDenomChecks(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.DepositAsset(alice, "unknown", sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = f.engine.DepositAsset(alice, types.NativeDenom, sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = f.engine.WithdrawAsset(alice, "unknown", sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrZeroAmount)

	_, err = f.engine.WithdrawAsset(alice, "unknown", sdkmath.NewInt(-5))
	require.ErrorIs(t, err, types.ErrZeroAmount)

	require.Equal(t, uint64(0), f.ledger.DepositCount())
	require.Equal(t, uint64(0), f.ledger.WithdrawCount())
	require.True(t, f.ledger.TotalDepositedUsd().IsZero())
}

func TestDepositOracleFailuresPropagate(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.registry.Configure(admin, "unofeed", true, 6, sdkmath.NewInt(1), ""))
	_, err := f.engine.DepositAsset(alice, "unofeed", sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrPriceFeedNotSet)

	f.source.Set("USDC", sdkmath.ZeroInt(), 8)
	_, err = f.engine.DepositAsset(alice, "uusdc", sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrPriceNegative)

	require.True(t, f.ledger.TotalDepositedUsd().IsZero())
	require.Empty(t, f.transfers.Movements)
}

func TestDepositCapExceededIsAtomic(t *testing.T) {
	f := newFixture(t)

	// 4 ETH = 8,000 USD fits under the 10,000 cap.
	_, err := f.engine.DepositNative(alice, oneEth.MulRaw(4))
	require.NoError(t, err)

	// 2 more ETH would attempt 12,000 USD.
	_, err = f.engine.DepositNative(bob, oneEth.MulRaw(2))
	require.ErrorIs(t, err, types.ErrCapExceeded)

	var capErr *types.CapExceededError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, "12000000000", capErr.AttemptedUsd.String())
	require.Equal(t, "10000000000", capErr.BankCapUsd.String())

	require.True(t, f.ledger.Balance(types.NativeDenom, bob).IsZero())
	require.Equal(t, "8000000000", f.ledger.TotalDepositedUsd().String())
	require.Equal(t, uint64(1), f.ledger.DepositCount())
}

func TestDepositPullFailureUnwinds(t *testing.T) {
	f := newFixture(t)
	f.transfers.FailPull = true

	_, err := f.engine.DepositAsset(alice, "uusdc", sdkmath.NewInt(100_000000))
	require.Error(t, err)
	require.ErrorIs(t, err, transfer.ErrTransferRejected)

	require.True(t, f.ledger.Balance("uusdc", alice).IsZero())
	require.True(t, f.ledger.TotalDepositedUsd().IsZero())
	require.Equal(t, uint64(0), f.ledger.DepositCount())
}

func TestWithdrawNative(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositNative(alice, oneEth.MulRaw(2))
	require.NoError(t, err)

	ev, err := f.engine.WithdrawNative(alice, oneEth)
	require.NoError(t, err)
	require.True(t, ev.NewBalance.Equal(oneEth))
	require.Equal(t, "2000000000", ev.UsdValue.String())

	require.Equal(t, uint64(1), f.ledger.WithdrawCount())
	// totalDepositedUsd is a cumulative-deposit ceiling; it never decreases.
	require.Equal(t, "4000000000", f.ledger.TotalDepositedUsd().String())

	require.Len(t, f.transfers.Movements, 1)
	require.False(t, f.transfers.Movements[0].Inbound)
}

func TestWithdrawUsdValueRecomputedAtWithdrawalTime(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositNative(alice, oneEth)
	require.NoError(t, err)

	// Price moved from 2000 to 3000 between deposit and withdrawal.
	f.source.Set("ETH", sdkmath.NewInt(3000_00000000), 8)

	ev, err := f.engine.WithdrawNative(alice, oneEth)
	require.NoError(t, err)
	require.Equal(t, "3000000000", ev.UsdValue.String())
	require.Equal(t, "2000000000", f.ledger.TotalDepositedUsd().String())
}

func TestWithdrawLimitEnforcedEvenWithSufficientBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositNative(alice, oneEth.MulRaw(4))
	require.NoError(t, err)

	// Limit is 2 ETH; the balance of 4 ETH does not matter.
	_, err = f.engine.WithdrawNative(alice, oneEth.MulRaw(3))
	require.ErrorIs(t, err, types.ErrWithdrawLimitExceeded)

	var limErr *types.WithdrawLimitError
	require.ErrorAs(t, err, &limErr)
	require.True(t, limErr.Requested.Equal(oneEth.MulRaw(3)))
	require.True(t, limErr.Limit.Equal(oneEth.MulRaw(2)))

	require.True(t, f.ledger.Balance(types.NativeDenom, alice).Equal(oneEth.MulRaw(4)))
	require.Equal(t, uint64(0), f.ledger.WithdrawCount())
}

func TestWithdrawInsufficientBalanceWithinLimit(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositNative(alice, oneEth)
	require.NoError(t, err)

	// Within the 2 ETH limit but above the 1 ETH balance.
	_, err = f.engine.WithdrawNative(alice, oneEth.MulRaw(2))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	var balErr *types.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	require.True(t, balErr.Balance.Equal(oneEth))
	require.True(t, balErr.Requested.Equal(oneEth.MulRaw(2)))
}

func TestWithdrawNativePushFailureUnwinds(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositNative(alice, oneEth)
	require.NoError(t, err)
	f.transfers.FailPush = true

	_, err = f.engine.WithdrawNative(alice, oneEth)
	require.ErrorIs(t, err, types.ErrNativeTransferFailed)

	// Debit-then-failed-transfer is never observable.
	require.True(t, f.ledger.Balance(types.NativeDenom, alice).Equal(oneEth))
	require.Equal(t, uint64(0), f.ledger.WithdrawCount())
}

func TestReentrantCallFromTransferIsRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositNative(alice, oneEth)
	require.NoError(t, err)

	var nestedErr error
	f.transfers.OnPush = func(string, string, sdkmath.Int) {
		_, nestedErr = f.engine.DepositNative(bob, oneEth)
	}

	_, err = f.engine.WithdrawNative(alice, oneEth)
	require.NoError(t, err)
	require.ErrorIs(t, nestedErr, types.ErrReentrantCall)

	// The nested call applied nothing.
	require.True(t, f.ledger.Balance(types.NativeDenom, bob).IsZero())
	require.Equal(t, uint64(1), f.ledger.DepositCount())
}

func TestReentrantPullDuringDepositIsRejected(t *testing.T) {
	f := newFixture(t)

	var nestedErr error
	f.transfers.OnPull = func(string, string, sdkmath.Int) {
		_, nestedErr = f.engine.WithdrawAsset(alice, "uusdc", sdkmath.NewInt(1))
	}

	_, err := f.engine.DepositAsset(alice, "uusdc", sdkmath.NewInt(100_000000))
	require.NoError(t, err)
	require.ErrorIs(t, nestedErr, types.ErrReentrantCall)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.DepositAsset(alice, "uusdc", sdkmath.NewInt(250_000000))
	require.NoError(t, err)

	bal, err := f.engine.BalanceOf(alice, "uusdc")
	require.NoError(t, err)
	require.Equal(t, "250000000", bal.String())

	usd, err := f.engine.UsdValueOf(alice, "uusdc")
	require.NoError(t, err)
	require.Equal(t, "250000000", usd.String())

	_, err = f.engine.BalanceOf(alice, "unknown")
	require.ErrorIs(t, err, types.ErrUnsupportedToken)

	// Valuation queries can still fail on oracle errors.
	f.source.Set("USDC", sdkmath.NewInt(-1), 8)
	_, err = f.engine.UsdValueOf(alice, "uusdc")
	require.ErrorIs(t, err, types.ErrPriceNegative)

	summary := f.engine.Summarize()
	require.Equal(t, "250000000", summary.TotalDepositedUsd.String())
	require.Equal(t, "10000000000", summary.BankCapUsd.String())
	require.Equal(t, uint64(1), summary.DepositCount)
	require.Equal(t, uint64(0), summary.WithdrawCount)
}
