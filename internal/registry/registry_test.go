package registry

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vaultd/internal/auth"
	"github.com/custodia-labs/vaultd/internal/types"
)

const admin = "vault-admin"

type stubMetadata struct {
	decimals uint8
	err      error
}

func (s *stubMetadata) QueryDecimals(string) (uint8, error) { return s.decimals, s.err }

type recordingNotifier struct {
	configured []types.ConfigurationChanged
}

func (n *recordingNotifier) ConfigurationChanged(ev types.ConfigurationChanged) {
	n.configured = append(n.configured, ev)
}

func newTestRegistry(metadata MetadataService) (*Registry, *recordingNotifier) {
	notifier := &recordingNotifier{}
	r := New(auth.NewRoleTable(admin), metadata, notifier, "ETH", sdkmath.NewInt(1_000_000))
	return r, notifier
}

func TestConfigureRoundTrip(t *testing.T) {
	r, notifier := newTestRegistry(nil)

	limit := sdkmath.NewInt(500)
	require.NoError(t, r.Configure(admin, "uusdc", true, 6, limit, "USDC"))

	cfg, ok := r.Get("uusdc")
	require.True(t, ok)
	require.Equal(t, "uusdc", cfg.Denom)
	require.True(t, cfg.Supported)
	require.False(t, cfg.IsNative)
	require.Equal(t, uint8(6), cfg.Decimals)
	require.True(t, cfg.WithdrawLimit.Equal(limit))
	require.Equal(t, "USDC", cfg.PriceFeed)

	require.Len(t, notifier.configured, 1)
	require.Equal(t, "uusdc", notifier.configured[0].Denom)
}

func TestConfigureIdempotentReemitsNotification(t *testing.T) {
	r, notifier := newTestRegistry(nil)

	limit := sdkmath.NewInt(500)
	require.NoError(t, r.Configure(admin, "uusdc", true, 6, limit, "USDC"))
	require.NoError(t, r.Configure(admin, "uusdc", true, 6, limit, "USDC"))

	cfg, ok := r.Get("uusdc")
	require.True(t, ok)
	require.Equal(t, uint8(6), cfg.Decimals)
	require.Len(t, notifier.configured, 2)
}

func TestConfigureDecimalsFallback(t *testing.T) {
	t.Run("metadata answers", func(t *testing.T) {
		r, _ := newTestRegistry(&stubMetadata{decimals: 9})
		require.NoError(t, r.Configure(admin, "usol", true, 0, sdkmath.NewInt(1), "SOL"))
		cfg, _ := r.Get("usol")
		require.Equal(t, uint8(9), cfg.Decimals)
	})

	t.Run("metadata query fails", func(t *testing.T) {
		r, _ := newTestRegistry(&stubMetadata{err: errors.New("not introspectable")})
		require.NoError(t, r.Configure(admin, "uobscure", true, 0, sdkmath.NewInt(1), "OBS"))
		cfg, _ := r.Get("uobscure")
		require.Equal(t, uint8(types.DefaultAssetDecimals), cfg.Decimals)
	})

	t.Run("no metadata service", func(t *testing.T) {
		r, _ := newTestRegistry(nil)
		require.NoError(t, r.Configure(admin, "uplain", true, 0, sdkmath.NewInt(1), "PLN"))
		cfg, _ := r.Get("uplain")
		require.Equal(t, uint8(types.DefaultAssetDecimals), cfg.Decimals)
	})
}

func TestConfigureRejectsNativeSentinel(t *testing.T) {
	r, notifier := newTestRegistry(nil)
	err := r.Configure(admin, types.NativeDenom, true, 18, sdkmath.NewInt(1), "ETH")
	require.ErrorIs(t, err, types.ErrUnsupportedToken)
	require.Empty(t, notifier.configured)

	native := r.Native()
	require.True(t, native.IsNative)
	require.True(t, native.Supported)
}

func TestConfigureRequiresAdminRole(t *testing.T) {
	r, notifier := newTestRegistry(nil)
	err := r.Configure("random-caller", "uusdc", true, 6, sdkmath.NewInt(1), "USDC")
	require.ErrorIs(t, err, types.ErrUnauthorized)
	require.Empty(t, notifier.configured)

	_, ok := r.Get("uusdc")
	require.False(t, ok)
}
