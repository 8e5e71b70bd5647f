/*

Asset registry: the per-asset configuration table and its single admin-gated
mutation path. The native currency entry is fixed at initialization under the
reserved sentinel denom and can never be re-configured through Configure.

*/

package registry

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/custodia-labs/vaultd/internal/auth"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/types"
)

var registryLogger = logger.GetForComponent("asset_registry")

// MetadataService is the optional collaborator used to query an asset's own
// declared precision when Configure is called with decimals=0.
type MetadataService interface {
	QueryDecimals(denom string) (uint8, error)
}

// Notifier receives the configuration-changed notification.
type Notifier interface {
	ConfigurationChanged(types.ConfigurationChanged)
}

// Registry holds all asset configuration.
type Registry struct {
	mu         sync.RWMutex
	assets     map[string]types.AssetConfig
	authorizer auth.Authorizer
	metadata   MetadataService
	notifier   Notifier
}

// New creates a registry with the native asset fixed from the initialization
// parameters. The native price feed and per-withdrawal limit come from the
// deployment configuration and are not reachable through Configure.
func New(authorizer auth.Authorizer, metadata MetadataService, notifier Notifier, nativePriceFeed string, nativeWithdrawLimit sdkmath.Int) *Registry {
	r := &Registry{
		assets:     make(map[string]types.AssetConfig),
		authorizer: authorizer,
		metadata:   metadata,
		notifier:   notifier,
	}
	r.assets[types.NativeDenom] = types.AssetConfig{
		Denom:         types.NativeDenom,
		Supported:     true,
		IsNative:      true,
		Decimals:      types.DefaultAssetDecimals,
		WithdrawLimit: nativeWithdrawLimit,
		PriceFeed:     nativePriceFeed,
	}
	return r
}

// Configure creates or replaces the configuration for a non-native asset.
// Idempotent: re-invoking with identical parameters has no side effect besides
// re-emitting the configuration-changed notification.
func (r *Registry) Configure(identity, denom string, supported bool, decimals uint8, withdrawLimit sdkmath.Int, priceFeed string) error {
	if !r.authorizer.Authorize(identity, auth.ActionConfigureAsset) {
		return fmt.Errorf("%w: %s cannot %s", types.ErrUnauthorized, identity, auth.ActionConfigureAsset)
	}
	if denom == types.NativeDenom {
		return fmt.Errorf("%w: native asset is fixed at initialization", types.ErrUnsupportedToken)
	}
	if denom == "" {
		return fmt.Errorf("%w: empty denom", types.ErrUnsupportedToken)
	}

	if decimals == 0 {
		decimals = r.resolveDecimals(denom)
	}

	cfg := types.AssetConfig{
		Denom:         denom,
		Supported:     supported,
		IsNative:      false,
		Decimals:      decimals,
		WithdrawLimit: withdrawLimit,
		PriceFeed:     priceFeed,
	}

	r.mu.Lock()
	r.assets[denom] = cfg
	r.mu.Unlock()

	registryLogger.Info().
		Str("denom", denom).
		Bool("supported", supported).
		Uint8("decimals", decimals).
		Str("withdrawLimit", withdrawLimit.String()).
		Str("priceFeed", priceFeed).
		Msg("Asset configured")

	if r.notifier != nil {
		r.notifier.ConfigurationChanged(types.ConfigurationChanged{
			Denom:         denom,
			Supported:     supported,
			Decimals:      decimals,
			WithdrawLimit: withdrawLimit,
			PriceFeed:     priceFeed,
			Timestamp:     time.Now(),
		})
	}
	return nil
}

// resolveDecimals queries the asset's declared precision, defaulting to 18 when
// the metadata service is absent or the query fails. Many fungible tokens are
// introspectable, but not universally so.
func (r *Registry) resolveDecimals(denom string) uint8 {
	if r.metadata != nil {
		decimals, err := r.metadata.QueryDecimals(denom)
		if err == nil && decimals > 0 {
			return decimals
		}
		registryLogger.Warn().
			Err(err).
			Str("denom", denom).
			Uint8("fallback", types.DefaultAssetDecimals).
			Msg("Decimals query failed, using default")
	}
	return types.DefaultAssetDecimals
}

// Get returns the configuration for a denom.
func (r *Registry) Get(denom string) (types.AssetConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.assets[denom]
	return cfg, ok
}

// Native returns the native asset's configuration.
func (r *Registry) Native() types.AssetConfig {
	cfg, _ := r.Get(types.NativeDenom)
	return cfg
}

// All returns a copy of every configured asset.
func (r *Registry) All() []types.AssetConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.AssetConfig, 0, len(r.assets))
	for _, cfg := range r.assets {
		out = append(out, cfg)
	}
	return out
}

// Restore installs a previously persisted non-native asset configuration
// without emitting a notification. Used only while reloading state at boot.
func (r *Registry) Restore(cfg types.AssetConfig) {
	if cfg.Denom == types.NativeDenom {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[cfg.Denom] = cfg
}
