package main

import (
	"os"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/custodia-labs/vaultd/internal/auth"
	"github.com/custodia-labs/vaultd/internal/config"
	"github.com/custodia-labs/vaultd/internal/events"
	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/oracle"
	"github.com/custodia-labs/vaultd/internal/registry"
	"github.com/custodia-labs/vaultd/internal/state"
	"github.com/custodia-labs/vaultd/internal/transfer"
	"github.com/custodia-labs/vaultd/internal/vault"
	"github.com/custodia-labs/vaultd/internal/web"
)

// main is the entry point for the vault service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Custodial vault starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: config.GetEnvAsIntWithDefault("DB_PORT", 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	if err := state.InitVaultState(config.BankCapUsd); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault state")
	}

	// --- 2. Core Wiring ---
	authorizer := auth.NewRoleTable(config.AdminIdentity)
	notifier := events.NewLogNotifier()

	reg := registry.New(authorizer, nil, notifier, config.NativePriceFeed, config.NativeWithdrawLimit)
	restoreAssetConfigs(reg)

	led, err := ledger.New(config.BankCapUsd)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}
	restoreLedger(led)

	var source oracle.PriceSource
	if config.PriceAPIBaseURL != "" {
		httpSource, err := oracle.NewHTTPSource(config.PriceAPIBaseURL, config.PriceAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create HTTP price source")
		}
		source = httpSource
		log.Info().Str("baseURL", config.PriceAPIBaseURL).Msg("Using HTTP price source")
	} else {
		log.Warn().Msg("PRICE_API_BASE_URL not set; using an empty static price source. Valuation will fail until prices are seeded.")
		source = oracle.NewStaticSource()
	}

	store, err := state.NewStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create state store")
	}

	engine, err := vault.NewEngine(vault.Config{
		Registry:  reg,
		Ledger:    led,
		Oracle:    oracle.NewAdapter(source),
		Transfers: transferService(),
		Notifier:  notifier,
		Sink:      store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault engine")
	}

	// --- 3. Serve ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engine, reg)
	log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting vault API")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

// restoreAssetConfigs reloads persisted non-native asset configuration.
func restoreAssetConfigs(reg *registry.Registry) {
	configs, err := state.LoadAssetConfigs()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted asset configs")
	}
	for _, cfg := range configs {
		reg.Restore(cfg)
	}
	log.Info().Int("assets", len(configs)).Msg("Restored asset configuration")
}

// restoreLedger reloads persisted balances and the global accumulator.
func restoreLedger(led *ledger.Ledger) {
	entries, err := state.LoadBalances()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted balances")
	}
	total, deposits, withdrawals, err := state.LoadVaultState()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted vault state")
	}
	if total.IsNil() {
		total = sdkmath.ZeroInt()
	}
	if err := led.Restore(entries, total, deposits, withdrawals); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore ledger")
	}
	log.Info().
		Int("entries", len(entries)).
		Str("totalDepositedUsd", total.String()).
		Uint64("depositCount", deposits).
		Uint64("withdrawCount", withdrawals).
		Msg("Restored ledger state")
}

// transferService selects the asset-transfer collaborator. Outside of a real
// settlement integration the mock service keeps deposits and withdrawals
// observable end to end; it must be replaced before custody of real funds.
func transferService() transfer.Service {
	if os.Getenv("VAULT_MODE") == "live" {
		log.Fatal().Msg("VAULT_MODE=live requires a settlement integration; none is configured. Halting to prevent accidental execution.")
	}
	log.Warn().Msg("Running with the recording transfer service. No real value moves.")
	return transfer.NewMockService()
}
