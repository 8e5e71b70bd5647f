package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// BankCapUsd is the immutable global capacity ceiling in canonical 6-decimal
	// USD units. Must be positive.
	BankCapUsd sdkmath.Int

	// AdminIdentity is the deploying identity granted the admin roles.
	AdminIdentity string

	// NativePriceFeed is the oracle feed identifier for the native currency.
	NativePriceFeed string
	// NativeWithdrawLimit is the per-withdrawal limit for the native currency,
	// in native base units.
	NativeWithdrawLimit sdkmath.Int

	// PriceAPIBaseURL is the spot-price endpoint for the HTTP oracle source.
	// When empty, only statically seeded prices are available.
	PriceAPIBaseURL string
	// PriceAPIKey authenticates against the price API.
	PriceAPIKey string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// The vault parameters are required; the price API settings are optional.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	BankCapUsd, err = getEnvAsInt("VAULT_BANK_CAP_USD")
	if err != nil {
		return err
	}
	if !BankCapUsd.IsPositive() {
		return errors.New("VAULT_BANK_CAP_USD must be positive")
	}

	AdminIdentity, err = getEnv("VAULT_ADMIN")
	if err != nil {
		return err
	}

	NativePriceFeed, err = getEnv("NATIVE_PRICE_FEED")
	if err != nil {
		return err
	}

	NativeWithdrawLimit, err = getEnvAsInt("NATIVE_WITHDRAW_LIMIT")
	if err != nil {
		return err
	}
	if NativeWithdrawLimit.IsNegative() {
		return errors.New("NATIVE_WITHDRAW_LIMIT must not be negative")
	}

	PriceAPIBaseURL = os.Getenv("PRICE_API_BASE_URL")
	PriceAPIKey = os.Getenv("PRICE_API_KEY")

	log.Debug().
		Str("BankCapUsd", BankCapUsd.String()).
		Str("AdminIdentity", AdminIdentity).
		Str("NativePriceFeed", NativePriceFeed).
		Str("NativeWithdrawLimit", NativeWithdrawLimit.String()).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an sdkmath.Int. Returns error
// if not set or invalid.
func getEnvAsInt(key string) (sdkmath.Int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok {
		return sdkmath.ZeroInt(), errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}

// GetEnvAsIntWithDefault retrieves an optional integer environment variable.
func GetEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
