/*

Persistence for the vault's accounting state. The in-memory ledger is
authoritative while the process runs; these functions write it behind every
operation and restore it at boot. NUMERIC(78,0) columns hold the full range of
the big-integer amounts without loss, scanned through their string form.

*/

package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/custodia-labs/vaultd/internal/ledger"
	"github.com/custodia-labs/vaultd/internal/types"
)

// Store implements the vault engine's ReceiptSink against the global DB.
type Store struct{}

// NewStore returns a Store; InitDB must have succeeded first.
func NewStore() (*Store, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return &Store{}, nil
}

// scanInt parses a NUMERIC column read as string into an sdkmath.Int.
func scanInt(raw string) (sdkmath.Int, error) {
	value, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid integer value in database: %q", raw)
	}
	return value, nil
}

// InitVaultState inserts the single global state row if it does not exist and
// verifies the persisted cap matches the configured one. The cap is immutable:
// a mismatch means the operator changed configuration against a live ledger.
func InitVaultState(bankCapUsd sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	insertSQL := `
		INSERT INTO vault_state (id, bank_cap_usd, total_deposited_usd)
		VALUES (1, $1, 0)
		ON CONFLICT (id) DO NOTHING;`
	if _, err := DB.Exec(insertSQL, bankCapUsd.String()); err != nil {
		return fmt.Errorf("failed to initialize vault state: %w", err)
	}

	var storedCap string
	if err := DB.QueryRow(`SELECT bank_cap_usd FROM vault_state WHERE id = 1;`).Scan(&storedCap); err != nil {
		return fmt.Errorf("failed to read persisted bank cap: %w", err)
	}
	stored, err := scanInt(storedCap)
	if err != nil {
		return err
	}
	if !stored.Equal(bankCapUsd) {
		return fmt.Errorf("persisted bank cap %s usd6 does not match configured cap %s usd6", stored, bankCapUsd)
	}

	log.Info().Str("bankCapUsd", bankCapUsd.String()).Msg("Vault state initialized")
	return nil
}

// SaveVaultState persists the global accumulator and counters.
func (s *Store) SaveVaultState(totalDepositedUsd sdkmath.Int, depositCount, withdrawCount uint64) error {
	updateSQL := `
		UPDATE vault_state
		SET total_deposited_usd = $1,
		    deposit_count = $2,
		    withdraw_count = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`
	result, err := DB.Exec(updateSQL, totalDepositedUsd.String(), int64(depositCount), int64(withdrawCount))
	if err != nil {
		return fmt.Errorf("failed to save vault state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("vault state row missing; was InitVaultState run?")
	}
	return nil
}

// LoadVaultState reads the persisted global state. sql.ErrNoRows means a fresh
// deployment.
func LoadVaultState() (totalDepositedUsd sdkmath.Int, depositCount, withdrawCount uint64, err error) {
	if DB == nil {
		return sdkmath.ZeroInt(), 0, 0, fmt.Errorf("database not initialized")
	}

	var totalRaw string
	var deposits, withdrawals int64
	row := DB.QueryRow(`SELECT total_deposited_usd, deposit_count, withdraw_count FROM vault_state WHERE id = 1;`)
	if err = row.Scan(&totalRaw, &deposits, &withdrawals); err != nil {
		if err == sql.ErrNoRows {
			return sdkmath.ZeroInt(), 0, 0, nil
		}
		return sdkmath.ZeroInt(), 0, 0, fmt.Errorf("failed to load vault state: %w", err)
	}

	totalDepositedUsd, err = scanInt(totalRaw)
	if err != nil {
		return sdkmath.ZeroInt(), 0, 0, err
	}
	return totalDepositedUsd, uint64(deposits), uint64(withdrawals), nil
}

// SaveBalance upserts one (denom, account) balance row.
func (s *Store) SaveBalance(denom, account string, balance sdkmath.Int) error {
	upsertSQL := `
		INSERT INTO balances (denom, account, balance, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (denom, account)
		DO UPDATE SET balance = EXCLUDED.balance, updated_at = CURRENT_TIMESTAMP;`
	if _, err := DB.Exec(upsertSQL, denom, account, balance.String()); err != nil {
		return fmt.Errorf("failed to save balance for %s/%s: %w", denom, account, err)
	}
	return nil
}

// LoadBalances reads every persisted balance row for a ledger restore.
func LoadBalances() ([]ledger.Entry, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT denom, account, balance FROM balances;`)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var denom, account, balanceRaw string
		if err := rows.Scan(&denom, &account, &balanceRaw); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		balance, err := scanInt(balanceRaw)
		if err != nil {
			return nil, fmt.Errorf("balance for %s/%s: %w", denom, account, err)
		}
		entries = append(entries, ledger.Entry{Denom: denom, Account: account, Balance: balance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance rows: %w", err)
	}
	return entries, nil
}

// InsertReceipt appends one operation receipt.
func (s *Store) InsertReceipt(r types.OperationReceipt) error {
	insertSQL := `
		INSERT INTO operation_receipts (
			operation_id, op_timestamp, op_type, denom, account, amount, usd_value, success, message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	_, err := DB.Exec(insertSQL,
		r.OperationID, r.Timestamp, r.OpType, r.Denom, r.Account,
		r.Amount.String(), r.UsdValue.String(), r.Success, r.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation receipt: %w", err)
	}
	return nil
}

// SaveAssetConfig upserts one asset configuration row.
func SaveAssetConfig(cfg types.AssetConfig) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	upsertSQL := `
		INSERT INTO asset_configs (denom, supported, is_native, decimals, withdraw_limit, price_feed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (denom)
		DO UPDATE SET
			supported = EXCLUDED.supported,
			decimals = EXCLUDED.decimals,
			withdraw_limit = EXCLUDED.withdraw_limit,
			price_feed = EXCLUDED.price_feed,
			updated_at = CURRENT_TIMESTAMP;`
	_, err := DB.Exec(upsertSQL, cfg.Denom, cfg.Supported, cfg.IsNative, int16(cfg.Decimals), cfg.WithdrawLimit.String(), cfg.PriceFeed)
	if err != nil {
		return fmt.Errorf("failed to save asset config for %s: %w", cfg.Denom, err)
	}
	return nil
}

// LoadAssetConfigs reads every persisted asset configuration.
func LoadAssetConfigs() ([]types.AssetConfig, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT denom, supported, is_native, decimals, withdraw_limit, price_feed FROM asset_configs;`)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset configs: %w", err)
	}
	defer rows.Close()

	var configs []types.AssetConfig
	for rows.Next() {
		var cfg types.AssetConfig
		var decimals int16
		var limitRaw string
		if err := rows.Scan(&cfg.Denom, &cfg.Supported, &cfg.IsNative, &decimals, &limitRaw, &cfg.PriceFeed); err != nil {
			return nil, fmt.Errorf("failed to scan asset config row: %w", err)
		}
		cfg.Decimals = uint8(decimals)
		cfg.WithdrawLimit, err = scanInt(limitRaw)
		if err != nil {
			return nil, fmt.Errorf("withdraw limit for %s: %w", cfg.Denom, err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate asset config rows: %w", err)
	}
	return configs, nil
}
