/*

JSON API for the vault: deposit/withdraw entry points, balance and valuation
queries, the global accounting summary, and the admin asset-configuration path.
The caller identity for admin routes comes from the X-Vault-Identity header;
role checks happen in the registry, not here.

*/

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/registry"
	"github.com/custodia-labs/vaultd/internal/state"
	"github.com/custodia-labs/vaultd/internal/types"
	"github.com/custodia-labs/vaultd/internal/utils"
	"github.com/custodia-labs/vaultd/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

const identityHeader = "X-Vault-Identity"

// WebServer handles HTTP requests against the vault engine
type WebServer struct {
	router   *mux.Router
	port     string
	engine   *vault.Engine
	registry *registry.Registry
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, engine *vault.Engine, reg *registry.Registry) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		engine:   engine,
		registry: reg,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/balance/{denom}", ws.handleGetBalance).Methods("GET")
	api.HandleFunc("/value/{denom}/{account}", ws.handleGetUsdValue).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/assets", ws.handleListAssets).Methods("GET")
	api.HandleFunc("/assets", ws.handleConfigureAsset).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// operationRequest is the body for deposit and withdraw. An empty denom means
// the native currency.
type operationRequest struct {
	Account string `json:"account"`
	Denom   string `json:"denom,omitempty"`
	Amount  string `json:"amount"`
}

// parseOperation decodes and validates an operation request body.
func (ws *WebServer) parseOperation(w http.ResponseWriter, r *http.Request) (operationRequest, sdkmath.Int, bool) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return req, sdkmath.ZeroInt(), false
	}
	if req.Account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "account is required")
		return req, sdkmath.ZeroInt(), false
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "amount must be a base-10 integer string")
		return req, sdkmath.ZeroInt(), false
	}
	return req, amount, true
}

// handleDeposit credits a deposit for the caller
func (ws *WebServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.parseOperation(w, r)
	if !ok {
		return
	}

	var ev types.DepositCompleted
	var err error
	if req.Denom == "" || req.Denom == types.NativeDenom {
		ev, err = ws.engine.DepositNative(req.Account, amount)
	} else {
		ev, err = ws.engine.DepositAsset(req.Account, req.Denom, amount)
	}
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, ev)
}

// handleWithdraw debits a withdrawal for the caller
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := ws.parseOperation(w, r)
	if !ok {
		return
	}

	var ev types.WithdrawalCompleted
	var err error
	if req.Denom == "" || req.Denom == types.NativeDenom {
		ev, err = ws.engine.WithdrawNative(req.Account, amount)
	} else {
		ev, err = ws.engine.WithdrawAsset(req.Account, req.Denom, amount)
	}
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, ev)
}

// handleGetBalance returns the caller's balance for an asset
func (ws *WebServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	denom := mux.Vars(r)["denom"]
	account := r.URL.Query().Get("account")
	if account == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "account query parameter is required")
		return
	}

	balance, err := ws.engine.BalanceOf(account, denom)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"denom":   denom,
		"account": account,
		"balance": balance.String(),
	})
}

// handleGetUsdValue returns the USD-valued balance for any account and asset
func (ws *WebServer) handleGetUsdValue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	denom := vars["denom"]
	account := vars["account"]

	usdValue, err := ws.engine.UsdValueOf(account, denom)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"denom":     denom,
		"account":   account,
		"usd_value": usdValue.String(),
	})
}

// handleGetVaultSummary returns the global accounting state. The exact amounts
// are strings in usd6 units; the *_display fields are float approximations for
// dashboards and are never fed back into accounting.
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	summary := ws.engine.Summarize()

	response := map[string]interface{}{
		"total_deposited_usd": summary.TotalDepositedUsd.String(),
		"bank_cap_usd":        summary.BankCapUsd.String(),
		"deposit_count":       summary.DepositCount,
		"withdraw_count":      summary.WithdrawCount,
	}
	if totalDisplay, err := utils.SDKIntToFloat64(summary.TotalDepositedUsd, types.UsdDecimals); err == nil {
		response["total_deposited_usd_display"] = totalDisplay
	}
	if capDisplay, err := utils.SDKIntToFloat64(summary.BankCapUsd, types.UsdDecimals); err == nil {
		response["bank_cap_usd_display"] = capDisplay
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleListAssets returns every configured asset
func (ws *WebServer) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets := ws.registry.All()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
		"count":  len(assets),
	})
}

// configureAssetRequest is the admin body for asset configuration.
type configureAssetRequest struct {
	Denom         string `json:"denom"`
	Supported     bool   `json:"supported"`
	Decimals      uint8  `json:"decimals"`
	WithdrawLimit string `json:"withdraw_limit"`
	PriceFeed     string `json:"price_feed"`
}

// handleConfigureAsset is the admin-gated asset configuration path
func (ws *WebServer) handleConfigureAsset(w http.ResponseWriter, r *http.Request) {
	identity := r.Header.Get(identityHeader)
	if identity == "" {
		ws.writeErrorResponse(w, http.StatusUnauthorized, identityHeader+" header is required")
		return
	}

	var req configureAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	limit, ok := sdkmath.NewIntFromString(req.WithdrawLimit)
	if !ok || limit.IsNegative() {
		ws.writeErrorResponse(w, http.StatusBadRequest, "withdraw_limit must be a non-negative base-10 integer string")
		return
	}

	if err := ws.registry.Configure(identity, req.Denom, req.Supported, req.Decimals, limit, req.PriceFeed); err != nil {
		ws.writeOperationError(w, err)
		return
	}

	cfg, _ := ws.registry.Get(req.Denom)
	if err := state.SaveAssetConfig(cfg); err != nil {
		webLogger.Error().Err(err).Str("denom", cfg.Denom).Msg("Failed to persist asset config")
	}

	ws.writeJSONResponse(w, http.StatusOK, cfg)
}

// handleHealth returns server and database health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	summary := ws.engine.Summarize()

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
		},
		"component": map[string]interface{}{
			"name":    "vaultd-custodial-vault",
			"version": "1.0.0",
		},
		"vault_status": map[string]interface{}{
			"database_healthy":    dbHealthy,
			"total_deposited_usd": summary.TotalDepositedUsd.String(),
			"bank_cap_usd":        summary.BankCapUsd.String(),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// writeOperationError maps vault error kinds onto HTTP status codes
func (ws *WebServer) writeOperationError(w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case errors.Is(err, types.ErrZeroAmount), errors.Is(err, types.ErrUnsupportedToken):
		statusCode = http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		statusCode = http.StatusForbidden
	case errors.Is(err, types.ErrCapExceeded),
		errors.Is(err, types.ErrWithdrawLimitExceeded),
		errors.Is(err, types.ErrInsufficientBalance):
		statusCode = http.StatusConflict
	case errors.Is(err, types.ErrPriceFeedNotSet), errors.Is(err, types.ErrPriceNegative):
		statusCode = http.StatusServiceUnavailable
	case errors.Is(err, types.ErrReentrantCall):
		statusCode = http.StatusServiceUnavailable
	default:
		statusCode = http.StatusInternalServerError
	}
	ws.writeErrorResponse(w, statusCode, err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+identityHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
