/*

HTTP-backed PriceSource polling a CryptoCompare-style spot price endpoint. The
upstream API reports float prices; they are converted to fixed-point integers at
FeedDecimals before anything downstream sees them, so the valuation path stays on
exact integer arithmetic.

*/

package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/custodia-labs/vaultd/internal/logger"
	"github.com/custodia-labs/vaultd/internal/utils"
)

var feedLogger = logger.GetForComponent("price_feed")

var (
	ErrAPIConfiguration = errors.New("price API configuration error")
	ErrInvalidPriceData = errors.New("invalid price data received")
)

const (
	// FeedDecimals is the fixed-point precision HTTP feed prices are reported at.
	FeedDecimals uint8 = 8

	maxRetries     = 3
	requestTimeout = 30 * time.Second
)

type spotPriceResponse struct {
	USD float64 `json:"USD"`
}

// HTTPSource fetches spot prices over HTTP. The feed identifier is the upstream
// symbol (e.g. "ETH").
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSource creates a source against the given price API base URL.
func NewHTTPSource(baseURL, apiKey string) (*HTTPSource, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrAPIConfiguration)
	}
	return &HTTPSource{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// LatestPrice implements PriceSource with a bounded retry loop.
func (h *HTTPSource) LatestPrice(feedID string) (Price, error) {
	if feedID == "" {
		return Price{}, fmt.Errorf("%w: empty feed identifier", ErrAPIConfiguration)
	}

	requestURL := fmt.Sprintf("%s?fsym=%s&tsyms=USD&api_key=%s",
		h.baseURL, url.QueryEscape(feedID), url.QueryEscape(h.apiKey))

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		feedLogger.Debug().
			Str("feed", feedID).
			Int("attempt", attempt).
			Msg("Requesting spot price")

		resp, err := h.client.Get(requestURL)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed on attempt %d: %w", attempt, err)
			feedLogger.Warn().
				Err(err).
				Str("feed", feedID).
				Int("attempt", attempt).
				Msg("Price request failed, will retry if attempts remain")
			if attempt < maxRetries {
				time.Sleep(time.Duration(attempt) * time.Second)
			}
			continue
		}

		price, err := h.processResponse(resp, feedID)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				feedLogger.Warn().
					Err(err).
					Str("feed", feedID).
					Int("attempt", attempt).
					Msg("Price response invalid, will retry if attempts remain")
				time.Sleep(time.Duration(attempt) * time.Second)
			}
			continue
		}
		return price, nil
	}

	feedLogger.Error().
		Err(lastErr).
		Str("feed", feedID).
		Int("maxRetries", maxRetries).
		Msg("All price fetch attempts failed")
	return Price{}, fmt.Errorf("failed to fetch price for %s after %d attempts: %w", feedID, maxRetries, lastErr)
}

// processResponse validates the HTTP response and converts the reported float
// into a fixed-point reading.
func (h *HTTPSource) processResponse(resp *http.Response, feedID string) (Price, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Price{}, fmt.Errorf("price API returned status %d for %s", resp.StatusCode, feedID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Price{}, fmt.Errorf("failed to read price response for %s: %w", feedID, err)
	}
	if len(body) == 0 {
		return Price{}, fmt.Errorf("%w: empty response body for %s", ErrInvalidPriceData, feedID)
	}

	var spot spotPriceResponse
	if err := json.Unmarshal(body, &spot); err != nil {
		return Price{}, fmt.Errorf("failed to parse price response for %s: %w", feedID, err)
	}

	if math.IsNaN(spot.USD) || math.IsInf(spot.USD, 0) {
		return Price{}, fmt.Errorf("%w: price for %s is not finite: %f", ErrInvalidPriceData, feedID, spot.USD)
	}
	if spot.USD <= 0 {
		return Price{}, fmt.Errorf("%w: price for %s must be positive: %f", ErrInvalidPriceData, feedID, spot.USD)
	}

	value, err := utils.Float64ToSDKInt(spot.USD, int(FeedDecimals))
	if err != nil {
		return Price{}, fmt.Errorf("failed to convert price for %s: %w", feedID, err)
	}

	feedLogger.Info().
		Str("feed", feedID).
		Float64("usd", spot.USD).
		Str("fixed", value.String()).
		Msg("Fetched spot price")

	return Price{Value: value, Decimals: FeedDecimals, Time: time.Now()}, nil
}
