/*

Price sources for the vault. A PriceSource is an external collaborator that
reports the latest USD price for a feed identifier, together with the feed's own
decimal precision. Sources are never trusted blindly: the Adapter in this package
validates every reading before it reaches the valuation path.

*/

package oracle

import (
	"errors"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

var ErrFeedUnknown = errors.New("price feed unknown to source")

// Price is a single oracle reading. Value is an integer scaled by 10^Decimals.
// Time is the source-reported observation time; no staleness check is applied
// here, but the field is carried so one can be added at the adapter.
type Price struct {
	Value    sdkmath.Int
	Decimals uint8
	Time     time.Time
}

// PriceSource reports the latest available price for a feed identifier.
type PriceSource interface {
	LatestPrice(feedID string) (Price, error)
}

// StaticSource is an in-memory PriceSource with settable prices. It backs the
// native feed at boot until a live source takes over, and is the source used
// throughout the tests.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]Price
}

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{prices: make(map[string]Price)}
}

// Set stores or replaces the price for a feed.
func (s *StaticSource) Set(feedID string, value sdkmath.Int, decimals uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[feedID] = Price{Value: value, Decimals: decimals, Time: time.Now()}
}

// LatestPrice implements PriceSource.
func (s *StaticSource) LatestPrice(feedID string) (Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[feedID]
	if !ok {
		return Price{}, ErrFeedUnknown
	}
	return price, nil
}
