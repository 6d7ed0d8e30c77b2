// Package marketplace holds market prices by market, region and period.
package marketplace

import (
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// NoMarketPrice is returned when a market has no price for the requested
// region and period.
const NoMarketPrice = math.MaxFloat64

// PriceSource is the read side of a marketplace.
type PriceSource interface {
	// Price returns the price of market in region at period, or NoMarketPrice
	// when none is set. A missing price is logged when mustExist is true.
	Price(market, region string, period int, mustExist bool) float64
}

// Key identifies one market in one region.
type Key struct {
	Market string
	Region string
}

// Quote is a single price observation.
type Quote struct {
	Market string  `json:"market"`
	Region string  `json:"region"`
	Period int     `json:"period"`
	Price  float64 `json:"price"`
}

// Marketplace is an in-memory PriceSource. It is safe for concurrent use;
// reads never block each other.
type Marketplace struct {
	logger *zap.Logger
	mu     sync.RWMutex
	prices map[Key]map[int]float64
}

// New creates an empty Marketplace.
func New(logger *zap.Logger) *Marketplace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Marketplace{
		logger: logger,
		prices: make(map[Key]map[int]float64),
	}
}

// SetPrice records the price of market in region at period.
func (m *Marketplace) SetPrice(market, region string, period int, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Key{Market: market, Region: region}
	if m.prices[key] == nil {
		m.prices[key] = make(map[int]float64)
	}
	m.prices[key][period] = price
}

// SetSeries records prices for consecutive periods starting at period 0.
func (m *Marketplace) SetSeries(market, region string, prices []float64) {
	for period, price := range prices {
		m.SetPrice(market, region, period, price)
	}
}

// Price implements PriceSource.
func (m *Marketplace) Price(market, region string, period int, mustExist bool) float64 {
	m.mu.RLock()
	price, ok := m.prices[Key{Market: market, Region: region}][period]
	m.mu.RUnlock()

	if ok {
		return price
	}
	if mustExist {
		m.logger.Error("market price does not exist",
			zap.String("op", "marketplace.Price"),
			zap.String("market", market),
			zap.String("region", region),
			zap.Int("period", period),
		)
	}
	return NoMarketPrice
}

// Quotes returns every stored price ordered by market, region and period.
func (m *Marketplace) Quotes() []Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var quotes []Quote
	for key, series := range m.prices {
		for period, price := range series {
			quotes = append(quotes, Quote{Market: key.Market, Region: key.Region, Period: period, Price: price})
		}
	}
	sort.Slice(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return a.Period < b.Period
	})
	return quotes
}

// Regions lists the regions that have at least one price, sorted.
func (m *Marketplace) Regions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range m.prices {
		seen[key.Region] = struct{}{}
	}
	regions := make([]string, 0, len(seen))
	for region := range seen {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// PriceOrZero returns the price, substituting 0 when it is missing.
func PriceOrZero(source PriceSource, market, region string, period int) float64 {
	price := source.Price(market, region, period, false)
	if price == NoMarketPrice {
		return 0
	}
	return price
}
