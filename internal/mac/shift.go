package mac

import (
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// Domain is the carbon price range of a curve.
type Domain interface {
	MinX() float64
	MaxX() float64
	Len() int
}

// PriceShift moves the carbon price up or down with the price of a
// reference fuel relative to its base period price.
//
// Range is the size of the shift between a halved and a doubled fuel price.
// The shift narrows as the carbon price approaches the top of the curve: at
// the bottom it applies in full, at the top it is halved.
type PriceShift struct {
	FuelName string
	Range    float64
	Logger   *zap.Logger
}

// Shift returns the adjusted carbon price, bounded to the curve's domain.
func (s PriceShift) Shift(prices marketplace.PriceSource, domain Domain, region string, period int, carbonPrice float64) float64 {
	if domain.Len() == 0 {
		return carbonPrice
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fuelPrice := prices.Price(s.FuelName, region, period, true)
	fuelBasePrice := prices.Price(s.FuelName, region, constants.ShiftFuelBasePeriod, true)

	priceChangeRatio := 1.0
	switch {
	case fuelPrice == marketplace.NoMarketPrice || fuelBasePrice == marketplace.NoMarketPrice:
		logger.Warn("fuel price missing, carbon price not shifted",
			zap.String("op", "mac.PriceShift.Shift"),
			zap.String("fuel", s.FuelName),
			zap.String("region", region),
			zap.Int("period", period),
		)
	case fuelPrice != 0:
		priceChangeRatio = fuelBasePrice / fuelPrice
	}

	minPrice, maxPrice := domain.MinX(), domain.MaxX()
	convergence := 1.0
	if width := maxPrice - minPrice; width != 0 {
		convergence = 0.5 + 0.5*(maxPrice-carbonPrice)/width
	}

	shifted := carbonPrice + constants.FuelShiftNormFactor*(1-priceChangeRatio)*s.Range*convergence
	return mathutil.Clamp(shifted, minPrice, maxPrice)
}
