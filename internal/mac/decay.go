package mac

import (
	"math"

	"github.com/iwvelando/mac-forecast/pkg/modeltime"
)

// DecayFactor returns the multiplier applied to the carbon price so that
// abatement gets cheaper by rate per year after baseCostYear. The maximum
// reduction of the curve is unchanged.
func DecayFactor(cal modeltime.Calendar, period int, rate float64, baseCostYear int) float64 {
	if rate == 0 {
		return 1
	}
	years := cal.PeriodToYear(period) - baseCostYear
	if years <= 0 {
		return 1
	}
	return 1 / math.Pow(1+rate, float64(years))
}
