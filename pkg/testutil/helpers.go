// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/mac-forecast/internal/forecast"
	"github.com/iwvelando/mac-forecast/internal/mac"
)

// FindScenario finds a scenario by name in the results slice.
// Returns a pointer to the forecast if found, nil otherwise.
func FindScenario(results []forecast.Forecast, name string) *forecast.Forecast {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// FindReduction finds the reduction of gas in region at period.
// Returns nil when the forecast holds no such row.
func FindReduction(result *forecast.Forecast, region, gas string, period int) *mac.Breakdown {
	if result == nil {
		return nil
	}
	for i := range result.Reductions {
		r := &result.Reductions[i]
		if r.Region == region && r.Gas == gas && r.Period == period {
			return r
		}
	}
	return nil
}

// FindShareWeight finds the share weight of a technology in region at period.
func FindShareWeight(result *forecast.Forecast, region, technology string, period int) *forecast.ShareWeight {
	if result == nil {
		return nil
	}
	for i := range result.ShareWeights {
		w := &result.ShareWeights[i]
		if w.Region == region && w.Technology == technology && w.Period == period {
			return w
		}
	}
	return nil
}
