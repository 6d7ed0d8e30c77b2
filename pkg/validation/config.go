// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/mac-forecast/pkg/mathutil"
)

// ValidateSeriesLength checks that a per-period series covers the model
// calendar and holds only finite values.
func ValidateSeriesLength(label string, series []float64, periods int) []string {
	var warnings []string

	if len(series) == 0 {
		return warnings
	}
	if len(series) < periods {
		warnings = append(warnings, fmt.Sprintf("%s has %d values for %d periods - later periods have no value",
			label, len(series), periods))
	}
	if len(series) > periods {
		warnings = append(warnings, fmt.Sprintf("%s has %d values for %d periods - extra values are ignored",
			label, len(series), periods))
	}
	for i, v := range series {
		if !mathutil.IsFinite(v) {
			warnings = append(warnings, fmt.Sprintf("%s has a non-finite value at period %d", label, i))
		}
	}

	return warnings
}

// ValidateUniqueNames reports names that appear more than once.
func ValidateUniqueNames(kind string, names []string) []string {
	var warnings []string
	seen := make(map[string]int, len(names))
	for _, name := range names {
		seen[name]++
		if seen[name] == 2 {
			warnings = append(warnings, fmt.Sprintf("%s '%s' is defined more than once - the last definition wins", kind, name))
		}
	}
	return warnings
}
