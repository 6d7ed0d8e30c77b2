package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidateSeriesLength(t *testing.T) {
	tests := []struct {
		name         string
		series       []float64
		periods      int
		wantWarnings int
		contains     string
	}{
		{"Empty series", nil, 5, 0, ""},
		{"Exact length", []float64{1, 2, 3}, 3, 0, ""},
		{"Too short", []float64{1, 2}, 3, 1, "later periods have no value"},
		{"Too long", []float64{1, 2, 3, 4}, 3, 1, "extra values are ignored"},
		{"Non-finite value", []float64{1, math.NaN(), 3}, 3, 1, "non-finite value at period 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := ValidateSeriesLength("market 'CO2'", tt.series, tt.periods)
			if len(warnings) != tt.wantWarnings {
				t.Fatalf("ValidateSeriesLength() returned %d warnings, expected %d: %v", len(warnings), tt.wantWarnings, warnings)
			}
			if tt.contains != "" && !strings.Contains(warnings[0], tt.contains) {
				t.Errorf("warning %q does not contain %q", warnings[0], tt.contains)
			}
		})
	}
}

func TestValidateUniqueNames(t *testing.T) {
	if warnings := ValidateUniqueNames("MAC", []string{"CH4", "N2O"}); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	warnings := ValidateUniqueNames("MAC", []string{"CH4", "CH4", "N2O", "CH4"})
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "'CH4'") {
		t.Errorf("warning %q does not name the duplicate", warnings[0])
	}
}
