// Package modeltime maps model period indices to calendar years.
package modeltime

import (
	"fmt"

	"github.com/iwvelando/mac-forecast/pkg/constants"
)

// Calendar describes evenly spaced model periods. Period 0 falls on
// StartYear and each following period is TimeStep years later.
type Calendar struct {
	StartYear  int `yaml:"startYear,omitempty"`
	TimeStep   int `yaml:"timeStep,omitempty"`
	Periods    int `yaml:"periods,omitempty"`
	BasePeriod int `yaml:"basePeriod,omitempty"`
}

// Default returns the calendar used when none is configured.
func Default() Calendar {
	return Calendar{
		StartYear:  constants.DefaultStartYear,
		TimeStep:   constants.DefaultTimeStep,
		Periods:    constants.DefaultPeriods,
		BasePeriod: constants.DefaultBasePeriod,
	}
}

// WithDefaults fills zero fields from Default.
func (c Calendar) WithDefaults() Calendar {
	d := Default()
	if c.StartYear == 0 {
		c.StartYear = d.StartYear
	}
	if c.TimeStep == 0 {
		c.TimeStep = d.TimeStep
	}
	if c.Periods == 0 {
		c.Periods = d.Periods
	}
	return c
}

// Validate checks that the calendar describes at least one period.
func (c Calendar) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("time step must be positive, got %d", c.TimeStep)
	}
	if c.Periods <= 0 {
		return fmt.Errorf("number of periods must be positive, got %d", c.Periods)
	}
	if c.BasePeriod < 0 || c.BasePeriod >= c.Periods {
		return fmt.Errorf("base period %d outside of [0, %d)", c.BasePeriod, c.Periods)
	}
	return nil
}

// PeriodToYear returns the calendar year of a period.
func (c Calendar) PeriodToYear(period int) int {
	return c.StartYear + period*c.TimeStep
}

// YearToPeriod returns the period containing year. Years before the first
// period map to 0 and years after the last period map to the last period.
func (c Calendar) YearToPeriod(year int) int {
	if c.TimeStep <= 0 || year <= c.StartYear {
		return 0
	}
	period := (year - c.StartYear) / c.TimeStep
	if last := c.Periods - 1; last >= 0 && period > last {
		return last
	}
	return period
}

// BaseYear returns the calendar year of the base period.
func (c Calendar) BaseYear() int {
	return c.PeriodToYear(c.BasePeriod)
}

// EndYear returns the calendar year of the final period.
func (c Calendar) EndYear() int {
	return c.PeriodToYear(c.Periods - 1)
}

// Years lists the calendar year of every period.
func (c Calendar) Years() []int {
	years := make([]int, 0, c.Periods)
	for p := 0; p < c.Periods; p++ {
		years = append(years, c.PeriodToYear(p))
	}
	return years
}
