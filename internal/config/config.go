// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/iwvelando/mac-forecast/internal/params"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/modeltime"
	"github.com/iwvelando/mac-forecast/pkg/validation"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for mac-forecast.
type Configuration struct {
	Logging   LoggingConfig      `yaml:"logging,omitempty"`
	Output    OutputConfig       `yaml:"output,omitempty"`
	Modeltime modeltime.Calendar `yaml:"modeltime,omitempty"`
	Regions   []string           `yaml:"regions,omitempty"`
	Markets   []Market           `yaml:"markets,omitempty"`
	// Macs holds one declarative MAC definition per gas. Keys are resolved
	// by the MAC model's field registry so unknown keys only warn.
	Macs      []map[string]interface{} `yaml:"macs,omitempty"`
	Buildings []Subsector              `yaml:"buildings,omitempty"`
	Scenarios []Scenario               `yaml:"scenarios,omitempty"`
	Targets   []Target                 `yaml:"targets,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// Market is a price series for one market in one region, indexed by period.
type Market struct {
	Name   string    `yaml:"name"`
	Region string    `yaml:"region"`
	Prices []float64 `yaml:"prices"`
}

// Subsector describes a building subsector in one region and the heating
// and cooling technologies calibrated against it.
type Subsector struct {
	Name               string                   `yaml:"name"`
	Region             string                   `yaml:"region"`
	FloorSpace         []float64                `yaml:"floorSpace"`
	Demand             []float64                `yaml:"demand"`
	AveInsulation      float64                  `yaml:"aveInsulation"`
	FloorToSurfaceArea float64                  `yaml:"floorToSurfaceArea"`
	Technologies       []map[string]interface{} `yaml:"technologies"`
}

// Scenario holds the MAC overrides and extra prices of one scenario variant.
type Scenario struct {
	Name    string                   `yaml:"name"`
	Active  bool                     `yaml:"active"`
	Macs    []map[string]interface{} `yaml:"macs,omitempty"`
	Markets []Market                 `yaml:"markets,omitempty"`
}

// Target asks for the lowest carbon price at which the MAC of Gas abates
// at least Reduction in Region at Period. Unset price bounds default to the
// price range of the curve.
type Target struct {
	Gas           string   `yaml:"gas" json:"gas"`
	Region        string   `yaml:"region" json:"region"`
	Period        int      `yaml:"period" json:"period"`
	Reduction     float64  `yaml:"reduction" json:"reduction"`
	MinPrice      *float64 `yaml:"minPrice,omitempty" json:"minPrice,omitempty"`
	MaxPrice      *float64 `yaml:"maxPrice,omitempty" json:"maxPrice,omitempty"`
	Tolerance     float64  `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	MaxIterations int      `yaml:"maxIterations,omitempty" json:"maxIterations,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromBytes loads a YAML-formatted configuration held in memory.
func LoadConfigurationFromBytes(data []byte) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.Modeltime = configuration.Modeltime.WithDefaults()
	if err := configuration.Modeltime.Validate(); err != nil {
		return nil, fmt.Errorf("invalid modeltime: %w", err)
	}
	return &configuration, nil
}

// ActiveScenarios returns the scenarios to run. A configuration without
// scenarios runs a single unmodified "base" scenario.
func (c *Configuration) ActiveScenarios() []Scenario {
	if len(c.Scenarios) == 0 {
		return []Scenario{{Name: "base", Active: true}}
	}
	var active []Scenario
	for _, s := range c.Scenarios {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// RegionList returns the configured regions, or every region that has a
// market price when none are listed.
func (c *Configuration) RegionList() []string {
	if len(c.Regions) > 0 {
		return c.Regions
	}
	seen := make(map[string]struct{})
	for _, m := range c.Markets {
		seen[m.Region] = struct{}{}
	}
	for _, s := range c.Buildings {
		seen[s.Region] = struct{}{}
	}
	regions := make([]string, 0, len(seen))
	for r := range seen {
		if r != "" {
			regions = append(regions, r)
		}
	}
	sort.Strings(regions)
	return regions
}

// MacName returns the "name" entry of a MAC definition.
func MacName(def map[string]interface{}) string {
	if v, ok := params.Lookup(def, "name"); ok {
		return cast.ToString(v)
	}
	return ""
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	periods := c.Modeltime.Periods

	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	if len(c.RegionList()) == 0 {
		warnings = append(warnings, "no regions configured and none can be derived from markets")
	}

	var macNames []string
	for i, def := range c.Macs {
		name := MacName(def)
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("MAC %d has no name", i))
			continue
		}
		macNames = append(macNames, name)
	}
	warnings = append(warnings, validation.ValidateUniqueNames("MAC", macNames)...)

	for _, m := range c.Markets {
		warnings = append(warnings, validation.ValidateSeriesLength(
			fmt.Sprintf("market '%s' in region '%s'", m.Name, m.Region), m.Prices, periods)...)
	}

	for _, s := range c.Buildings {
		label := fmt.Sprintf("subsector '%s' in region '%s'", s.Name, s.Region)
		warnings = append(warnings, validation.ValidateSeriesLength(label+" floor space", s.FloorSpace, periods)...)
		warnings = append(warnings, validation.ValidateSeriesLength(label+" demand", s.Demand, periods)...)
	}

	known := make(map[string]bool, len(macNames))
	for _, n := range macNames {
		known[n] = true
	}
	var scenarioNames []string
	for _, s := range c.Scenarios {
		scenarioNames = append(scenarioNames, s.Name)
		if !s.Active {
			continue
		}
		for _, override := range s.Macs {
			name := MacName(override)
			if !known[name] {
				warnings = append(warnings, fmt.Sprintf("scenario '%s' overrides unknown MAC '%s'", s.Name, name))
			}
		}
		for _, m := range s.Markets {
			warnings = append(warnings, validation.ValidateSeriesLength(
				fmt.Sprintf("scenario '%s' market '%s' in region '%s'", s.Name, m.Name, m.Region), m.Prices, periods)...)
		}
	}
	warnings = append(warnings, validation.ValidateUniqueNames("scenario", scenarioNames)...)

	for i, target := range c.Targets {
		if !known[target.Gas] {
			warnings = append(warnings, fmt.Sprintf("target %d references unknown MAC '%s'", i, target.Gas))
		}
		if target.Period < 0 || target.Period >= periods {
			warnings = append(warnings, fmt.Sprintf("target %d period %d outside of modeltime", i, target.Period))
		}
		if target.MinPrice != nil && target.MaxPrice != nil && *target.MinPrice > *target.MaxPrice {
			warnings = append(warnings, fmt.Sprintf("target %d has minPrice above maxPrice", i))
		}
	}

	if len(c.Scenarios) > 0 && len(c.ActiveScenarios()) == 0 {
		warnings = append(warnings, "no active scenarios")
	}

	return warnings
}

// OutputFormat returns the configured output format, defaulting to pretty.
func (c *Configuration) OutputFormat() string {
	if c.Output.Format == "" {
		return constants.OutputFormatPretty
	}
	return c.Output.Format
}
