// Package constants provides shared constants for the mac-forecast application.
package constants

// Model calendar defaults
const (
	// DefaultStartYear is the calendar year of period 0
	DefaultStartYear = 1975

	// DefaultTimeStep is the number of years between two model periods
	DefaultTimeStep = 15

	// DefaultPeriods is the number of model periods, including period 0
	DefaultPeriods = 9

	// DefaultBasePeriod is the calibration (base) period index
	DefaultBasePeriod = 0
)

// MAC curve constants
const (
	// DefaultCarbonMarket is the market whose price drives every MAC curve
	DefaultCarbonMarket = "CO2"

	// DefaultPhaseIn is the number of periods over which a curve ramps in
	DefaultPhaseIn = 1.0

	// FuelShiftNormFactor normalizes (1 - priceChangeRatio) so the shift spans
	// -0.6 at a halved fuel price to 0.4 at a doubled fuel price.
	FuelShiftNormFactor = 0.6

	// ShiftFuelBasePeriod is the period fuel prices are compared against
	ShiftFuelBasePeriod = 1
)

// Building technology constants
const (
	// DefaultSaturation is the demand function prefix when none is configured
	DefaultSaturation = 1.0

	// InfoFloorSpace is the subsector info key holding floor space
	InfoFloorSpace = "floorSpace"

	// InfoAveInsulation is the subsector info key holding average insulation
	InfoAveInsulation = "aveInsulation"

	// InfoFloorToSurfaceArea is the subsector info key holding the floor to surface ratio
	InfoFloorToSurfaceArea = "floorToSurfaceArea"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputPrecision is the number of decimals reductions are rendered with
	OutputPrecision = 4
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Numeric tolerances
const (
	// FractionTolerance is the tolerance used when comparing reduction fractions
	FractionTolerance = 1e-9
)
