// Package mac evaluates marginal abatement cost (MAC) curves. A MAC curve
// maps a carbon price to the fraction of a gas's emissions that is abated at
// that price. The raw curve value is corrected for fuel prices, cost
// reductions over time, phase-in and technological change.
package mac

import (
	"errors"
	"fmt"

	"github.com/iwvelando/mac-forecast/internal/params"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/curve"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/mathutil"
	"github.com/iwvelando/mac-forecast/pkg/modeltime"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var (
	// ErrEmptyCurve is reported when a MAC curve holds no points.
	ErrEmptyCurve = errors.New("MAC curve has no data")

	// ErrCurveEvaluation is reported when the curve cannot be evaluated.
	ErrCurveEvaluation = errors.New("error evaluating MAC curve")

	// ErrMissingShiftFuel is reported when a fuel shift is configured without a fuel.
	ErrMissingShiftFuel = errors.New("fuelShiftRange set without curveShiftFuelName")
)

// Params holds the scalar settings of a MAC curve.
type Params struct {
	PhaseIn            float64 `json:"phaseIn" yaml:"phaseIn"`
	CostReductionRate  float64 `json:"costReductionRate" yaml:"costReductionRate"`
	BaseCostYear       int     `json:"baseCostYear" yaml:"baseCostYear"`
	FuelShiftRange     float64 `json:"fuelShiftRange" yaml:"fuelShiftRange"`
	CurveShiftFuelName string  `json:"curveShiftFuelName,omitempty" yaml:"curveShiftFuelName,omitempty"`
	FinalReduction     float64 `json:"finalReduction" yaml:"finalReduction"`
	FinalReductionYear int     `json:"finalReductionYear" yaml:"finalReductionYear"`
	NoBelowZero        bool    `json:"noBelowZero" yaml:"noBelowZero"`
	CarbonMarketName   string  `json:"carbonMarketName" yaml:"carbonMarketName"`
}

// DefaultParams returns the settings of a MAC curve with no adjustments:
// immediate full effect, no cost reduction, no fuel shift and no
// technological change cap.
func DefaultParams(cal modeltime.Calendar) Params {
	var p Params
	p.fields(cal).ApplyDefaults()
	return p
}

func (p *Params) fields(cal modeltime.Calendar) *params.Registry {
	return params.NewRegistry(
		params.Float("phaseIn", &p.PhaseIn, constants.DefaultPhaseIn),
		params.Float("costReductionRate", &p.CostReductionRate, 0),
		params.Int("baseCostYear", &p.BaseCostYear, cal.BaseYear()),
		params.Float("fuelShiftRange", &p.FuelShiftRange, 0),
		params.String("curveShiftFuelName", &p.CurveShiftFuelName, ""),
		params.Float("finalReduction", &p.FinalReduction, 0),
		params.Int("finalReductionYear", &p.FinalReductionYear, cal.EndYear()),
		params.Bool("noBelowZero", &p.NoBelowZero, false),
		params.String("carbonMarketName", &p.CarbonMarketName, constants.DefaultCarbonMarket),
	)
}

// Model is a MAC curve for one gas together with its adjustments. The
// curve is fixed once the model is built; a Model is safe for concurrent
// use as long as Override is not called concurrently.
type Model struct {
	name   string
	logger *zap.Logger
	cal    modeltime.Calendar
	curve  *curve.PointSetCurve
	params Params
}

// New builds a model from calibration points.
func New(logger *zap.Logger, cal modeltime.Calendar, name string, points []curve.Point, p Params) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		name:   name,
		logger: logger,
		cal:    cal,
		curve:  curve.New(points),
		params: p,
	}
}

// Parse builds a model from a declarative key/value definition. The
// "reductions" key holds the calibration points as a list of
// {tax, reduction} pairs. Unrecognized keys are returned as warnings.
func Parse(logger *zap.Logger, cal modeltime.Calendar, values map[string]interface{}) (*Model, []string) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var name string
	if v, ok := params.Lookup(values, "name"); ok {
		name = cast.ToString(v)
	}

	m := &Model{name: name, logger: logger, cal: cal}
	var points []curve.Point

	reg := m.params.fields(cal)
	reg.Register(params.Ignore("name"))
	reg.Register(params.Field{
		Key: "reductions",
		Set: func(v interface{}) error {
			parsed, err := ParsePoints(v)
			if err != nil {
				return err
			}
			points = parsed
			return nil
		},
	})
	reg.ApplyDefaults()
	warnings := reg.Apply(logger, "MAC "+name, values)

	m.curve = curve.New(points)
	return m, warnings
}

// ParsePoints converts a list of {tax, reduction} maps into curve points.
func ParsePoints(v interface{}) ([]curve.Point, error) {
	items, err := params.Maps(v)
	if err != nil {
		return nil, err
	}
	points := make([]curve.Point, 0, len(items))
	for i, item := range items {
		tax, ok := params.Lookup(item, "tax")
		if !ok {
			return nil, fmt.Errorf("reduction %d: missing tax", i)
		}
		reduction, ok := params.Lookup(item, "reduction")
		if !ok {
			return nil, fmt.Errorf("reduction %d: missing reduction", i)
		}
		x, err := cast.ToFloat64E(tax)
		if err != nil {
			return nil, fmt.Errorf("reduction %d: tax: %w", i, err)
		}
		y, err := cast.ToFloat64E(reduction)
		if err != nil {
			return nil, fmt.Errorf("reduction %d: reduction: %w", i, err)
		}
		points = append(points, curve.Point{X: x, Y: y})
	}
	return points, nil
}

// Override applies scenario-specific settings on top of the current ones.
// The curve itself cannot be overridden.
func (m *Model) Override(values map[string]interface{}) []string {
	reg := m.params.fields(m.cal)
	reg.Register(params.Ignore("name"))
	reg.Register(params.Reject("reductions", "a MAC curve cannot be overridden"))
	return reg.Apply(m.logger, "MAC "+m.name, values)
}

// Clone returns a deep copy of the model, including its curve.
func (m *Model) Clone() *Model {
	clone := *m
	clone.curve = m.curve.Clone()
	return &clone
}

// WithLogger returns a shallow copy of m that logs to logger.
func (m *Model) WithLogger(logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	clone := *m
	clone.logger = logger
	return &clone
}

// Name returns the gas the curve applies to.
func (m *Model) Name() string {
	return m.name
}

// Params returns the model's settings.
func (m *Model) Params() Params {
	return m.params
}

// Points returns the calibration points sorted by carbon price.
func (m *Model) Points() []curve.Point {
	return m.curve.SortedPairs()
}

// Domain returns the carbon price range covered by the curve.
func (m *Model) Domain() (minX, maxX float64) {
	return m.curve.MinX(), m.curve.MaxX()
}

// InitCalc checks the model before a run. Problems are logged and returned
// but never prevent the model from being evaluated; an empty curve simply
// yields zero reductions.
func (m *Model) InitCalc() error {
	var errs []error
	if m.curve.MaxX() == curve.NoValue {
		m.logger.Error(fmt.Sprintf("MAC for gas %s appears to have no data", m.name),
			zap.String("op", "mac.InitCalc"),
			zap.String("gas", m.name),
		)
		errs = append(errs, fmt.Errorf("gas %s: %w", m.name, ErrEmptyCurve))
	}
	if m.params.FuelShiftRange != 0 && m.params.CurveShiftFuelName == "" {
		m.logger.Error(fmt.Sprintf("MAC for gas %s has a fuel shift range but no fuel", m.name),
			zap.String("op", "mac.InitCalc"),
			zap.String("gas", m.name),
		)
		errs = append(errs, fmt.Errorf("gas %s: %w", m.name, ErrMissingShiftFuel))
	}
	return errors.Join(errs...)
}

// CurveValue returns the curve's reduction at carbonPrice. Prices above the
// curve's largest price are evaluated at that price. An evaluation failure
// is logged and yields 0.
func (m *Model) CurveValue(carbonPrice float64) float64 {
	price := mathutil.Min(carbonPrice, m.curve.MaxX())
	reduction := m.curve.Y(price)
	if reduction == curve.NoValue {
		m.logger.Error("an error occurred when evaluating MAC curve",
			zap.String("op", "mac.CurveValue"),
			zap.String("gas", m.name),
			zap.Float64("carbonPrice", carbonPrice),
			zap.Error(ErrCurveEvaluation),
		)
		return 0
	}
	return reduction
}

// Breakdown records every step of a reduction calculation.
type Breakdown struct {
	Gas            string  `json:"gas"`
	Region         string  `json:"region"`
	Period         int     `json:"period"`
	Year           int     `json:"year"`
	CarbonPrice    float64 `json:"carbonPrice"`
	ShiftedPrice   float64 `json:"shiftedPrice"`
	DecayFactor    float64 `json:"decayFactor"`
	EffectivePrice float64 `json:"effectivePrice"`
	RawReduction   float64 `json:"rawReduction"`
	PhaseIn        float64 `json:"phaseIn"`
	TechChange     float64 `json:"techChange"`
	Reduction      float64 `json:"reduction"`
}

// FindReduction returns the fraction of emissions abated in region at
// period. The result is not clamped to [0, 1].
func (m *Model) FindReduction(prices marketplace.PriceSource, region string, period int) float64 {
	return m.Explain(prices, region, period).Reduction
}

// Explain runs the reduction calculation and returns each intermediate
// value. The steps always run in this order: fuel shift, cost reduction,
// curve lookup, noBelowZero, phase-in, technological change.
func (m *Model) Explain(prices marketplace.PriceSource, region string, period int) Breakdown {
	p := m.params
	b := Breakdown{
		Gas:        m.name,
		Region:     region,
		Period:     period,
		Year:       m.cal.PeriodToYear(period),
		TechChange: 1,
	}

	b.CarbonPrice = marketplace.PriceOrZero(prices, p.CarbonMarketName, region, period)

	b.ShiftedPrice = b.CarbonPrice
	if p.FuelShiftRange != 0 {
		shift := PriceShift{FuelName: p.CurveShiftFuelName, Range: p.FuelShiftRange, Logger: m.logger}
		b.ShiftedPrice = shift.Shift(prices, m.curve, region, period, b.CarbonPrice)
	}

	b.DecayFactor = DecayFactor(m.cal, period, p.CostReductionRate, p.BaseCostYear)
	b.EffectivePrice = b.ShiftedPrice * b.DecayFactor

	b.RawReduction = m.CurveValue(b.EffectivePrice)
	if p.NoBelowZero && b.EffectivePrice < 0 {
		b.RawReduction = 0
	}

	b.PhaseIn = PhaseInMultiplier(period, p.PhaseIn)
	b.Reduction = b.RawReduction * b.PhaseIn

	if p.FinalReduction != 0 {
		maxReduction := m.CurveValue(m.curve.MaxX())
		finalPeriod := m.cal.YearToPeriod(p.FinalReductionYear)
		if p.FinalReduction > maxReduction && finalPeriod > 1 {
			b.TechChange = CapMultiplier(period, finalPeriod, maxReduction, p.FinalReduction)
			b.Reduction *= b.TechChange
		}
	}

	return b
}
