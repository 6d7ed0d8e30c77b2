// Package building calibrates building heating and cooling technologies.
// The demand a technology must meet is reduced (heating) or increased
// (cooling) by internal gains before its share weight is derived.
package building

import (
	"fmt"
	"strings"

	"github.com/iwvelando/mac-forecast/internal/params"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Service is the building service a technology supplies.
type Service int

const (
	// Heating technologies have their demand lowered by internal gains.
	Heating Service = iota
	// Cooling technologies have their demand raised by internal gains.
	Cooling
)

// ParseService converts "heating" or "cooling" into a Service.
func ParseService(s string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heating":
		return Heating, nil
	case "cooling":
		return Cooling, nil
	}
	return Heating, fmt.Errorf("unknown building service %q, expected heating or cooling", s)
}

// String implements fmt.Stringer.
func (s Service) String() string {
	if s == Cooling {
		return "cooling"
	}
	return "heating"
}

// InternalGainsSign is +1 for heating and -1 for cooling.
func (s Service) InternalGainsSign() float64 {
	if s == Cooling {
		return -1
	}
	return 1
}

// GenericTechnology holds what every building demand technology has.
type GenericTechnology struct {
	Name        string
	Saturation  float64
	ShareWeight float64

	logger *zap.Logger
}

func (g *GenericTechnology) fields() *params.Registry {
	return params.NewRegistry(
		params.String("name", &g.Name, ""),
		params.Float("saturation", &g.Saturation, constants.DefaultSaturation),
		params.Float("shareWeight", &g.ShareWeight, 1),
	)
}

// DemandFnPrefix is the factor applied to unit demand before production.
func (g *GenericTechnology) DemandFnPrefix(region string, period int) float64 {
	return g.Saturation
}

// HeatCoolTechnology is a heating or cooling technology whose demand is
// adjusted for internal gains.
type HeatCoolTechnology struct {
	GenericTechnology

	Service              Service
	FractionOfYearActive float64
	IntGainsMarketName   string

	aveInsulation      float64
	floorToSurfaceArea float64
}

func (t *HeatCoolTechnology) fields() *params.Registry {
	return params.NewRegistry().
		Merge(t.GenericTechnology.fields()).
		Merge(params.NewRegistry(
			params.Float("fractionOfYearActive", &t.FractionOfYearActive, 0),
			params.String("intGainsMarketName", &t.IntGainsMarketName, ""),
			params.Field{
				Key: "service",
				Set: func(v interface{}) error {
					s, err := ParseService(cast.ToString(v))
					if err != nil {
						return err
					}
					t.Service = s
					return nil
				},
				Default: func() { t.Service = Heating },
			},
		))
}

// NewHeatCool creates a technology with default settings.
func NewHeatCool(logger *zap.Logger, name string, service Service) *HeatCoolTechnology {
	t := &HeatCoolTechnology{}
	t.fields().ApplyDefaults()
	t.Name = name
	t.Service = service
	t.logger = orNop(logger)
	return t
}

// Parse builds a technology from a declarative definition. Unrecognized
// keys are returned as warnings.
func Parse(logger *zap.Logger, values map[string]interface{}) (*HeatCoolTechnology, []string) {
	t := &HeatCoolTechnology{}
	t.logger = orNop(logger)
	reg := t.fields()
	reg.ApplyDefaults()
	warnings := reg.Apply(t.logger, "building technology", values)
	return t, warnings
}

// Clone returns an independent copy of the technology.
func (t *HeatCoolTechnology) Clone() *HeatCoolTechnology {
	clone := *t
	return &clone
}

// InitCalc reads the per-period subsector values the calibration needs.
func (t *HeatCoolTechnology) InitCalc(info Info) {
	t.aveInsulation = info.Double(t.logger, constants.InfoAveInsulation, true)
	t.floorToSurfaceArea = info.Double(t.logger, constants.InfoFloorToSurfaceArea, true)
}

// AveInsulation returns the insulation read by the last InitCalc.
func (t *HeatCoolTechnology) AveInsulation() float64 {
	return t.aveInsulation
}

// FloorToSurfaceArea returns the ratio read by the last InitCalc.
func (t *HeatCoolTechnology) FloorToSurfaceArea() float64 {
	return t.floorToSurfaceArea
}

// EffectiveInternalGains returns the internal gains, signed by service,
// that offset this technology's demand. A missing gains price counts as 0.
func (t *HeatCoolTechnology) EffectiveInternalGains(prices marketplace.PriceSource, region string, period int) float64 {
	gains := prices.Price(t.IntGainsMarketName, region, period, true)
	if gains == marketplace.NoMarketPrice {
		gains = 0
	}
	return t.Service.InternalGainsSign() * gains * t.FractionOfYearActive
}

// AdjustForCalibration derives the share weight that reproduces the
// calibrated subsector demand. subsectorDemand is demand per unit floor
// space. The new weight is stored on the technology and returned; when it
// cannot be computed the previous weight is kept.
func (t *HeatCoolTechnology) AdjustForCalibration(subsectorDemand float64, prices marketplace.PriceSource, region string, info Info, period int) float64 {
	floorSpace := info.Double(t.logger, constants.InfoFloorSpace, true)
	if floorSpace == 0 {
		t.logger.Error("cannot calibrate technology without floor space",
			zap.String("op", "building.AdjustForCalibration"),
			zap.String("technology", t.Name),
			zap.String("region", region),
			zap.Int("period", period),
		)
		return t.ShareWeight
	}

	effectiveDemand := subsectorDemand*floorSpace - t.EffectiveInternalGains(prices, region, period)
	if effectiveDemand < 0 {
		effectiveDemand = 0
	}

	prefix := t.DemandFnPrefix(region, period)
	if prefix == 0 {
		t.logger.Error("cannot calibrate technology with a zero demand function prefix",
			zap.String("op", "building.AdjustForCalibration"),
			zap.String("technology", t.Name),
			zap.String("region", region),
			zap.Int("period", period),
		)
		return t.ShareWeight
	}

	t.ShareWeight = (effectiveDemand / floorSpace) / prefix
	return t.ShareWeight
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
