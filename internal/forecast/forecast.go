// Package forecast defines the data structures related to a given forecast and
// includes functions for computing the forecasts.
package forecast

import (
	"fmt"
	"sync"

	"github.com/iwvelando/mac-forecast/internal/building"
	"github.com/iwvelando/mac-forecast/internal/config"
	"github.com/iwvelando/mac-forecast/internal/mac"
	"github.com/iwvelando/mac-forecast/internal/optimizer"
	"github.com/iwvelando/mac-forecast/pkg/constants"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// Forecast holds all results of one scenario.
type Forecast struct {
	Name         string          `json:"name"`
	Reductions   []mac.Breakdown `json:"reductions"`
	ShareWeights []ShareWeight   `json:"shareWeights,omitempty"`
	// Targets holds the carbon prices found for the configured reduction targets.
	Targets  []optimization.Summary `json:"targets,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// ShareWeight is the calibrated share weight of one building technology.
type ShareWeight struct {
	Region        string  `json:"region"`
	Subsector     string  `json:"subsector"`
	Technology    string  `json:"technology"`
	Service       string  `json:"service"`
	Period        int     `json:"period"`
	Year          int     `json:"year"`
	InternalGains float64 `json:"internalGains"`
	ShareWeight   float64 `json:"shareWeight"`
}

// GetForecast processes the Forecasts for all active Scenarios using the
// prices in the configuration.
func GetForecast(logger *zap.Logger, conf config.Configuration) ([]Forecast, error) {
	return GetForecastWithPrices(logger, conf, nil)
}

// GetForecastWithPrices is GetForecast with an initial set of prices, for
// example loaded from a price database. Configured prices are applied on
// top of them.
func GetForecastWithPrices(logger *zap.Logger, conf config.Configuration, prices *marketplace.Marketplace) ([]Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cal := conf.Modeltime.WithDefaults()
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid modeltime: %w", err)
	}
	conf.Modeltime = cal

	regions := conf.RegionList()
	if len(regions) == 0 && prices != nil {
		regions = prices.Regions()
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions to forecast")
	}

	base := marketplace.New(logger)
	if prices != nil {
		copyQuotes(base, prices)
	}
	applyMarkets(base, conf.Markets)

	var baseWarnings []string
	baseModels := make([]*mac.Model, 0, len(conf.Macs))
	for _, def := range conf.Macs {
		model, warnings := mac.Parse(logger, cal, def)
		baseWarnings = append(baseWarnings, warnings...)
		baseModels = append(baseModels, model)
	}

	var results []Forecast
	for _, scenario := range conf.ActiveScenarios() {
		scenarioLogger := logger.With(zap.String("scenario", scenario.Name))
		result := Forecast{Name: scenario.Name}
		result.Warnings = append(result.Warnings, baseWarnings...)

		scenarioPrices := base
		if len(scenario.Markets) > 0 {
			scenarioPrices = marketplace.New(scenarioLogger)
			copyQuotes(scenarioPrices, base)
			applyMarkets(scenarioPrices, scenario.Markets)
		}

		models, warnings := scenarioModels(scenarioLogger, baseModels, scenario)
		result.Warnings = append(result.Warnings, warnings...)

		technologies, warnings := parseBuildings(scenarioLogger, conf.Buildings)
		result.Warnings = append(result.Warnings, warnings...)

		regionResults := make([]regionResult, len(regions))
		var wg sync.WaitGroup
		for i, region := range regions {
			wg.Add(1)
			go func(i int, region string) {
				defer wg.Done()
				regionResults[i] = forecastRegion(scenarioLogger.With(zap.String("region", region)),
					conf, models, technologies, scenarioPrices, region)
			}(i, region)
		}
		wg.Wait()

		for _, rr := range regionResults {
			result.Reductions = append(result.Reductions, rr.reductions...)
			result.ShareWeights = append(result.ShareWeights, rr.shareWeights...)
		}

		if len(conf.Targets) > 0 {
			runner := optimizer.NewRunner(scenarioLogger, scenarioPrices)
			result.Targets, warnings = runner.Run(models, conf.Targets)
			result.Warnings = append(result.Warnings, warnings...)
		}

		scenarioLogger.Debug(fmt.Sprintf("computed %d reductions and %d share weights",
			len(result.Reductions), len(result.ShareWeights)),
			zap.String("op", "forecast.GetForecast"),
		)
		results = append(results, result)
	}

	return results, nil
}

// scenarioModels deep copies the base models and applies the scenario's
// overrides to the copies.
func scenarioModels(logger *zap.Logger, baseModels []*mac.Model, scenario config.Scenario) ([]*mac.Model, []string) {
	var warnings []string
	models := make([]*mac.Model, len(baseModels))
	byName := make(map[string]*mac.Model, len(baseModels))
	for i, m := range baseModels {
		models[i] = m.Clone().WithLogger(logger)
		byName[m.Name()] = models[i]
	}

	for _, override := range scenario.Macs {
		name := config.MacName(override)
		model, ok := byName[name]
		if !ok {
			msg := fmt.Sprintf("scenario %s overrides unknown MAC %s", scenario.Name, name)
			logger.Warn(msg, zap.String("op", "forecast.scenarioModels"))
			warnings = append(warnings, msg)
			continue
		}
		warnings = append(warnings, model.Override(override)...)
	}

	for _, m := range models {
		if err := m.InitCalc(); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	return models, warnings
}

type subsectorTechnologies struct {
	subsector    config.Subsector
	technologies []*building.HeatCoolTechnology
}

func parseBuildings(logger *zap.Logger, subsectors []config.Subsector) ([]subsectorTechnologies, []string) {
	var warnings []string
	parsed := make([]subsectorTechnologies, 0, len(subsectors))
	for _, s := range subsectors {
		st := subsectorTechnologies{subsector: s}
		for _, def := range s.Technologies {
			tech, w := building.Parse(logger, def)
			warnings = append(warnings, w...)
			st.technologies = append(st.technologies, tech)
		}
		parsed = append(parsed, st)
	}
	return parsed, warnings
}

type regionResult struct {
	reductions   []mac.Breakdown
	shareWeights []ShareWeight
}

// forecastRegion evaluates one region. It works on its own copies of the
// models and technologies so regions can run concurrently.
func forecastRegion(logger *zap.Logger, conf config.Configuration, models []*mac.Model,
	subsectors []subsectorTechnologies, prices marketplace.PriceSource, region string) regionResult {
	var rr regionResult
	cal := conf.Modeltime

	for _, shared := range models {
		m := shared.Clone().WithLogger(logger)
		for period := cal.BasePeriod + 1; period < cal.Periods; period++ {
			rr.reductions = append(rr.reductions, m.Explain(prices, region, period))
		}
	}

	for _, st := range subsectors {
		s := st.subsector
		if s.Region != region {
			continue
		}
		for _, shared := range st.technologies {
			tech := shared.Clone()
			for period := 0; period < cal.Periods && period < len(s.Demand) && period < len(s.FloorSpace); period++ {
				info := building.Info{
					constants.InfoFloorSpace:         s.FloorSpace[period],
					constants.InfoAveInsulation:      s.AveInsulation,
					constants.InfoFloorToSurfaceArea: s.FloorToSurfaceArea,
				}
				tech.InitCalc(info)
				weight := tech.AdjustForCalibration(s.Demand[period], prices, region, info, period)
				rr.shareWeights = append(rr.shareWeights, ShareWeight{
					Region:        region,
					Subsector:     s.Name,
					Technology:    tech.Name,
					Service:       tech.Service.String(),
					Period:        period,
					Year:          cal.PeriodToYear(period),
					InternalGains: tech.EffectiveInternalGains(prices, region, period),
					ShareWeight:   weight,
				})
			}
		}
	}

	return rr
}

func applyMarkets(m *marketplace.Marketplace, markets []config.Market) {
	for _, market := range markets {
		m.SetSeries(market.Name, market.Region, market.Prices)
	}
}

func copyQuotes(dst, src *marketplace.Marketplace) {
	for _, q := range src.Quotes() {
		dst.SetPrice(q.Market, q.Region, q.Period, q.Price)
	}
}
