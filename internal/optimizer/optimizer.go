// Package optimizer searches for the carbon price at which a MAC curve
// reaches a target reduction.
package optimizer

import (
	"errors"
	"fmt"

	"github.com/iwvelando/mac-forecast/internal/config"
	"github.com/iwvelando/mac-forecast/internal/mac"
	"github.com/iwvelando/mac-forecast/pkg/curve"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/optimization"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultTolerance     = 0.01
	defaultMaxIterations = 100
)

// ErrInvalidBounds is returned when a search has an empty price range.
var ErrInvalidBounds = errors.New("invalid carbon price bounds")

// priceOverride replaces a single carbon price of an underlying source.
type priceOverride struct {
	marketplace.PriceSource
	market string
	region string
	period int
	price  float64
}

func (o priceOverride) Price(market, region string, period int, mustExist bool) float64 {
	if market == o.market && region == o.region && period == o.period {
		return o.price
	}
	return o.PriceSource.Price(market, region, period, mustExist)
}

// Runner evaluates target searches against one set of prices.
type Runner struct {
	logger *zap.Logger
	prices marketplace.PriceSource
}

// NewRunner creates a Runner. A nil price source is treated as empty.
func NewRunner(logger *zap.Logger, prices marketplace.PriceSource) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prices == nil {
		prices = marketplace.New(logger)
	}
	return &Runner{logger: logger, prices: prices}
}

func (r *Runner) evaluate(model *mac.Model, target config.Target, price float64) mac.Breakdown {
	source := priceOverride{
		PriceSource: r.prices,
		market:      model.Params().CarbonMarketName,
		region:      target.Region,
		period:      target.Period,
		price:       price,
	}
	return model.Explain(source, target.Region, target.Period)
}

// bounds returns the carbon price range to search. Without configured
// bounds the range spans the curve, stretched upwards so that cost
// reductions cannot push the effective price below the curve's maximum.
// A fuel shift clamps the price to the curve before the decay applies, so
// no stretch helps there and the range stays at the curve.
func (r *Runner) bounds(model *mac.Model, target config.Target) (float64, float64, error) {
	minX, maxX := model.Domain()
	if maxX == curve.NoValue && (target.MinPrice == nil || target.MaxPrice == nil) {
		return 0, 0, fmt.Errorf("gas %s: %w", model.Name(), mac.ErrEmptyCurve)
	}

	lower, upper := minX, maxX
	if maxX != curve.NoValue && maxX > 0 && model.Params().FuelShiftRange == 0 {
		if decay := r.evaluate(model, target, maxX).DecayFactor; decay > 0 && decay < 1 {
			upper = maxX / decay
		}
	}
	if target.MinPrice != nil {
		lower = *target.MinPrice
	}
	if target.MaxPrice != nil {
		upper = *target.MaxPrice
	}
	if lower > upper {
		return 0, 0, fmt.Errorf("%w: %s to %s", ErrInvalidBounds, formatPrice(lower), formatPrice(upper))
	}
	return lower, upper, nil
}

// Solve finds the lowest carbon price in the target's region and period at
// which model abates at least target.Reduction. The reduction is assumed to
// be non-decreasing in the carbon price. A target that cannot be reached
// within the bounds yields an unconverged summary at the upper bound. With
// both a fuel shift and a cost reduction the effective price never exceeds
// the decayed curve maximum, so targets above that reduction stay
// unconverged whatever the price.
func (r *Runner) Solve(model *mac.Model, target config.Target) (optimization.Summary, error) {
	tolerance := target.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	maxIterations := target.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	lower, upper, err := r.bounds(model, target)
	if err != nil {
		return optimization.Summary{}, err
	}

	summary := optimization.Summary{
		Gas:    model.Name(),
		Region: target.Region,
		Period: target.Period,
		Target: target.Reduction,
	}
	finish := func(price float64, b mac.Breakdown, iterations int, converged bool) optimization.Summary {
		summary.Year = b.Year
		summary.Price = price
		summary.Reduction = b.Reduction
		summary.Iterations = iterations
		summary.Converged = converged
		return summary
	}

	lowerEval := r.evaluate(model, target, lower)
	if lowerEval.Reduction >= target.Reduction {
		return finish(lower, lowerEval, 0, true), nil
	}

	upperEval := r.evaluate(model, target, upper)
	if upperEval.Reduction < target.Reduction {
		note := fmt.Sprintf("unable to reach reduction %s within carbon prices %s to %s",
			decimal.NewFromFloat(target.Reduction).StringFixed(4), formatPrice(lower), formatPrice(upper))
		r.logger.Warn(note,
			zap.String("op", "optimizer.Solve"),
			zap.String("gas", model.Name()),
			zap.String("region", target.Region),
			zap.Int("period", target.Period),
		)
		summary.Notes = append(summary.Notes, note)
		return finish(upper, upperEval, 0, false), nil
	}

	best := upperEval
	iterations := 0
	for iterations < maxIterations && upper-lower > tolerance {
		mid := lower + (upper-lower)/2
		evalMid := r.evaluate(model, target, mid)
		iterations++
		if evalMid.Reduction >= target.Reduction {
			best = evalMid
			if mid == upper {
				break
			}
			upper = mid
		} else {
			if mid == lower {
				break
			}
			lower = mid
		}
	}

	r.logger.Debug("carbon price search finished",
		zap.String("op", "optimizer.Solve"),
		zap.String("gas", model.Name()),
		zap.Float64("price", upper),
		zap.Int("iterations", iterations),
	)
	return finish(upper, best, iterations, true), nil
}

// Run solves every target against the model named by its gas. Targets for
// unknown gases are reported in the returned warnings.
func (r *Runner) Run(models []*mac.Model, targets []config.Target) ([]optimization.Summary, []string) {
	byName := make(map[string]*mac.Model, len(models))
	for _, m := range models {
		byName[m.Name()] = m
	}

	var summaries []optimization.Summary
	var warnings []string
	for _, target := range targets {
		model, ok := byName[target.Gas]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("target references unknown MAC '%s'", target.Gas))
			continue
		}
		summary, err := r.Solve(model, target)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("target for %s in %s: %v", target.Gas, target.Region, err))
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, warnings
}

func formatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}
