package optimizer

import (
	"errors"
	"testing"

	"github.com/iwvelando/mac-forecast/internal/config"
	"github.com/iwvelando/mac-forecast/internal/mac"
	"github.com/iwvelando/mac-forecast/pkg/curve"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/modeltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func floatPtr(v float64) *float64 {
	return &v
}

func newModel(name string, points []curve.Point, mutate func(p *mac.Params)) *mac.Model {
	cal := modeltime.Default()
	p := mac.DefaultParams(cal)
	if mutate != nil {
		mutate(&p)
	}
	return mac.New(zap.NewNop(), cal, name, points, p)
}

func ch4(mutate func(p *mac.Params)) *mac.Model {
	return newModel("CH4", []curve.Point{{X: 0, Y: 0}, {X: 100, Y: 0.5}, {X: 200, Y: 0.9}}, mutate)
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name      string
		model     *mac.Model
		target    config.Target
		price     float64
		tolerance float64
		converged bool
	}{
		{
			name:      "Interior target",
			model:     ch4(nil),
			target:    config.Target{Region: "USA", Period: 2, Reduction: 0.7},
			price:     150,
			tolerance: 0.01,
			converged: true,
		},
		{
			name:      "Tight tolerance",
			model:     ch4(nil),
			target:    config.Target{Region: "USA", Period: 2, Reduction: 0.25, Tolerance: 1e-6},
			price:     50,
			tolerance: 1e-6,
			converged: true,
		},
		{
			name:      "Zero target is reached at the lower bound",
			model:     ch4(nil),
			target:    config.Target{Region: "USA", Period: 2, Reduction: 0},
			price:     0,
			converged: true,
		},
		{
			name:      "Phase-in halves the reduction",
			model:     ch4(func(p *mac.Params) { p.PhaseIn = 2 }),
			target:    config.Target{Region: "USA", Period: 2, Reduction: 0.25},
			price:     100,
			tolerance: 0.01,
			converged: true,
		},
		{
			name:      "Unreachable target stops at the upper bound",
			model:     ch4(nil),
			target:    config.Target{Region: "USA", Period: 2, Reduction: 0.95},
			price:     200,
			converged: false,
		},
		{
			name:      "Explicit bounds",
			model:     ch4(nil),
			target:    config.Target{Region: "USA", Period: 2, Reduction: 0.95, MaxPrice: floatPtr(1000)},
			price:     1000,
			converged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(nil, nil)
			summary, err := runner.Solve(tt.model, tt.target)
			require.NoError(t, err)

			assert.Equal(t, tt.converged, summary.Converged)
			assert.InDelta(t, tt.price, summary.Price, tt.tolerance+1e-9)
			if tt.converged {
				assert.GreaterOrEqual(t, summary.Reduction, tt.target.Reduction)
				assert.Empty(t, summary.Notes)
			} else {
				assert.Len(t, summary.Notes, 1)
				assert.Greater(t, summary.Shortfall(), 0.0)
			}
		})
	}
}

func TestSolveStretchesBoundsForCostReduction(t *testing.T) {
	model := ch4(func(p *mac.Params) {
		p.CostReductionRate = 0.01
		p.BaseCostYear = 1975
	})
	target := config.Target{Region: "USA", Period: 2, Reduction: 0.85}

	summary, err := NewRunner(nil, nil).Solve(model, target)
	require.NoError(t, err)

	// The effective price is decayed over 30 years, so the carbon price
	// must exceed the curve's largest price.
	assert.True(t, summary.Converged)
	assert.Greater(t, summary.Price, 200.0)
	assert.GreaterOrEqual(t, summary.Reduction, 0.85)
}

func TestSolveFuelShiftKeepsCurveBounds(t *testing.T) {
	model := ch4(func(p *mac.Params) {
		p.CostReductionRate = 0.01
		p.BaseCostYear = 1975
		p.FuelShiftRange = 40
		p.CurveShiftFuelName = "natural gas"
	})
	prices := marketplace.New(nil)
	prices.SetPrice("natural gas", "USA", 1, 4)
	prices.SetPrice("natural gas", "USA", 2, 4)

	summary, err := NewRunner(nil, prices).Solve(model, config.Target{Region: "USA", Period: 2, Reduction: 0.9})
	require.NoError(t, err)

	// The shift clamps the price to 200 before the decay, so 0.9 is out of reach.
	assert.False(t, summary.Converged)
	assert.Equal(t, 200.0, summary.Price)
	assert.Less(t, summary.Reduction, 0.9)
	require.Len(t, summary.Notes, 1)
	assert.Contains(t, summary.Notes[0], "0.00 to 200.00")
}

func TestSolveKeepsOtherPrices(t *testing.T) {
	prices := marketplace.New(nil)
	prices.SetPrice("CO2", "USA", 3, 1000)

	summary, err := NewRunner(nil, prices).Solve(ch4(nil), config.Target{Region: "USA", Period: 2, Reduction: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 100, summary.Price, 0.01)
	assert.Equal(t, 1000.0, prices.Price("CO2", "USA", 3, true))
}

func TestSolveEmptyCurve(t *testing.T) {
	model := newModel("HFC", nil, nil)
	_, err := NewRunner(nil, nil).Solve(model, config.Target{Region: "USA", Period: 2, Reduction: 0.5})
	assert.True(t, errors.Is(err, mac.ErrEmptyCurve))
}

func TestSolveInvalidBounds(t *testing.T) {
	target := config.Target{Region: "USA", Period: 2, Reduction: 0.5, MinPrice: floatPtr(300), MaxPrice: floatPtr(100)}
	_, err := NewRunner(nil, nil).Solve(ch4(nil), target)
	assert.True(t, errors.Is(err, ErrInvalidBounds))
}

func TestSolveLogsUnreachableTarget(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	runner := NewRunner(zap.New(core), nil)

	_, err := runner.Solve(ch4(nil), config.Target{Region: "USA", Period: 2, Reduction: 0.95})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "unable to reach reduction 0.9500")
}

func TestRun(t *testing.T) {
	models := []*mac.Model{ch4(nil)}
	targets := []config.Target{
		{Gas: "CH4", Region: "USA", Period: 2, Reduction: 0.5},
		{Gas: "N2O", Region: "USA", Period: 2, Reduction: 0.5},
	}

	summaries, warnings := NewRunner(nil, nil).Run(models, targets)
	require.Len(t, summaries, 1)
	assert.Equal(t, "CH4", summaries[0].Gas)
	assert.Equal(t, 2005, summaries[0].Year)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "N2O")
}
