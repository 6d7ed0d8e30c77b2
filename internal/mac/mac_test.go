package mac

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/iwvelando/mac-forecast/pkg/curve"
	"github.com/iwvelando/mac-forecast/pkg/marketplace"
	"github.com/iwvelando/mac-forecast/pkg/modeltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const region = "USA"

func testPoints() []curve.Point {
	return []curve.Point{{X: 0, Y: 0}, {X: 100, Y: 0.5}, {X: 200, Y: 0.9}}
}

func newTestModel(t *testing.T, mutate func(p *Params)) *Model {
	t.Helper()
	cal := modeltime.Default()
	p := DefaultParams(cal)
	if mutate != nil {
		mutate(&p)
	}
	return New(zap.NewNop(), cal, "CH4", testPoints(), p)
}

func carbonPrices(prices map[int]float64) *marketplace.Marketplace {
	m := marketplace.New(nil)
	for period, price := range prices {
		m.SetPrice("CO2", region, period, price)
	}
	return m
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams(modeltime.Default())

	assert.Equal(t, 1.0, p.PhaseIn)
	assert.Equal(t, 1975, p.BaseCostYear)
	assert.Equal(t, 2095, p.FinalReductionYear)
	assert.Equal(t, "CO2", p.CarbonMarketName)
	assert.Zero(t, p.CostReductionRate)
	assert.Zero(t, p.FuelShiftRange)
	assert.Zero(t, p.FinalReduction)
	assert.False(t, p.NoBelowZero)
}

func TestFindReductionInterpolates(t *testing.T) {
	m := newTestModel(t, nil)
	prices := carbonPrices(map[int]float64{2: 150})

	assert.InDelta(t, 0.7, m.FindReduction(prices, region, 2), 1e-12)
}

func TestFindReductionMissingPriceWithNoBelowZero(t *testing.T) {
	m := newTestModel(t, func(p *Params) { p.NoBelowZero = true })
	prices := marketplace.New(nil)

	b := m.Explain(prices, region, 2)

	assert.Equal(t, 0.0, b.CarbonPrice)
	assert.Equal(t, 0.0, b.EffectivePrice)
	assert.Equal(t, 0.0, b.Reduction)
}

func TestNoBelowZero(t *testing.T) {
	prices := carbonPrices(map[int]float64{2: -50})

	permissive := newTestModel(t, nil)
	assert.InDelta(t, -0.25, permissive.FindReduction(prices, region, 2), 1e-12)

	strict := newTestModel(t, func(p *Params) { p.NoBelowZero = true })
	assert.Equal(t, 0.0, strict.FindReduction(prices, region, 2))
}

func TestCurveValueClampsAboveMaxPrice(t *testing.T) {
	m := newTestModel(t, nil)
	atMax := m.CurveValue(200)

	for _, price := range []float64{200, 200.0001, 250, 1e6, math.MaxFloat64} {
		assert.Equal(t, atMax, m.CurveValue(price), "price %v", price)
	}
	assert.Equal(t, 0.9, atMax)
}

func TestResultIsNotClampedToUnitInterval(t *testing.T) {
	cal := modeltime.Default()
	m := New(nil, cal, "N2O", []curve.Point{{X: 0, Y: 0}, {X: 100, Y: 1.5}}, DefaultParams(cal))
	prices := carbonPrices(map[int]float64{3: 100})

	assert.Equal(t, 1.5, m.FindReduction(prices, region, 3))
}

func TestPhaseInAppliedInPipeline(t *testing.T) {
	m := newTestModel(t, func(p *Params) { p.PhaseIn = 4 })
	prices := carbonPrices(map[int]float64{1: 200, 3: 200, 5: 200})

	assert.Equal(t, 0.0, m.FindReduction(prices, region, 1))
	assert.InDelta(t, 0.45, m.FindReduction(prices, region, 3), 1e-12)
	assert.InDelta(t, 0.9, m.FindReduction(prices, region, 5), 1e-12)
}

func TestCostReductionAppliedInPipeline(t *testing.T) {
	m := newTestModel(t, func(p *Params) {
		p.CostReductionRate = 0.1
		p.BaseCostYear = 1990
	})
	prices := carbonPrices(map[int]float64{1: 100, 2: 100})

	b := m.Explain(prices, region, 2)
	expectedFactor := 1 / math.Pow(1.1, 15)

	assert.InDelta(t, expectedFactor, b.DecayFactor, 1e-12)
	assert.InDelta(t, 100*expectedFactor, b.EffectivePrice, 1e-9)
	assert.InDelta(t, 0.005*100*expectedFactor, b.Reduction, 1e-9)

	// No decay at or before the base cost year. Period 1 is still fully
	// phased out with phaseIn 1.
	b = m.Explain(prices, region, 1)
	assert.Equal(t, 1.0, b.DecayFactor)
	assert.InDelta(t, 0.5, b.RawReduction, 1e-12)
	assert.Equal(t, 0.0, b.PhaseIn)
	assert.Equal(t, 0.0, b.Reduction)
}

func TestFuelShiftAppliedInPipeline(t *testing.T) {
	m := newTestModel(t, func(p *Params) {
		p.FuelShiftRange = 50
		p.CurveShiftFuelName = "natural gas"
	})
	prices := carbonPrices(map[int]float64{3: 100})
	prices.SetPrice("natural gas", region, 1, 2)
	prices.SetPrice("natural gas", region, 3, 4)

	b := m.Explain(prices, region, 3)

	assert.InDelta(t, 111.25, b.ShiftedPrice, 1e-9)
	assert.InDelta(t, 0.5+0.004*11.25, b.Reduction, 1e-9)
}

func TestTechChangeCapAppliedInPipeline(t *testing.T) {
	m := newTestModel(t, func(p *Params) {
		p.FinalReduction = 1.0
		p.FinalReductionYear = 2050
	})
	prices := carbonPrices(map[int]float64{3: 200, 7: 200})

	b := m.Explain(prices, region, 3)
	assert.InDelta(t, 0.9/3, b.TechChange, 1e-12)
	assert.InDelta(t, 0.9*0.9/3, b.Reduction, 1e-12)

	after := m.Explain(prices, region, 7)
	assert.InDelta(t, 0.9, after.TechChange, 1e-12)
	assert.InDelta(t, 0.81, after.Reduction, 1e-12)
}

func TestTechChangeCapSkippedWhenCurveReachesTarget(t *testing.T) {
	m := newTestModel(t, func(p *Params) {
		p.FinalReduction = 0.8
		p.FinalReductionYear = 2050
	})
	prices := carbonPrices(map[int]float64{3: 200})

	b := m.Explain(prices, region, 3)

	assert.Equal(t, 1.0, b.TechChange)
	assert.InDelta(t, 0.9, b.Reduction, 1e-12)
}

func TestTechChangeCapFinalPeriodTwoIsFinite(t *testing.T) {
	m := newTestModel(t, func(p *Params) {
		p.FinalReduction = 1.0
		p.FinalReductionYear = 2005
	})
	prices := carbonPrices(map[int]float64{2: 200, 3: 200})

	for _, period := range []int{2, 3} {
		b := m.Explain(prices, region, period)
		assert.False(t, math.IsNaN(b.Reduction) || math.IsInf(b.Reduction, 0), "period %d", period)
		assert.InDelta(t, 0.9, b.TechChange, 1e-12)
		assert.InDelta(t, 0.81, b.Reduction, 1e-12)
	}
}

func TestEmptyCurve(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cal := modeltime.Default()
	m := New(zap.New(core), cal, "HFC", nil, DefaultParams(cal))

	err := m.InitCalc()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyCurve))
	assert.Equal(t, 1, logs.FilterMessageSnippet("appears to have no data").Len())

	prices := carbonPrices(map[int]float64{2: 100})
	assert.Equal(t, 0.0, m.FindReduction(prices, region, 2))
	assert.Equal(t, 1, logs.FilterMessageSnippet("evaluating MAC curve").Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestInitCalcMissingShiftFuel(t *testing.T) {
	m := newTestModel(t, func(p *Params) { p.FuelShiftRange = 10 })

	err := m.InitCalc()
	assert.True(t, errors.Is(err, ErrMissingShiftFuel))
	assert.False(t, errors.Is(err, ErrEmptyCurve))
}

func TestInitCalcValidModel(t *testing.T) {
	assert.NoError(t, newTestModel(t, nil).InitCalc())
}

func TestParse(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	values := map[string]interface{}{
		"name":              "CH4",
		"phaseIn":           3,
		"costreductionrate": "0.02",
		"noBelowZero":       true,
		"colour":            "blue",
		"reductions": []interface{}{
			map[string]interface{}{"tax": 200, "reduction": 0.9},
			map[string]interface{}{"tax": 0, "reduction": 0},
			map[interface{}]interface{}{"tax": "100", "reduction": "0.5"},
		},
	}

	m, warnings := Parse(zap.New(core), modeltime.Default(), values)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "colour")
	assert.Equal(t, 1, logs.Len())

	assert.Equal(t, "CH4", m.Name())
	p := m.Params()
	assert.Equal(t, 3.0, p.PhaseIn)
	assert.Equal(t, 0.02, p.CostReductionRate)
	assert.True(t, p.NoBelowZero)
	assert.Equal(t, 1975, p.BaseCostYear)
	assert.Equal(t, 2095, p.FinalReductionYear)
	assert.Equal(t, testPoints(), m.Points())
}

func TestParseBadReductions(t *testing.T) {
	m, warnings := Parse(nil, modeltime.Default(), map[string]interface{}{
		"name":       "CH4",
		"reductions": []interface{}{map[string]interface{}{"reduction": 0.5}},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "missing tax")
	assert.Empty(t, m.Points())
	assert.True(t, errors.Is(m.InitCalc(), ErrEmptyCurve))
}

func TestOverrideRejectsCurve(t *testing.T) {
	m := newTestModel(t, nil)

	warnings := m.Override(map[string]interface{}{
		"phaseIn":    2,
		"reductions": []interface{}{map[string]interface{}{"tax": 1, "reduction": 1}},
	})

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "cannot be overridden")
	assert.Equal(t, 2.0, m.Params().PhaseIn)
	assert.Equal(t, testPoints(), m.Points())
}

func TestCloneIsDeep(t *testing.T) {
	original := newTestModel(t, nil)
	clone := original.Clone()

	clone.Override(map[string]interface{}{"phaseIn": 5, "noBelowZero": true})

	assert.Equal(t, 1.0, original.Params().PhaseIn)
	assert.False(t, original.Params().NoBelowZero)
	assert.Equal(t, 5.0, clone.Params().PhaseIn)
	assert.Equal(t, original.Points(), clone.Points())
	assert.NotSame(t, original.curve, clone.curve)
}

func TestDomain(t *testing.T) {
	minX, maxX := newTestModel(t, nil).Domain()
	assert.Equal(t, 0.0, minX)
	assert.Equal(t, 200.0, maxX)
}

func TestConcurrentFindReduction(t *testing.T) {
	m := newTestModel(t, func(p *Params) { p.PhaseIn = 2 })
	prices := carbonPrices(map[int]float64{1: 150, 2: 150, 3: 150})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.InDelta(t, 0.35, m.FindReduction(prices, region, 2), 1e-12)
		}()
	}
	wg.Wait()
}
