// Package curve provides a piecewise-linear point-set curve used to look up
// reduction fractions by carbon price.
package curve

import (
	"math"
	"sort"

	"github.com/iwvelando/mac-forecast/pkg/mathutil"
	"gonum.org/v1/gonum/interp"
)

// NoValue is returned by Y when the curve cannot be evaluated, and by MaxX
// when the curve holds no points.
const NoValue = -math.MaxFloat64

// Point is a single (x, y) calibration pair.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// PointSetCurve is an ordered set of points evaluated by linear
// interpolation. A PointSetCurve is immutable once built.
type PointSetCurve struct {
	points []Point
	fit    *interp.PiecewiseLinear
}

// New builds a curve from the given points. Points are sorted by X; when two
// points share an X the one appearing later in the input wins. Points with a
// non-finite coordinate are dropped.
func New(points []Point) *PointSetCurve {
	byX := make(map[float64]float64, len(points))
	for _, p := range points {
		if !mathutil.IsFinite(p.X) || !mathutil.IsFinite(p.Y) {
			continue
		}
		byX[p.X] = p.Y
	}

	sorted := make([]Point, 0, len(byX))
	for x, y := range byX {
		sorted = append(sorted, Point{X: x, Y: y})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	c := &PointSetCurve{points: sorted}
	if len(sorted) >= 2 {
		xs := make([]float64, len(sorted))
		ys := make([]float64, len(sorted))
		for i, p := range sorted {
			xs[i] = p.X
			ys[i] = p.Y
		}
		fit := &interp.PiecewiseLinear{}
		if err := fit.Fit(xs, ys); err == nil {
			c.fit = fit
		}
	}
	return c
}

// Len returns the number of distinct points in the curve.
func (c *PointSetCurve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.points)
}

// MinX returns the smallest x value, or math.MaxFloat64 for an empty curve.
func (c *PointSetCurve) MinX() float64 {
	if c.Len() == 0 {
		return math.MaxFloat64
	}
	return c.points[0].X
}

// MaxX returns the largest x value, or NoValue for an empty curve.
func (c *PointSetCurve) MaxX() float64 {
	if c.Len() == 0 {
		return NoValue
	}
	return c.points[len(c.points)-1].X
}

// Y evaluates the curve at x. Inside the x domain the value is linearly
// interpolated; outside it the first or last segment is extended. A single
// point curve is constant. NoValue is returned for an empty curve or a
// non-finite x.
func (c *PointSetCurve) Y(x float64) float64 {
	n := c.Len()
	switch {
	case n == 0, math.IsNaN(x):
		return NoValue
	case n == 1:
		return c.points[0].Y
	}

	first, last := c.points[0], c.points[n-1]
	switch {
	case x < first.X:
		next := c.points[1]
		return mathutil.Lerp(first.X, first.Y, next.X, next.Y, x)
	case x > last.X:
		prev := c.points[n-2]
		return mathutil.Lerp(prev.X, prev.Y, last.X, last.Y, x)
	}

	if c.fit == nil {
		return NoValue
	}
	y := c.fit.Predict(x)
	if !mathutil.IsFinite(y) {
		return NoValue
	}
	return y
}

// SortedPairs returns a copy of the curve's points in ascending x order.
func (c *PointSetCurve) SortedPairs() []Point {
	if c.Len() == 0 {
		return nil
	}
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}

// Clone returns an independent deep copy of the curve.
func (c *PointSetCurve) Clone() *PointSetCurve {
	if c == nil {
		return New(nil)
	}
	return New(c.points)
}
