package pulse

import (
	"fmt"

	"github.com/san-kum/krotov/internal/grid"
)

// Control is a named piecewise-constant control field with one value per
// time-grid interval.
type Control struct {
	Name   string
	Values []float64
}

func New(name string, values []float64) *Control {
	v := make([]float64, len(values))
	copy(v, values)
	return &Control{Name: name, Values: v}
}

// Zeros returns a control that is zero on every interval of g.
func Zeros(name string, g *grid.Grid) *Control {
	return &Control{Name: name, Values: make([]float64, g.Steps())}
}

// FromFunc samples fn at the interval midpoints of g.
func FromFunc(name string, g *grid.Grid, fn func(t float64) float64) *Control {
	return &Control{Name: name, Values: Discretize(fn, g)}
}

func (c *Control) Len() int { return len(c.Values) }

func (c *Control) At(step int) float64 { return c.Values[step] }

func (c *Control) Clone() *Control { return New(c.Name, c.Values) }

// Discretize samples fn at the midpoints of g.
func Discretize(fn func(t float64) float64, g *grid.Grid) []float64 {
	v := make([]float64, g.Steps())
	for i := range v {
		v[i] = fn(g.Midpoint(i))
	}
	return v
}

// Func turns per-interval values back into a callable, piecewise-constant
// pulse. It panics if len(values) != g.Steps().
func Func(values []float64, g *grid.Grid) func(t float64) float64 {
	if len(values) != g.Steps() {
		panic(fmt.Sprintf("pulse: %d values for a grid with %d intervals", len(values), g.Steps()))
	}
	v := make([]float64, len(values))
	copy(v, values)
	t0, t1 := g.T0(), g.T1()
	return func(t float64) float64 {
		if t < t0 || t > t1 {
			return 0
		}
		return v[g.Interval(t)]
	}
}
