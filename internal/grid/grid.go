package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidGrid = errors.New("grid: invalid time grid")

// Grid is an immutable, strictly increasing sequence of time points
// t_0..t_N. Controls live on the N intervals between consecutive points and
// are sampled at the interval midpoints.
type Grid struct {
	points []float64
}

// New validates points and copies them into a Grid.
func New(points []float64) (*Grid, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidGrid, len(points))
	}
	for i, t := range points {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: point %d is not finite", ErrInvalidGrid, i)
		}
		if i > 0 && t <= points[i-1] {
			return nil, fmt.Errorf("%w: points not strictly increasing at index %d (%g <= %g)",
				ErrInvalidGrid, i, t, points[i-1])
		}
	}
	p := make([]float64, len(points))
	copy(p, points)
	return &Grid{points: p}, nil
}

// Uniform returns n equally spaced points spanning [t0, t1].
func Uniform(t0, t1 float64, n int) (*Grid, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidGrid, n)
	}
	if !(t1 > t0) {
		return nil, fmt.Errorf("%w: duration must be positive, got [%g, %g]", ErrInvalidGrid, t0, t1)
	}
	p := make([]float64, n)
	dt := (t1 - t0) / float64(n-1)
	for i := range p {
		p[i] = t0 + float64(i)*dt
	}
	p[n-1] = t1
	return New(p)
}

// Len is the number of time points.
func (g *Grid) Len() int { return len(g.points) }

// Steps is the number of intervals, Len()-1.
func (g *Grid) Steps() int { return len(g.points) - 1 }

func (g *Grid) At(i int) float64 { return g.points[i] }

func (g *Grid) T0() float64 { return g.points[0] }

func (g *Grid) T1() float64 { return g.points[len(g.points)-1] }

func (g *Grid) Duration() float64 { return g.T1() - g.T0() }

// Dt returns the width of interval i.
func (g *Grid) Dt(i int) float64 { return g.points[i+1] - g.points[i] }

// Midpoint returns t_{i+1/2}.
func (g *Grid) Midpoint(i int) float64 { return 0.5 * (g.points[i] + g.points[i+1]) }

func (g *Grid) Points() []float64 {
	p := make([]float64, len(g.points))
	copy(p, g.points)
	return p
}

func (g *Grid) Midpoints() []float64 {
	m := make([]float64, g.Steps())
	for i := range m {
		m[i] = g.Midpoint(i)
	}
	return m
}

// Interval returns the index of the interval containing t, clamped to
// [0, Steps()-1].
func (g *Grid) Interval(t float64) int {
	i := sort.SearchFloat64s(g.points, t)
	if i < len(g.points) && g.points[i] == t {
		i++
	}
	i--
	if i < 0 {
		return 0
	}
	if i >= g.Steps() {
		return g.Steps() - 1
	}
	return i
}

// Equal reports whether both grids have identical points.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || len(g.points) != len(other.points) {
		return false
	}
	for i, t := range g.points {
		if other.points[i] != t {
			return false
		}
	}
	return true
}
