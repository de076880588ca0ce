package pulse

import (
	"math"

	"github.com/san-kum/krotov/internal/grid"
)

// Shape is an update-shape function S(t) in [0, 1]. It scales the Krotov
// update pointwise, e.g. to keep the pulse switched off at the edges.
type Shape func(t float64) float64

// Ramp selects the edge profile of a Flattop.
type Ramp int

const (
	SinSqRamp Ramp = iota
	BlackmanRamp
)

func One() Shape { return func(float64) float64 { return 1 } }

func Zero() Shape { return func(float64) float64 { return 0 } }

// Box is 1 on [t0, t1] and 0 elsewhere.
func Box(t0, t1 float64) Shape {
	return func(t float64) float64 {
		if t < t0 || t > t1 {
			return 0
		}
		return 1
	}
}

// SinSq is sin²(π(t-t0)/(t1-t0)) on [t0, t1].
func SinSq(t0, t1 float64) Shape {
	return func(t float64) float64 {
		if t < t0 || t > t1 {
			return 0
		}
		s := math.Sin(math.Pi * (t - t0) / (t1 - t0))
		return s * s
	}
}

// Blackman is the Blackman window on [t0, t1] with the usual a = 0.16.
func Blackman(t0, t1 float64) Shape {
	const a = 0.16
	a0, a1, a2 := (1-a)/2, 0.5, a/2
	return func(t float64) float64 {
		if t < t0 || t > t1 {
			return 0
		}
		x := (t - t0) / (t1 - t0)
		return a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
}

// Flattop is 1 on [t0+rise, t1-rise] with smooth ramps of width rise.
func Flattop(t0, t1, rise float64, ramp Ramp) Shape {
	return func(t float64) float64 {
		if t < t0 || t > t1 {
			return 0
		}
		var x float64
		switch {
		case t < t0+rise:
			x = (t - t0) / rise
		case t > t1-rise:
			x = (t1 - t) / rise
		default:
			return 1
		}
		if ramp == BlackmanRamp {
			// rising half of a Blackman window of width 2·rise
			return Blackman(0, 2)(x)
		}
		s := math.Sin(0.5 * math.Pi * x)
		return s * s
	}
}

// Sample evaluates shape at the interval midpoints of g.
func Sample(shape Shape, g *grid.Grid) []float64 {
	if shape == nil {
		shape = One()
	}
	return Discretize(shape, g)
}
