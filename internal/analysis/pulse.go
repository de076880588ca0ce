package analysis

import (
	"math"

	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/krotov"
)

// Fluence is ∫ε² dt.
func Fluence(values []float64, g *grid.Grid) float64 {
	var f float64
	for i, v := range values {
		f += v * v * g.Dt(i)
	}
	return f
}

// Area is ∫ε dt.
func Area(values []float64, g *grid.Grid) float64 {
	var a float64
	for i, v := range values {
		a += v * g.Dt(i)
	}
	return a
}

// Peak is max |ε|.
func Peak(values []float64) float64 {
	var p float64
	for _, v := range values {
		p = math.Max(p, math.Abs(v))
	}
	return p
}

type Summary struct {
	Control  string  `json:"control"`
	Fluence  float64 `json:"fluence"`
	Area     float64 `json:"area"`
	Peak     float64 `json:"peak"`
	Dominant float64 `json:"dominant_frequency"`
}

// Summarize fills Dominant only when the grid is uniform.
func Summarize(name string, values []float64, g *grid.Grid) Summary {
	s := Summary{
		Control: name,
		Fluence: Fluence(values, g),
		Area:    Area(values, g),
		Peak:    Peak(values),
	}
	if sp, err := PowerSpectrum(values, g); err == nil {
		s.Dominant = sp.Dominant()
	}
	return s
}

// UpdateNorms returns ∫Δε² dt of one control for every recorded iteration.
func UpdateNorms(history []krotov.IterationRecord, control string) []float64 {
	out := make([]float64, len(history))
	for i, rec := range history {
		out[i] = rec.GaIntegrals[control]
	}
	return out
}
