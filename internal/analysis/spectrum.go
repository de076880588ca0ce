package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/krotov/internal/grid"
)

var ErrNonUniform = errors.New("analysis: spectrum needs a uniform grid")

type Spectrum struct {
	Freq  []float64 `json:"freq"`
	Power []float64 `json:"power"`
}

// PowerSpectrum returns |X_k|²/n for k = 0..n/2, with frequencies in cycles
// per unit time. values holds one sample per grid interval.
func PowerSpectrum(values []float64, g *grid.Grid) (*Spectrum, error) {
	n := len(values)
	if n != g.Steps() {
		return nil, errors.New("analysis: one sample per interval required")
	}
	dt := g.Dt(0)
	for i := 1; i < n; i++ {
		if math.Abs(g.Dt(i)-dt) > 1e-9*dt {
			return nil, ErrNonUniform
		}
	}

	x := fft.FFTReal(values)
	bins := n/2 + 1
	s := &Spectrum{Freq: make([]float64, bins), Power: make([]float64, bins)}
	for k := 0; k < bins; k++ {
		a := cmplx.Abs(x[k])
		s.Freq[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = a * a / float64(n)
	}
	return s, nil
}

// Dominant returns the frequency with the most power, ignoring DC.
func (s *Spectrum) Dominant() float64 {
	best, at := -1.0, 0.0
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > best {
			best, at = s.Power[k], s.Freq[k]
		}
	}
	return at
}
