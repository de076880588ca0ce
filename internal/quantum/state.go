package quantum

import (
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
)

type State []complex128

// Ket returns the i-th basis state of a dim-dimensional Hilbert space.
func Ket(dim, i int) State {
	s := make(State, dim)
	s[i] = 1
	return s
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) Dim() int { return len(s) }

// IsValid reports whether every amplitude is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return cmplxs.Norm(s, 2)
}

// Overlap returns ⟨s|other⟩.
func (s State) Overlap(other State) complex128 {
	return cmplxs.Dot(s, other)
}

func (s State) Add(other State) State {
	return cmplxs.AddTo(make(State, len(s)), s, other)
}

func (s State) Sub(other State) State {
	return cmplxs.SubTo(make(State, len(s)), s, other)
}

func (s State) Scale(factor complex128) State {
	return cmplxs.ScaleTo(make(State, len(s)), factor, s)
}

// Normalize returns s/‖s‖. The zero vector is returned unchanged.
func (s State) Normalize() State {
	n := s.Norm()
	if n == 0 {
		return s.Clone()
	}
	return cmplxs.ScaleRealTo(make(State, len(s)), 1/n, s)
}

// Population returns |⟨basis_i|s⟩|².
func (s State) Population(i int) float64 {
	v := cmplx.Abs(s[i])
	return v * v
}

// Equal reports whether s and other agree elementwise within tol.
func (s State) Equal(other State, tol float64) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		// written as !(d <= tol) so that NaN never compares equal
		if d := cmplx.Abs(s[i] - other[i]); !(d <= tol) {
			return false
		}
	}
	return true
}
