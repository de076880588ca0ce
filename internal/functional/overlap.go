package functional

import (
	"math/cmplx"

	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

// SS is the state-to-state fidelity F = (1/N) Σ w_k |τ_k|². It ignores the
// phase of each τ_k.
type SS struct{}

func (SS) Name() string { return "F_ss" }
func (SS) Sense() Sense { return Maximize }

func (SS) Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
	taus, err := Taus(finals, objs)
	if err != nil {
		return 0, nil, err
	}
	n := float64(len(objs))
	var f float64
	chis := make([]quantum.State, len(objs))
	for k, o := range objs {
		a := cmplx.Abs(taus[k])
		f += o.W() * a * a
		chis[k] = o.Target.Scale(complex(o.W()/n, 0) * taus[k])
	}
	return f / n, chis, nil
}

// SM is the square-modulus fidelity F = |(1/N) Σ w_k τ_k|². It is sensitive
// to relative phases between objectives, which gate optimization needs.
type SM struct{}

func (SM) Name() string { return "F_sm" }
func (SM) Sense() Sense { return Maximize }

func (SM) Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
	taus, err := Taus(finals, objs)
	if err != nil {
		return 0, nil, err
	}
	n := float64(len(objs))
	var z complex128
	for k, o := range objs {
		z += complex(o.W(), 0) * taus[k]
	}
	z /= complex(n, 0)

	chis := make([]quantum.State, len(objs))
	for k, o := range objs {
		chis[k] = o.Target.Scale(complex(o.W()/n, 0) * z)
	}
	a := cmplx.Abs(z)
	return a * a, chis, nil
}

// RE is the real-part fidelity F = Re((1/N) Σ w_k τ_k). It also fixes the
// global phase.
type RE struct{}

func (RE) Name() string { return "F_re" }
func (RE) Sense() Sense { return Maximize }

func (RE) Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
	taus, err := Taus(finals, objs)
	if err != nil {
		return 0, nil, err
	}
	n := float64(len(objs))
	var f float64
	chis := make([]quantum.State, len(objs))
	for k, o := range objs {
		f += o.W() * real(taus[k])
		chis[k] = o.Target.Scale(complex(o.W()/(2*n), 0))
	}
	return f / n, chis, nil
}
