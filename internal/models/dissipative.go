package models

import (
	"math"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

// DecayingQubit is the qubit of [Qubit] with spontaneous decay at rate γ,
// acting on vectorised density matrices.
func DecayingQubit(omega, gamma float64) *objective.Dynamics {
	h := quantum.SigmaZ().Scale(complex(-omega/2, 0))
	var collapse []*quantum.Operator
	if gamma > 0 {
		collapse = append(collapse, quantum.SigmaMinus().Scale(complex(math.Sqrt(gamma), 0)))
	}
	return &objective.Dynamics{
		Kind:  quantum.Liouvillian,
		Drift: quantum.Lindblad(h, collapse...),
		Terms: []objective.Term{{Control: "eps", Op: quantum.Lindblad(quantum.SigmaX())}},
	}
}

// With these vectorised states τ = Tr(ρ_tgt ρ), the target population.
func dissipative(p config.ModelParams) []*objective.Objective {
	return []*objective.Objective{{
		Label:    "rho 0->1",
		Initial:  quantum.Vec(quantum.DensityMatrix(quantum.Ket(2, 0))),
		Target:   quantum.Vec(quantum.DensityMatrix(quantum.Ket(2, 1))),
		Dynamics: DecayingQubit(p.Omega, p.Decay),
	}}
}
