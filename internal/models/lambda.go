package models

import (
	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

// LambdaSystem is a three-level Λ system in the rotating frame. The pump
// couples |0⟩-|1⟩, the Stokes pulse |1⟩-|2⟩, and the intermediate level is
// detuned by Δ.
func LambdaSystem(detuning float64) *objective.Dynamics {
	return &objective.Dynamics{
		Kind:  quantum.Hamiltonian,
		Drift: quantum.Diag(0, detuning, 0),
		Terms: []objective.Term{
			{Control: "pump", Op: quantum.Transition(3, 0, 1).Scale(0.5)},
			{Control: "stokes", Op: quantum.Transition(3, 1, 2).Scale(0.5)},
		},
	}
}

func lambdaTransfer(p config.ModelParams) []*objective.Objective {
	return []*objective.Objective{{
		Label:    "0->2",
		Initial:  quantum.Ket(3, 0),
		Target:   quantum.Ket(3, 2),
		Dynamics: LambdaSystem(p.Detuning),
	}}
}
