package models

import (
	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

// Qubit is H = -ω/2·σz + ε(t)·σx.
func Qubit(omega float64) *objective.Dynamics {
	return &objective.Dynamics{
		Kind:  quantum.Hamiltonian,
		Drift: quantum.SigmaZ().Scale(complex(-omega/2, 0)),
		Terms: []objective.Term{{Control: "eps", Op: quantum.SigmaX()}},
	}
}

func twoLevel(p config.ModelParams) []*objective.Objective {
	return []*objective.Objective{{
		Label:    "0->1",
		Initial:  quantum.Ket(2, 0),
		Target:   quantum.Ket(2, 1),
		Dynamics: Qubit(p.Omega),
	}}
}

// EnsembleOmegas spreads members splittings evenly over ω(1 ± spread). The
// nominal splitting comes first.
func EnsembleOmegas(omega, spread float64, members int) []float64 {
	if members < 1 {
		members = 1
	}
	out := []float64{omega}
	if members == 1 {
		return out
	}
	for m := 0; m < members; m++ {
		x := -1 + 2*float64(m)/float64(members-1)
		if x == 0 {
			continue
		}
		out = append(out, omega*(1+spread*x))
	}
	return out[:members]
}

func ensemble(p config.ModelParams) []*objective.Objective {
	omegas := EnsembleOmegas(p.Omega, p.Spread, p.Members)
	extra := make([]*objective.Dynamics, 0, len(omegas)-1)
	for _, w := range omegas[1:] {
		extra = append(extra, Qubit(w))
	}
	base := twoLevel(config.ModelParams{Omega: omegas[0]})
	return objective.Ensemble(base, extra...)
}

func notGate(p config.ModelParams) []*objective.Objective {
	basis := []quantum.State{quantum.Ket(2, 0), quantum.Ket(2, 1)}
	return objective.GateObjectives(basis, quantum.SigmaX(), Qubit(p.Omega))
}
