package krotov_test

import (
	"math"

	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/propagate"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
)

// rotation is H = s·ε(t)·σy. Driving |0⟩ to |1⟩ with the real-part functional
// gives F = sin(s·∫ε dt), which makes the iterates easy to predict.
func rotation(s float64) *objective.Dynamics {
	return &objective.Dynamics{
		Kind:  quantum.Hamiltonian,
		Drift: quantum.NewOperator(2, nil),
		Terms: []objective.Term{{Control: "eps", Op: quantum.SigmaY().Scale(complex(s, 0))}},
	}
}

// qubit is H = -ω/2·σz + ε(t)·σx.
func qubit(omega float64) *objective.Dynamics {
	return &objective.Dynamics{
		Kind:  quantum.Hamiltonian,
		Drift: quantum.SigmaZ().Scale(complex(-omega/2, 0)),
		Terms: []objective.Term{{Control: "eps", Op: quantum.SigmaX()}},
	}
}

func transfer(dyn *objective.Dynamics) *objective.Objective {
	return &objective.Objective{Initial: quantum.Ket(2, 0), Target: quantum.Ket(2, 1), Dynamics: dyn}
}

type problem struct {
	grid *grid.Grid
	set  *pulse.Set
	cfg  krotov.Config
}

// newProblem sets up a transfer over [0, 5] with the given number of
// intervals, a constant guess and λ.
func newProblem(steps int, guess, lambda float64, objs ...*objective.Objective) *problem {
	g, err := grid.Uniform(0, 5, steps+1)
	if err != nil {
		panic(err)
	}
	ctl := pulse.FromFunc("eps", g, func(float64) float64 { return guess })
	set, err := pulse.NewSet(ctl)
	if err != nil {
		panic(err)
	}
	if len(objs) == 0 {
		objs = []*objective.Objective{transfer(rotation(1))}
	}
	return &problem{
		grid: g,
		set:  set,
		cfg: krotov.Config{
			Grid:          g,
			Objectives:    objs,
			Controls:      set,
			Options:       map[string]pulse.Options{"eps": {Lambda: lambda}},
			Functional:    functional.RE{},
			Propagator:    propagate.NewExpm(),
			MaxIterations: 10,
		},
	}
}

// qubitProblem is a transfer with drift, a sin² guess and update shape.
func qubitProblem(lambda float64, scheme krotov.Scheme) *problem {
	g, err := grid.Uniform(0, 5, 201)
	if err != nil {
		panic(err)
	}
	shape := pulse.SinSq(0, 5)
	ctl := pulse.FromFunc("eps", g, func(t float64) float64 { return 0.2 * shape(t) })
	set, err := pulse.NewSet(ctl)
	if err != nil {
		panic(err)
	}
	return &problem{
		grid: g,
		set:  set,
		cfg: krotov.Config{
			Grid:          g,
			Objectives:    []*objective.Objective{transfer(qubit(1))},
			Controls:      set,
			Options:       map[string]pulse.Options{"eps": {Lambda: lambda, Shape: shape}},
			Functional:    functional.SS{},
			Propagator:    propagate.NewExpm(),
			Scheme:        scheme,
			MaxIterations: 10,
		},
	}
}

func population(rec krotov.IterationRecord, k int) float64 {
	a := rec.Taus[k]
	return real(a)*real(a) + imag(a)*imag(a)
}

func values(h []krotov.IterationRecord) []float64 {
	v := make([]float64, len(h))
	for i, rec := range h {
		v[i] = rec.Value
	}
	return v
}

func maxAbsDiff(a, b []float64) float64 {
	var m float64
	for i := range a {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}
	return m
}
