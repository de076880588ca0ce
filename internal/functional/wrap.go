package functional

import (
	"strings"

	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

type infidelity struct {
	f Functional
}

// Infidelity turns a maximized fidelity F into the minimized J = 1 - F. The
// boundary states are unchanged.
func Infidelity(f Functional) Functional { return infidelity{f: f} }

func (i infidelity) Name() string {
	return "J_T_" + strings.TrimPrefix(i.f.Name(), "F_")
}

func (infidelity) Sense() Sense { return Minimize }

func (i infidelity) Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
	f, chis, err := i.f.Evaluate(finals, objs)
	if err != nil {
		return 0, nil, err
	}
	return 1 - f, chis, nil
}

// Func wraps a caller-supplied figure of merit.
type Func struct {
	Label string
	Dir   Sense
	Fn    func(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error)
}

func (f Func) Name() string {
	if f.Label == "" {
		return "custom"
	}
	return f.Label
}

func (f Func) Sense() Sense { return f.Dir }

func (f Func) Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
	if err := checkShape(finals, objs); err != nil {
		return 0, nil, err
	}
	return f.Fn(finals, objs)
}
