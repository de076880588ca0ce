package objective

import (
	"errors"
	"fmt"

	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
)

var ErrInvalidObjective = errors.New("objective: invalid objective")

// Term couples one control linearly to the system: ε_c(t)·Op.
type Term struct {
	Control string
	Op      *quantum.Operator
}

// Dynamics is a generator template, Drift + Σ ε_c(t)·Op_c. It is assembled at
// each time step from the shared control values.
type Dynamics struct {
	Kind  quantum.Kind
	Drift *quantum.Operator
	Terms []Term
}

func (d *Dynamics) Dim() int { return d.Drift.Dim() }

// At assembles the generator on interval step.
func (d *Dynamics) At(step int, values pulse.Values) quantum.Generator {
	op := d.Drift.Clone()
	for _, term := range d.Terms {
		if eps := values.Value(term.Control, step); eps != 0 {
			op.AddScaled(complex(eps, 0), term.Op)
		}
	}
	return quantum.Generator{Kind: d.Kind, Op: op}
}

// Derivative returns ∂G/∂ε_c, or nil if the control does not enter.
func (d *Dynamics) Derivative(control string) *quantum.Operator {
	var mu *quantum.Operator
	for _, term := range d.Terms {
		if term.Control != control {
			continue
		}
		if mu == nil {
			mu = term.Op.Clone()
		} else {
			mu.AddScaled(1, term.Op)
		}
	}
	return mu
}

// Controls returns the distinct control names in order of first use.
func (d *Dynamics) Controls() []string {
	seen := make(map[string]bool, len(d.Terms))
	var names []string
	for _, term := range d.Terms {
		if !seen[term.Control] {
			seen[term.Control] = true
			names = append(names, term.Control)
		}
	}
	return names
}

// Objective is one initial state driven toward a target under its own
// dynamics. Controls are shared with other objectives through the names used
// in Dynamics.Terms.
type Objective struct {
	Label   string
	Initial quantum.State
	// Target is the desired final state. It may be nil for functionals that
	// only use Observable.
	Target quantum.State
	// Observable is the operator whose expectation value is maximised by
	// expectation-type functionals.
	Observable *quantum.Operator
	Dynamics   *Dynamics
	// Weight multiplies this objective's contribution; zero means 1.
	Weight float64
}

func (o *Objective) W() float64 {
	if o.Weight == 0 {
		return 1
	}
	return o.Weight
}

func (o *Objective) Name(index int) string {
	if o.Label != "" {
		return o.Label
	}
	return fmt.Sprintf("objective[%d]", index)
}

// Validate checks dimensions and finiteness.
func (o *Objective) Validate() error {
	if o.Dynamics == nil || o.Dynamics.Drift == nil {
		return fmt.Errorf("%w: missing dynamics", ErrInvalidObjective)
	}
	n := o.Dynamics.Dim()
	if len(o.Initial) != n {
		return fmt.Errorf("%w: initial state has dimension %d, dynamics %d", ErrInvalidObjective, len(o.Initial), n)
	}
	if !o.Initial.IsValid() {
		return fmt.Errorf("%w: initial state is not finite", ErrInvalidObjective)
	}
	if o.Target != nil && len(o.Target) != n {
		return fmt.Errorf("%w: target has dimension %d, dynamics %d", ErrInvalidObjective, len(o.Target), n)
	}
	if o.Target == nil && o.Observable == nil {
		return fmt.Errorf("%w: need a target state or an observable", ErrInvalidObjective)
	}
	if o.Observable != nil && o.Observable.Dim() != n {
		return fmt.Errorf("%w: observable has dimension %d, dynamics %d", ErrInvalidObjective, o.Observable.Dim(), n)
	}
	for _, term := range o.Dynamics.Terms {
		if term.Control == "" || term.Op == nil {
			return fmt.Errorf("%w: control term needs a name and an operator", ErrInvalidObjective)
		}
		if term.Op.Dim() != n {
			return fmt.Errorf("%w: control %q operator has dimension %d, dynamics %d",
				ErrInvalidObjective, term.Control, term.Op.Dim(), n)
		}
	}
	return nil
}

// GateObjectives returns one objective per basis state, each targeting
// gate·basis[k]. Optimizing them jointly with a phase-sensitive functional
// implements the gate.
func GateObjectives(basis []quantum.State, gate *quantum.Operator, dyn *Dynamics) []*Objective {
	objs := make([]*Objective, len(basis))
	for k, b := range basis {
		objs[k] = &Objective{
			Label:    fmt.Sprintf("basis[%d]", k),
			Initial:  b.Clone(),
			Target:   gate.Apply(b),
			Dynamics: dyn,
		}
	}
	return objs
}

// Ensemble returns objs followed by a copy of objs for every extra dynamics.
// Copies keep the initial and target states of the original and therefore
// share its controls.
func Ensemble(objs []*Objective, dynamics ...*Dynamics) []*Objective {
	out := make([]*Objective, 0, len(objs)*(len(dynamics)+1))
	out = append(out, objs...)
	for m, dyn := range dynamics {
		for k, o := range objs {
			c := *o
			c.Dynamics = dyn
			c.Label = fmt.Sprintf("%s/ensemble[%d]", o.Name(k), m+1)
			out = append(out, &c)
		}
	}
	return out
}
