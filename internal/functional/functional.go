// Package functional defines final-time figures of merit and the boundary
// states they seed the backward propagation with.
//
// The boundary state of objective k is the derivative of the figure of merit
// F with respect to ⟨ψ_k(T)|, taken in the direction that improves it. For a
// maximized F that is ∂F/∂⟨ψ_k|; for a minimized J it is -∂J/∂⟨ψ_k|.
package functional

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

var (
	ErrShape   = errors.New("functional: states do not match objectives")
	ErrUnknown = errors.New("functional: unknown functional")
)

// Sense says in which direction the figure of merit improves.
type Sense int

const (
	Maximize Sense = iota
	Minimize
)

func (s Sense) String() string {
	if s == Minimize {
		return "minimize"
	}
	return "maximize"
}

// Better reports whether a improves on b.
func (s Sense) Better(a, b float64) bool {
	if s == Minimize {
		return a < b
	}
	return a > b
}

// Improvement returns how much a improves on b, positive when a is better.
func (s Sense) Improvement(a, b float64) float64 {
	if s == Minimize {
		return b - a
	}
	return a - b
}

type Functional interface {
	Name() string
	Sense() Sense
	// Evaluate returns the figure of merit for the final states together with
	// one boundary state per objective.
	Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error)
}

// Taus returns τ_k = ⟨target_k|ψ_k(T)⟩.
func Taus(finals []quantum.State, objs []*objective.Objective) ([]complex128, error) {
	if err := checkTargets(finals, objs); err != nil {
		return nil, err
	}
	taus := make([]complex128, len(objs))
	for k, o := range objs {
		taus[k] = o.Target.Overlap(finals[k])
	}
	return taus, nil
}

func checkShape(finals []quantum.State, objs []*objective.Objective) error {
	if len(objs) == 0 {
		return fmt.Errorf("%w: no objectives", ErrShape)
	}
	if len(finals) != len(objs) {
		return fmt.Errorf("%w: %d states for %d objectives", ErrShape, len(finals), len(objs))
	}
	return nil
}

func checkTargets(finals []quantum.State, objs []*objective.Objective) error {
	if err := checkShape(finals, objs); err != nil {
		return err
	}
	for k, o := range objs {
		if o.Target == nil {
			return fmt.Errorf("%w: %s has no target state", ErrShape, o.Name(k))
		}
		if len(o.Target) != len(finals[k]) {
			return fmt.Errorf("%w: %s target dimension %d, state %d", ErrShape, o.Name(k), len(o.Target), len(finals[k]))
		}
	}
	return nil
}

type constructor func() Functional

var registry = map[string]constructor{
	"F_ss":     func() Functional { return SS{} },
	"F_sm":     func() Functional { return SM{} },
	"F_re":     func() Functional { return RE{} },
	"F_expect": func() Functional { return Expectation{} },
	"J_T_ss":   func() Functional { return Infidelity(SS{}) },
	"J_T_sm":   func() Functional { return Infidelity(SM{}) },
	"J_T_re":   func() Functional { return Infidelity(RE{}) },
}

// ByName returns a built-in functional.
func ByName(name string) (Functional, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return c(), nil
}

// Names lists the built-in functionals.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
