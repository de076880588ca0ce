// Package propagate advances a state across one interval of the time grid
// under a piecewise-constant generator.
package propagate

import (
	"errors"
	"fmt"

	"github.com/san-kum/krotov/internal/quantum"
)

var (
	ErrDimension = errors.New("propagate: dimension mismatch")
	ErrNonFinite = errors.New("propagate: non-finite state")
)

type Direction int

const (
	Forward Direction = iota
	// Backward applies the adjoint dynamics, exp(A†·dt).
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Step describes one interval: the generator is constant over it.
type Step struct {
	Index     int
	Dt        float64
	Generator quantum.Generator
	Direction Direction
}

// Propagator maps a state at one end of an interval to the other end.
// Implementations must not modify the input state and must be safe for
// concurrent use.
type Propagator interface {
	Propagate(step Step, state quantum.State) (quantum.State, error)
}

// Func adapts a plain function to a Propagator.
type Func func(step Step, state quantum.State) (quantum.State, error)

func (f Func) Propagate(step Step, state quantum.State) (quantum.State, error) {
	return f(step, state)
}

// rate returns the matrix A to integrate for the step direction.
func rate(step Step) *quantum.Operator {
	a := step.Generator.Rate()
	if step.Direction == Backward {
		return a.Dagger()
	}
	return a
}

func check(step Step, state quantum.State) error {
	if step.Generator.Op == nil {
		return fmt.Errorf("%w: step %d has no generator", ErrDimension, step.Index)
	}
	if n := step.Generator.Dim(); len(state) != n {
		return fmt.Errorf("%w: state %d, generator %d", ErrDimension, len(state), n)
	}
	return nil
}

func finite(step Step, out quantum.State) (quantum.State, error) {
	if !out.IsValid() {
		return nil, fmt.Errorf("%w: step %d (%s)", ErrNonFinite, step.Index, step.Direction)
	}
	return out, nil
}
