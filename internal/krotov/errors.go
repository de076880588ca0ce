package krotov

import (
	"errors"
	"fmt"

	"github.com/san-kum/krotov/internal/grid"
)

var (
	// ErrInvalidGrid indicates a malformed time discretization.
	ErrInvalidGrid = grid.ErrInvalidGrid

	// ErrConfiguration indicates missing or inconsistent objectives, controls
	// or penalties. It is returned before any propagation.
	ErrConfiguration = errors.New("krotov: invalid configuration")

	// ErrPropagation indicates the propagator failed or produced a non-finite
	// state.
	ErrPropagation = errors.New("krotov: propagation failed")

	// ErrFunctionalEvaluation indicates a non-finite functional value or
	// boundary states of the wrong shape.
	ErrFunctionalEvaluation = errors.New("krotov: functional evaluation failed")
)

// IterationError wraps a failure inside the loop with enough context to
// reproduce it. Objective and Step are -1 when they do not apply.
type IterationError struct {
	Iteration int
	Objective int
	Step      int
	Phase     Phase
	Wrapped   error
}

func (e *IterationError) Error() string {
	msg := fmt.Sprintf("krotov: iteration %d, %s", e.Iteration, e.Phase)
	if e.Objective >= 0 {
		msg += fmt.Sprintf(", objective %d", e.Objective)
	}
	if e.Step >= 0 {
		msg += fmt.Sprintf(", step %d", e.Step)
	}
	return msg + ": " + e.Wrapped.Error()
}

func (e *IterationError) Unwrap() error {
	return e.Wrapped
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
