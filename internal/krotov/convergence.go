package krotov

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/krotov/internal/functional"
)

// Check decides after every iteration whether the run should end. It sees the
// full history, oldest first, and returns nil to continue.
type Check interface {
	Check(history []IterationRecord) *Stop
}

type CheckFunc func(history []IterationRecord) *Stop

func (f CheckFunc) Check(history []IterationRecord) *Stop { return f(history) }

func last(history []IterationRecord) (IterationRecord, bool) {
	if len(history) == 0 {
		return IterationRecord{}, false
	}
	return history[len(history)-1], true
}

// ValueAbove stops once the value reaches at least limit.
func ValueAbove(limit float64) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		if rec, ok := last(h); ok && rec.Value >= limit {
			return &Stop{Reason: ConvergedValue, Message: fmt.Sprintf("value %g >= %g", rec.Value, limit)}
		}
		return nil
	})
}

// ValueBelow stops once the value drops to at most limit.
func ValueBelow(limit float64) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		if rec, ok := last(h); ok && rec.Value <= limit {
			return &Stop{Reason: ConvergedValue, Message: fmt.Sprintf("value %g <= %g", rec.Value, limit)}
		}
		return nil
	})
}

// DeltaBelow stops once the change from the previous iteration is smaller
// than limit in magnitude.
func DeltaBelow(limit float64) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		if rec, ok := last(h); ok && math.Abs(rec.Delta) < limit {
			return &Stop{Reason: ConvergedChange, Message: fmt.Sprintf("|delta| %g < %g", math.Abs(rec.Delta), limit)}
		}
		return nil
	})
}

// Stagnation stops when each of the last k iterations changed the value by
// less than limit.
func Stagnation(k int, limit float64) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		if k < 1 || len(h) < k {
			return nil
		}
		for _, rec := range h[len(h)-k:] {
			if !(math.Abs(rec.Delta) < limit) {
				return nil
			}
		}
		return &Stop{Reason: ConvergedChange, Message: fmt.Sprintf("no change above %g for %d iterations", limit, k)}
	})
}

// MaxIterations stops once the absolute iteration number reaches n.
func MaxIterations(n int) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		if rec, ok := last(h); ok && rec.Iteration >= n {
			return &Stop{Reason: MaxIterationsReached, Message: fmt.Sprintf("iteration %d", rec.Iteration)}
		}
		return nil
	})
}

// Monotonic stops as soon as an iteration makes the value worse by more than
// tol. Krotov's method should never do that, so it usually points at a
// propagation that is too coarse or a λ that is too small.
func Monotonic(sense functional.Sense, tol float64) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		rec, ok := last(h)
		if !ok {
			return nil
		}
		prev := rec.Value - rec.Delta
		if sense.Improvement(rec.Value, prev) < -tol {
			return &Stop{
				Reason:  ExternallyStopped,
				Message: fmt.Sprintf("loss of monotonic convergence at iteration %d (delta %g)", rec.Iteration, rec.Delta),
			}
		}
		return nil
	})
}

// Any stops with the first check that fires.
func Any(checks ...Check) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		for _, c := range checks {
			if s := c.Check(h); s != nil {
				return s
			}
		}
		return nil
	})
}

// All stops only when every check fires. The reason is taken from the first.
func All(checks ...Check) Check {
	return CheckFunc(func(h []IterationRecord) *Stop {
		if len(checks) == 0 {
			return nil
		}
		var first *Stop
		msgs := make([]string, 0, len(checks))
		for _, c := range checks {
			s := c.Check(h)
			if s == nil {
				return nil
			}
			if first == nil {
				first = s
			}
			if s.Message != "" {
				msgs = append(msgs, s.Message)
			}
		}
		return &Stop{Reason: first.Reason, Message: strings.Join(msgs, "; ")}
	})
}
