package krotov

import (
	"fmt"
	"time"

	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/pulse"
)

// Reason tells why a run ended.
type Reason int

const (
	ConvergedValue Reason = iota + 1
	ConvergedChange
	MaxIterationsReached
	ExternallyStopped
	PropagationError
)

var reasonNames = map[Reason]string{
	ConvergedValue:       "converged_value",
	ConvergedChange:      "converged_change",
	MaxIterationsReached: "max_iterations",
	ExternallyStopped:    "stopped",
	PropagationError:     "propagation_error",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	if _, ok := reasonNames[r]; !ok {
		return nil, fmt.Errorf("krotov: unknown reason %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Reason) UnmarshalText(text []byte) error {
	for k, v := range reasonNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("krotov: unknown reason %q", text)
}

// IterationRecord is the immutable summary of one completed iteration.
type IterationRecord struct {
	Iteration int     `json:"iteration"`
	Value     float64 `json:"value"`
	// Delta is Value minus the value of the previous iteration.
	Delta float64 `json:"delta"`
	// Total adds the running cost Σ_a λ_a ∫ Δε_a²/S_a dt to the final-time
	// value, with the sign that makes it a penalty.
	Total        float64            `json:"total"`
	Taus         []complex128       `json:"-"`
	Pulses       pulse.Table        `json:"pulses,omitempty"`
	GaIntegrals  map[string]float64 `json:"ga_integrals,omitempty"`
	Propagations int64              `json:"propagations"`
	Elapsed      time.Duration      `json:"elapsed"`
	Time         time.Time          `json:"time"`
}

func (r IterationRecord) clone() IterationRecord {
	c := r
	if r.Taus != nil {
		c.Taus = append([]complex128(nil), r.Taus...)
	}
	if r.Pulses != nil {
		c.Pulses = r.Pulses.Clone()
	}
	if r.GaIntegrals != nil {
		c.GaIntegrals = make(map[string]float64, len(r.GaIntegrals))
		for k, v := range r.GaIntegrals {
			c.GaIntegrals[k] = v
		}
	}
	return c
}

// Result is produced once when a run terminates.
type Result struct {
	Grid *grid.Grid `json:"-"`
	// Controls are the controls of the last completed iteration.
	Controls pulse.Table `json:"controls"`
	Value    float64     `json:"value"`
	// Guess is the evaluation of the starting controls.
	Guess      *IterationRecord  `json:"guess,omitempty"`
	History    []IterationRecord `json:"history"`
	Iterations int               `json:"iterations"`
	Reason     Reason            `json:"reason"`
	Message    string            `json:"message,omitempty"`
	Err        error             `json:"-"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
}

// Pulse returns control name as a piecewise-constant function of time.
func (r *Result) Pulse(name string) (func(t float64) float64, bool) {
	v, ok := r.Controls[name]
	if !ok || r.Grid == nil {
		return nil, false
	}
	return pulse.Func(v, r.Grid), true
}

// Last returns the most recent record, or the guess if no iteration completed.
func (r *Result) Last() (IterationRecord, bool) {
	if n := len(r.History); n > 0 {
		return r.History[n-1], true
	}
	if r.Guess != nil {
		return *r.Guess, true
	}
	return IterationRecord{}, false
}

func (r *Result) Duration() time.Duration { return r.End.Sub(r.Start) }
