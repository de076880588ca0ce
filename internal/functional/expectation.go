package functional

import (
	"fmt"

	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/quantum"
)

// Expectation maximises F = (1/N) Σ w_k Re⟨ψ_k(T)|O_k|ψ_k(T)⟩ for the
// objectives' observables. O_k should be Hermitian.
type Expectation struct{}

func (Expectation) Name() string { return "F_expect" }
func (Expectation) Sense() Sense { return Maximize }

func (Expectation) Evaluate(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
	if err := checkShape(finals, objs); err != nil {
		return 0, nil, err
	}
	n := float64(len(objs))
	var f float64
	chis := make([]quantum.State, len(objs))
	for k, o := range objs {
		if o.Observable == nil {
			return 0, nil, fmt.Errorf("%w: %s has no observable", ErrShape, o.Name(k))
		}
		if o.Observable.Dim() != len(finals[k]) {
			return 0, nil, fmt.Errorf("%w: %s observable dimension %d, state %d",
				ErrShape, o.Name(k), o.Observable.Dim(), len(finals[k]))
		}
		opsi := o.Observable.Apply(finals[k])
		f += o.W() * real(finals[k].Overlap(opsi))
		chis[k] = opsi.Scale(complex(o.W()/n, 0))
	}
	return f / n, chis, nil
}
