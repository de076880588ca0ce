package pulse

import "fmt"

// Options configure how one control is updated.
type Options struct {
	// Lambda is the Krotov step-size penalty λ_a; larger is more cautious.
	Lambda float64
	// Shape is the update shape S(t). Nil means S(t) = 1.
	Shape Shape
}

func (o Options) Validate() error {
	if !(o.Lambda > 0) {
		return fmt.Errorf("pulse: lambda must be positive, got %g", o.Lambda)
	}
	return nil
}
