package propagate

import (
	"github.com/san-kum/krotov/internal/quantum"
	"gonum.org/v1/gonum/mat"
)

// Expm propagates with the exact matrix exponential exp(A·dt). The complex
// generator is embedded as the real 2n×2n matrix [[Re A, -Im A], [Im A, Re A]]
// so the exponential can be taken with gonum's Padé implementation.
type Expm struct{}

func NewExpm() *Expm { return &Expm{} }

func (Expm) Propagate(step Step, state quantum.State) (quantum.State, error) {
	if err := check(step, state); err != nil {
		return nil, err
	}
	if step.Dt == 0 {
		return state.Clone(), nil
	}

	a := rate(step)
	n := a.Dim()
	m := embed(a, step.Dt)

	var u mat.Dense
	u.Exp(m)

	v := make([]float64, 2*n)
	for i, z := range state {
		v[i] = real(z)
		v[n+i] = imag(z)
	}

	var w mat.VecDense
	w.MulVec(&u, mat.NewVecDense(2*n, v))

	out := make(quantum.State, n)
	for i := range out {
		out[i] = complex(w.AtVec(i), w.AtVec(n+i))
	}
	return finite(step, out)
}

func embed(a *quantum.Operator, dt float64) *mat.Dense {
	n := a.Dim()
	m := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			z := a.At(i, j)
			re, im := real(z)*dt, imag(z)*dt
			m.Set(i, j, re)
			m.Set(n+i, n+j, re)
			m.Set(i, n+j, -im)
			m.Set(n+i, j, im)
		}
	}
	return m
}
