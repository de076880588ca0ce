package propagate

import (
	"github.com/san-kum/krotov/internal/quantum"
)

// RK4 integrates dψ/dt = A·ψ with classic fourth-order Runge-Kutta, taking
// Substeps equal substeps per grid interval. It is cheaper than Expm for
// large dimensions but not exactly norm preserving.
type RK4 struct {
	Substeps int
	scratch  pools
}

func NewRK4(substeps int) *RK4 {
	if substeps < 1 {
		substeps = 1
	}
	return &RK4{Substeps: substeps}
}

func (r *RK4) Propagate(step Step, state quantum.State) (quantum.State, error) {
	if err := check(step, state); err != nil {
		return nil, err
	}
	substeps := r.Substeps
	if substeps < 1 {
		substeps = 1
	}

	a := rate(step)
	n := len(state)
	pool := r.scratch.forSize(n)
	k1, k2, k3, k4, tmp := pool.Get(), pool.Get(), pool.Get(), pool.Get(), pool.Get()
	defer func() {
		for _, s := range []quantum.State{k1, k2, k3, k4, tmp} {
			pool.Put(s)
		}
	}()

	x := state.Clone()
	h := complex(step.Dt/float64(substeps), 0)
	for s := 0; s < substeps; s++ {
		a.ApplyTo(k1, x)

		for i := 0; i < n; i++ {
			tmp[i] = x[i] + h*0.5*k1[i]
		}
		a.ApplyTo(k2, tmp)

		for i := 0; i < n; i++ {
			tmp[i] = x[i] + h*0.5*k2[i]
		}
		a.ApplyTo(k3, tmp)

		for i := 0; i < n; i++ {
			tmp[i] = x[i] + h*k3[i]
		}
		a.ApplyTo(k4, tmp)

		h6 := h / 6
		for i := 0; i < n; i++ {
			x[i] += h6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
		}
	}
	return finite(step, x)
}
