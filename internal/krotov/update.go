package krotov

import (
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
)

// Updater computes the first-order Krotov correction of every optimized
// control on one interval from the forward states and costates there.
type Updater struct {
	controls []string
	lambda   []float64
	shape    [][]float64
	dt       []float64
	// rate[k][a] is ∂A_k/∂ε_a, nil if control a does not enter objective k.
	rate [][]*quantum.Operator
}

// NewUpdater prepares the update for the named controls. Every control must
// have options with a positive lambda.
func NewUpdater(g *grid.Grid, objs []*objective.Objective, controls []string, opts map[string]pulse.Options) (*Updater, error) {
	u := &Updater{
		controls: append([]string(nil), controls...),
		lambda:   make([]float64, len(controls)),
		shape:    make([][]float64, len(controls)),
		dt:       make([]float64, g.Steps()),
		rate:     make([][]*quantum.Operator, len(objs)),
	}
	for n := range u.dt {
		u.dt[n] = g.Dt(n)
	}
	for a, name := range controls {
		o, ok := opts[name]
		if !ok {
			return nil, configError("no update options for control %q", name)
		}
		if err := o.Validate(); err != nil {
			return nil, configError("control %q: %v", name, err)
		}
		u.lambda[a] = o.Lambda
		u.shape[a] = pulse.Sample(o.Shape, g)
	}
	for k, obj := range objs {
		u.rate[k] = make([]*quantum.Operator, len(controls))
		for a, name := range controls {
			if mu := obj.Dynamics.Derivative(name); mu != nil {
				u.rate[k][a] = quantum.Generator{Kind: obj.Dynamics.Kind, Op: mu}.Rate()
			}
		}
	}
	return u, nil
}

func (u *Updater) Controls() []string { return u.controls }

// Delta writes Δε_a for interval n into out, indexed like Controls, and
// returns it. psis and chis hold ψ_k(t_n) and χ_k(t_n) for every objective.
func (u *Updater) Delta(n int, psis, chis []quantum.State, out []float64) []float64 {
	if out == nil {
		out = make([]float64, len(u.controls))
	}
	for a := range u.controls {
		var p float64
		for k := range u.rate {
			mu := u.rate[k][a]
			if mu == nil {
				continue
			}
			p += real(chis[k].Overlap(mu.Apply(psis[k])))
		}
		out[a] = u.shape[a][n] / u.lambda[a] * p
	}
	return out
}

// Update adds the correction on interval n to the values in t and returns it.
func (u *Updater) Update(n int, psis, chis []quantum.State, t pulse.Table, out []float64) []float64 {
	out = u.Delta(n, psis, chis, out)
	for a, name := range u.controls {
		t[name][n] += out[a]
	}
	return out
}

// penalty accumulates ∫Δε² dt per control and Σ_a λ_a ∫Δε_a²/S_a dt.
type penalty struct {
	u     *Updater
	ga    []float64
	total float64
}

func (u *Updater) newPenalty() *penalty {
	return &penalty{u: u, ga: make([]float64, len(u.controls))}
}

func (p *penalty) add(n int, delta []float64) {
	for a, d := range delta {
		d2 := d * d * p.u.dt[n]
		p.ga[a] += d2
		if s := p.u.shape[a][n]; s > 0 {
			p.total += p.u.lambda[a] * d2 / s
		}
	}
}

func (p *penalty) integrals() map[string]float64 {
	m := make(map[string]float64, len(p.ga))
	for a, name := range p.u.controls {
		m[name] = p.ga[a]
	}
	return m
}
