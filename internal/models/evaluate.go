package models

import (
	"fmt"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/propagate"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
)

// Evaluation is the outcome of propagating fixed controls once.
type Evaluation struct {
	Value        float64
	Finals       []quantum.State
	Propagations int64
}

// problem resolves the parts of cfg needed to propagate controls on g.
func (r *Registry) problem(cfg *config.Config, g *grid.Grid, controls pulse.Table) ([]*objective.Objective, *propagate.Counting, error) {
	objs, err := r.GetObjectives(cfg.Model, cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	prop, err := r.GetPropagator(cfg.Propagator)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range objs {
		for _, name := range o.Dynamics.Controls() {
			values, ok := controls[name]
			if !ok {
				return nil, nil, fmt.Errorf("missing control: %s", name)
			}
			if len(values) != g.Steps() {
				return nil, nil, fmt.Errorf("control %s has %d values, grid has %d intervals", name, len(values), g.Steps())
			}
		}
	}
	return objs, propagate.NewCounting(prop), nil
}

func generatorAt(dyn *objective.Dynamics, controls pulse.Table) propagate.GeneratorAt {
	return func(n int) quantum.Generator { return dyn.At(n, controls) }
}

// Evaluate propagates every objective of cfg under controls and evaluates
// the configured functional on the final states.
func (r *Registry) Evaluate(cfg *config.Config, g *grid.Grid, controls pulse.Table) (*Evaluation, error) {
	objs, prop, err := r.problem(cfg, g, controls)
	if err != nil {
		return nil, err
	}
	fn, err := functional.ByName(cfg.Functional)
	if err != nil {
		return nil, err
	}

	finals := make([]quantum.State, len(objs))
	for k, o := range objs {
		if finals[k], err = propagate.Final(prop, g, generatorAt(o.Dynamics, controls), o.Initial); err != nil {
			return nil, fmt.Errorf("%s: %w", o.Name(k), err)
		}
	}
	value, _, err := fn.Evaluate(finals, objs)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Value: value, Finals: finals, Propagations: prop.Count()}, nil
}

// Populations returns the basis populations of the first objective at every
// grid point, indexed [level][point]. Density matrices report their diagonal.
func (r *Registry) Populations(cfg *config.Config, g *grid.Grid, controls pulse.Table) ([][]float64, error) {
	objs, prop, err := r.problem(cfg, g, controls)
	if err != nil {
		return nil, err
	}
	o := objs[0]
	states, err := propagate.Trajectory(prop, g, generatorAt(o.Dynamics, controls), o.Initial)
	if err != nil {
		return nil, err
	}

	var levels int
	if o.Dynamics.Kind == quantum.Liouvillian {
		levels = quantum.Unvec(o.Initial).Dim()
	} else {
		levels = o.Initial.Dim()
	}
	pops := make([][]float64, levels)
	for i := range pops {
		pops[i] = make([]float64, len(states))
	}
	for n, s := range states {
		if o.Dynamics.Kind == quantum.Liouvillian {
			rho := quantum.Unvec(s)
			for i := range pops {
				pops[i][n] = real(rho.At(i, i))
			}
			continue
		}
		for i := range pops {
			pops[i][n] = s.Population(i)
		}
	}
	return pops, nil
}
