// Package models holds ready-made control problems and builds optimizer
// configurations for them from a run configuration.
package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/propagate"
)

type model struct {
	description string
	build       func(config.ModelParams) []*objective.Objective
}

type Registry struct {
	models      map[string]model
	propagators map[string]func() propagate.Propagator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]model),
		propagators: make(map[string]func() propagate.Propagator),
	}

	r.models["two_level"] = model{"qubit |0> -> |1>, H = -w/2 sz + eps(t) sx", twoLevel}
	r.models["ensemble"] = model{"two_level robust against a spread of w", ensemble}
	r.models["not_gate"] = model{"qubit NOT gate on both basis states", notGate}
	r.models["lambda"] = model{"three-level lambda system |0> -> |2>, pump and stokes", lambdaTransfer}
	r.models["dissipative"] = model{"two_level with spontaneous decay, density matrices", dissipative}

	r.propagators["expm"] = func() propagate.Propagator { return propagate.NewExpm() }
	r.propagators["rk4"] = func() propagate.Propagator { return propagate.NewRK4(4) }

	return r
}

func (r *Registry) GetObjectives(name string, params config.ModelParams) ([]*objective.Objective, error) {
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return m.build(params), nil
}

func (r *Registry) GetPropagator(name string) (propagate.Propagator, error) {
	fn, ok := r.propagators[name]
	if !ok {
		return nil, fmt.Errorf("unknown propagator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) Describe(name string) string {
	return r.models[name].description
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListPropagators() []string {
	names := make([]string, 0, len(r.propagators))
	for name := range r.propagators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
