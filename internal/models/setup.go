package models

import (
	"fmt"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/pulse"
)

// Shape resolves a shape name from the run configuration on [t0, t1].
func Shape(name string, t0, t1, rise float64) (pulse.Shape, error) {
	switch name {
	case "", "one":
		return pulse.One(), nil
	case "box":
		return pulse.Box(t0, t1), nil
	case "sinsq":
		return pulse.SinSq(t0, t1), nil
	case "blackman":
		return pulse.Blackman(t0, t1), nil
	case "flattop":
		if rise == 0 {
			return pulse.Box(t0, t1), nil
		}
		return pulse.Flattop(t0, t1, rise, pulse.SinSqRamp), nil
	default:
		return nil, fmt.Errorf("unknown shape: %s", name)
	}
}

// Setup builds a ready-to-run optimizer configuration. The guess of every
// control is cfg.Pulse.Guess times the guess shape.
func (r *Registry) Setup(cfg *config.Config) (*krotov.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := grid.Uniform(0, cfg.Duration, cfg.Steps+1)
	if err != nil {
		return nil, err
	}
	objs, err := r.GetObjectives(cfg.Model, cfg.Params)
	if err != nil {
		return nil, err
	}
	prop, err := r.GetPropagator(cfg.Propagator)
	if err != nil {
		return nil, err
	}
	fn, err := functional.ByName(cfg.Functional)
	if err != nil {
		return nil, err
	}
	scheme, err := krotov.ParseScheme(cfg.Scheme)
	if err != nil {
		return nil, err
	}

	update, err := Shape(cfg.Pulse.Shape, 0, cfg.Duration, cfg.Pulse.Rise)
	if err != nil {
		return nil, err
	}
	guessShape := cfg.Pulse.GuessShape
	if guessShape == "" {
		guessShape = cfg.Pulse.Shape
	}
	guess, err := Shape(guessShape, 0, cfg.Duration, cfg.Pulse.Rise)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := map[string]bool{}
	for _, o := range objs {
		for _, c := range o.Dynamics.Controls() {
			if !seen[c] {
				seen[c] = true
				names = append(names, c)
			}
		}
	}
	controls := make([]*pulse.Control, len(names))
	options := make(map[string]pulse.Options, len(names))
	amp := cfg.Pulse.Guess
	for i, name := range names {
		controls[i] = pulse.FromFunc(name, g, func(t float64) float64 { return amp * guess(t) })
		options[name] = pulse.Options{Lambda: cfg.Pulse.Lambda, Shape: update}
	}
	set, err := pulse.NewSet(controls...)
	if err != nil {
		return nil, err
	}

	return &krotov.Config{
		Grid:          g,
		Objectives:    objs,
		Controls:      set,
		Options:       options,
		Functional:    fn,
		Propagator:    prop,
		Scheme:        scheme,
		MaxIterations: cfg.Iterations,
		Check:         Check(cfg.Stop, fn.Sense()),
		Parallel:      cfg.Parallel,
	}, nil
}

// MonotonicTolerance is how much worse an iteration may get before the
// monotonic check fires. It absorbs round-off once a run has converged.
const MonotonicTolerance = 1e-10

// Check turns stop thresholds into a convergence check. A value threshold is
// a lower bound when maximizing and an upper bound when minimizing.
func Check(stop config.StopConfig, sense functional.Sense) krotov.Check {
	var checks []krotov.Check
	if stop.Value != 0 {
		if sense == functional.Minimize {
			checks = append(checks, krotov.ValueBelow(stop.Value))
		} else {
			checks = append(checks, krotov.ValueAbove(stop.Value))
		}
	}
	if stop.Delta > 0 {
		checks = append(checks, krotov.DeltaBelow(stop.Delta))
	}
	if stop.Monotonic {
		checks = append(checks, krotov.Monotonic(sense, MonotonicTolerance))
	}
	switch len(checks) {
	case 0:
		return nil
	case 1:
		return checks[0]
	default:
		return krotov.Any(checks...)
	}
}
