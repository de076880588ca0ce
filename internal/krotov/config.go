package krotov

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/propagate"
	"github.com/san-kum/krotov/internal/pulse"
)

// Scheme selects which forward states enter the update.
type Scheme int

const (
	// Sequential uses forward states re-propagated under the new controls.
	Sequential Scheme = iota
	// Simultaneous uses the forward trajectory of the previous iteration.
	Simultaneous
)

func (s Scheme) String() string {
	switch s {
	case Sequential:
		return "sequential"
	case Simultaneous:
		return "simultaneous"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(s) {
	case "", "sequential":
		return Sequential, nil
	case "simultaneous":
		return Simultaneous, nil
	default:
		return 0, configError("unknown scheme %q", s)
	}
}

type Config struct {
	Grid       *grid.Grid
	Objectives []*objective.Objective
	// Controls is the shared control registry. The optimizer writes to it once
	// per iteration and nobody else may while a run is in progress.
	Controls *pulse.Set
	// Options holds λ_a and S_a(t) for every control that enters an objective.
	Options    map[string]pulse.Options
	Functional functional.Functional
	Propagator propagate.Propagator
	Scheme     Scheme

	// MaxIterations is an absolute ceiling on the iteration number; 0 means
	// no ceiling, in which case Check must be set.
	MaxIterations int
	Check         Check
	Observers     []Observer

	// Parallel bounds how many objectives are propagated concurrently.
	// Values below 2 propagate serially.
	Parallel int

	Logger *zerolog.Logger

	// Start resumes from an earlier run instead of the current controls.
	Start *StartPoint
}

// StartPoint is where a resumed run picks up: the controls after Iteration
// and, optionally, the history that led there.
type StartPoint struct {
	Iteration int
	Controls  pulse.Table
	History   []IterationRecord
}

// ContinueFrom returns a start point that continues res, keeping its history.
func ContinueFrom(res *Result) *StartPoint {
	h := make([]IterationRecord, len(res.History))
	for i, rec := range res.History {
		h[i] = rec.clone()
	}
	return &StartPoint{
		Iteration: res.Iterations,
		Controls:  res.Controls.Clone(),
		History:   h,
	}
}

func (c *Config) validate() error {
	if c.Grid == nil {
		return configError("no time grid")
	}
	if len(c.Objectives) == 0 {
		return configError("no objectives")
	}
	if c.Controls == nil {
		return configError("no controls")
	}
	if c.Functional == nil {
		return configError("no functional")
	}
	if c.Propagator == nil {
		return configError("no propagator")
	}
	if c.Scheme != Sequential && c.Scheme != Simultaneous {
		return configError("unknown scheme %d", int(c.Scheme))
	}
	if c.MaxIterations < 0 {
		return configError("negative iteration ceiling %d", c.MaxIterations)
	}
	if c.MaxIterations == 0 && c.Check == nil {
		return configError("need an iteration ceiling or a convergence check")
	}
	if c.Parallel < 0 {
		return configError("negative parallelism %d", c.Parallel)
	}

	steps := c.Grid.Steps()
	for _, name := range c.Controls.Names() {
		ctl, _ := c.Controls.Get(name)
		if ctl.Len() != steps {
			return configError("control %q has %d values for %d intervals", name, ctl.Len(), steps)
		}
		if !finiteValues(ctl.Values) {
			return configError("control %q has non-finite values", name)
		}
	}
	for k, obj := range c.Objectives {
		if obj == nil {
			return configError("objective %d is nil", k)
		}
		if err := obj.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrConfiguration, obj.Name(k), err)
		}
		for _, name := range obj.Dynamics.Controls() {
			if _, ok := c.Controls.Get(name); !ok {
				return configError("%s uses control %q which is not registered", obj.Name(k), name)
			}
		}
	}
	for name := range c.Options {
		if _, ok := c.Controls.Get(name); !ok {
			return configError("options given for unknown control %q", name)
		}
	}
	if c.Start != nil {
		return c.validateStart(steps)
	}
	return nil
}

func (c *Config) validateStart(steps int) error {
	s := c.Start
	if s.Iteration < 0 {
		return configError("start iteration %d is negative", s.Iteration)
	}
	for _, name := range c.Controls.Names() {
		v, ok := s.Controls[name]
		if !ok {
			return configError("start point has no values for control %q", name)
		}
		if len(v) != steps {
			return configError("start point control %q has %d values for %d intervals", name, len(v), steps)
		}
		if !finiteValues(v) {
			return configError("start point control %q has non-finite values", name)
		}
	}
	if n := len(s.History); n > 0 && s.History[n-1].Iteration != s.Iteration {
		return configError("start history ends at iteration %d, start point is %d", s.History[n-1].Iteration, s.Iteration)
	}
	return nil
}

// optimized returns the registered controls that enter at least one
// objective, in registration order.
func (c *Config) optimized() []string {
	used := make(map[string]bool)
	for _, obj := range c.Objectives {
		for _, name := range obj.Dynamics.Controls() {
			used[name] = true
		}
	}
	var names []string
	for _, name := range c.Controls.Names() {
		if used[name] {
			names = append(names, name)
		}
	}
	return names
}

func finiteValues(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
