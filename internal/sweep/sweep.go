// Package sweep runs the optimizer over a grid of problem parameters and
// ranks the outcomes.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/krotov"
)

// Param is one swept parameter and the values it takes.
type Param struct {
	Name   string
	Values []float64
}

// Point is the outcome of one optimization in the sweep. Err is set when the
// run could not be configured or aborted with an error.
type Point struct {
	Params     map[string]float64 `json:"params"`
	Value      float64            `json:"value"`
	Iterations int                `json:"iterations"`
	Reason     krotov.Reason      `json:"reason"`
	Err        error              `json:"-"`
}

// Setup turns a problem configuration into an optimizer configuration.
type Setup func(*config.Config) (*krotov.Config, error)

type GridSearch struct {
	params []Param
}

func NewGridSearch(params ...Param) *GridSearch {
	return &GridSearch{params: params}
}

// Size returns the number of grid points.
func (g *GridSearch) Size() int {
	if len(g.params) == 0 {
		return 0
	}
	n := 1
	for _, p := range g.params {
		n *= len(p.Values)
	}
	return n
}

// Points enumerates the parameter combinations, last parameter fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.enumerate(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.params) {
		if depth > 0 {
			*out = append(*out, current)
		}
		return
	}
	p := g.params[depth]
	for _, v := range p.Values {
		next := make(map[string]float64, len(current)+1)
		for k, cv := range current {
			next[k] = cv
		}
		next[p.Name] = v
		g.enumerate(depth+1, next, out)
	}
}

// Run optimizes every grid point starting from base. Up to parallel points
// run at once. Points are returned in enumeration order; a failing point is
// recorded and does not stop the sweep. Only context cancellation does.
func (g *GridSearch) Run(ctx context.Context, base *config.Config, setup Setup, parallel int) ([]Point, error) {
	for _, p := range g.params {
		if err := Apply(base.Clone(), p.Name, 0); err != nil {
			return nil, err
		}
	}

	combos := g.Points()
	points := make([]Point, len(combos))

	eg, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		eg.SetLimit(parallel)
	}
	for i, combo := range combos {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			points[i] = runPoint(ctx, base, combo, setup)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return points, err
	}
	return points, nil
}

func runPoint(ctx context.Context, base *config.Config, params map[string]float64, setup Setup) Point {
	pt := Point{Params: params}
	cfg := base.Clone()
	for name, v := range params {
		if err := Apply(cfg, name, v); err != nil {
			pt.Err = err
			return pt
		}
	}
	kc, err := setup(cfg)
	if err != nil {
		pt.Err = err
		return pt
	}
	res, err := krotov.Optimize(ctx, *kc)
	if res != nil {
		pt.Value = res.Value
		pt.Iterations = res.Iterations
		pt.Reason = res.Reason
	}
	pt.Err = err
	return pt
}

// Best returns the best successful point for the given sense.
func Best(points []Point, sense functional.Sense) (Point, bool) {
	var best Point
	found := false
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		if !found || sense.Better(p.Value, best.Value) {
			best = p
			found = true
		}
	}
	return best, found
}

// Rank sorts points best first. Failed points go last.
func Rank(points []Point, sense functional.Sense) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		return sense.Better(a.Value, b.Value)
	})
}

// Apply sets the named parameter on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	switch name {
	case "lambda":
		cfg.Pulse.Lambda = v
	case "duration":
		cfg.Duration = v
	case "steps":
		cfg.Steps = int(v)
	case "guess":
		cfg.Pulse.Guess = v
	case "rise":
		cfg.Pulse.Rise = v
	case "omega":
		cfg.Params.Omega = v
	case "detuning":
		cfg.Params.Detuning = v
	case "spread":
		cfg.Params.Spread = v
	case "decay":
		cfg.Params.Decay = v
	default:
		return fmt.Errorf("%w: cannot sweep %q", config.ErrInvalid, name)
	}
	return nil
}

// ParseParam parses "name=v1,v2,...".
func ParseParam(s string) (Param, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return Param{}, fmt.Errorf("%w: sweep parameter %q, want name=v1,v2", config.ErrInvalid, s)
	}
	var p Param
	p.Name = strings.TrimSpace(name)
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Param{}, fmt.Errorf("%w: sweep value %q: %v", config.ErrInvalid, f, err)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}
