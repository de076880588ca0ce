package propagate

import (
	"fmt"

	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/quantum"
)

// GeneratorAt returns the generator on interval n.
type GeneratorAt func(n int) quantum.Generator

// Trajectory propagates initial forward across the whole grid and returns the
// states at every grid point, initial included.
func Trajectory(p Propagator, g *grid.Grid, gen GeneratorAt, initial quantum.State) ([]quantum.State, error) {
	states := make([]quantum.State, g.Len())
	states[0] = initial.Clone()
	for n := 0; n < g.Steps(); n++ {
		next, err := p.Propagate(Step{Index: n, Dt: g.Dt(n), Generator: gen(n), Direction: Forward}, states[n])
		if err != nil {
			return states[:n+1], fmt.Errorf("interval %d: %w", n, err)
		}
		states[n+1] = next
	}
	return states, nil
}

// Final is Trajectory without keeping the intermediate states.
func Final(p Propagator, g *grid.Grid, gen GeneratorAt, initial quantum.State) (quantum.State, error) {
	state := initial
	for n := 0; n < g.Steps(); n++ {
		next, err := p.Propagate(Step{Index: n, Dt: g.Dt(n), Generator: gen(n), Direction: Forward}, state)
		if err != nil {
			return nil, fmt.Errorf("interval %d: %w", n, err)
		}
		state = next
	}
	return state.Clone(), nil
}
