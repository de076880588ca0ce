// Package checkpoint persists the state needed to resume an optimization:
// the time grid, the controls, the iteration counter and the last value.
package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/pulse"
)

const Version = 1

var (
	ErrVersion  = errors.New("checkpoint: unsupported version")
	ErrMismatch = errors.New("checkpoint: does not match the problem")
)

type Checkpoint struct {
	Version    int                  `json:"version" msgpack:"version"`
	Grid       []float64            `json:"grid" msgpack:"grid"`
	Controls   map[string][]float64 `json:"controls" msgpack:"controls"`
	Iteration  int                  `json:"iteration" msgpack:"iteration"`
	Value      float64              `json:"value" msgpack:"value"`
	Functional string               `json:"functional,omitempty" msgpack:"functional,omitempty"`
	Saved      time.Time            `json:"saved" msgpack:"saved"`
}

// New captures controls after iteration with value on g.
func New(g *grid.Grid, controls pulse.Table, iteration int, value float64) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		Grid:      g.Points(),
		Controls:  controls.Clone(),
		Iteration: iteration,
		Value:     value,
		Saved:     time.Now().UTC(),
	}
}

// FromResult captures the last completed iteration of res.
func FromResult(res *krotov.Result) *Checkpoint {
	return New(res.Grid, res.Controls, res.Iterations, res.Value)
}

// TimeGrid rebuilds the stored grid.
func (c *Checkpoint) TimeGrid() (*grid.Grid, error) {
	return grid.New(c.Grid)
}

// Start returns the point to resume from on g. The checkpoint grid must be
// identical to g.
func (c *Checkpoint) Start(g *grid.Grid) (*krotov.StartPoint, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	own, err := c.TimeGrid()
	if err != nil {
		return nil, err
	}
	if !own.Equal(g) {
		return nil, fmt.Errorf("%w: time grid differs", ErrMismatch)
	}
	return &krotov.StartPoint{
		Iteration: c.Iteration,
		Controls:  pulse.Table(c.Controls).Clone(),
	}, nil
}

func (c *Checkpoint) Validate() error {
	if c.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, c.Version)
	}
	if _, err := c.TimeGrid(); err != nil {
		return err
	}
	steps := len(c.Grid) - 1
	for name, v := range c.Controls {
		if len(v) != steps {
			return fmt.Errorf("%w: control %q has %d values for %d intervals", ErrMismatch, name, len(v), steps)
		}
	}
	if c.Iteration < 0 {
		return fmt.Errorf("%w: negative iteration %d", ErrMismatch, c.Iteration)
	}
	return nil
}
