package propagate

import (
	"sync/atomic"

	"github.com/san-kum/krotov/internal/quantum"
)

// Counting wraps a propagator and counts its calls.
type Counting struct {
	P Propagator
	n atomic.Int64
}

func NewCounting(p Propagator) *Counting { return &Counting{P: p} }

func (c *Counting) Propagate(step Step, state quantum.State) (quantum.State, error) {
	c.n.Add(1)
	return c.P.Propagate(step, state)
}

func (c *Counting) Count() int64 { return c.n.Load() }

func (c *Counting) Reset() { c.n.Store(0) }
