package pulse

import (
	"fmt"
	"sort"
)

// Values gives read access to control amplitudes by name and interval.
type Values interface {
	Value(name string, step int) float64
}

// Set is the registry of controls for one optimization. Objectives refer to
// controls by name; the Set holds the only copy, so every objective that
// names a control sees the same values.
type Set struct {
	order    []string
	controls map[string]*Control
}

func NewSet(controls ...*Control) (*Set, error) {
	s := &Set{controls: make(map[string]*Control, len(controls))}
	for _, c := range controls {
		if c == nil || c.Name == "" {
			return nil, fmt.Errorf("pulse: control must have a name")
		}
		if _, dup := s.controls[c.Name]; dup {
			return nil, fmt.Errorf("pulse: duplicate control %q", c.Name)
		}
		s.order = append(s.order, c.Name)
		s.controls[c.Name] = c
	}
	return s, nil
}

func (s *Set) Get(name string) (*Control, bool) {
	c, ok := s.controls[name]
	return c, ok
}

// Names returns the control names in registration order.
func (s *Set) Names() []string {
	n := make([]string, len(s.order))
	copy(n, s.order)
	return n
}

func (s *Set) Len() int { return len(s.order) }

// Value returns the amplitude of a control on one interval. Unknown names
// read as zero.
func (s *Set) Value(name string, step int) float64 {
	c, ok := s.controls[name]
	if !ok {
		return 0
	}
	return c.Values[step]
}

// Snapshot returns a deep copy of all control values.
func (s *Set) Snapshot() Table {
	t := make(Table, len(s.order))
	for _, name := range s.order {
		v := make([]float64, len(s.controls[name].Values))
		copy(v, s.controls[name].Values)
		t[name] = v
	}
	return t
}

// Restore copies values from t into the existing controls, keeping control
// identity intact. Every control in the set must be present in t with a
// matching length.
func (s *Set) Restore(t Table) error {
	for _, name := range s.order {
		v, ok := t[name]
		if !ok {
			return fmt.Errorf("pulse: no values for control %q", name)
		}
		if len(v) != len(s.controls[name].Values) {
			return fmt.Errorf("pulse: control %q has %d values, want %d",
				name, len(v), len(s.controls[name].Values))
		}
	}
	for _, name := range s.order {
		copy(s.controls[name].Values, t[name])
	}
	return nil
}

// Table is a detached name → values map, typically a Snapshot.
type Table map[string][]float64

func (t Table) Value(name string, step int) float64 {
	v, ok := t[name]
	if !ok {
		return 0
	}
	return v[step]
}

func (t Table) Clone() Table {
	c := make(Table, len(t))
	for k, v := range t {
		cv := make([]float64, len(v))
		copy(cv, v)
		c[k] = cv
	}
	return c
}

// Names returns the table keys sorted.
func (t Table) Names() []string {
	n := make([]string, 0, len(t))
	for k := range t {
		n = append(n, k)
	}
	sort.Strings(n)
	return n
}
