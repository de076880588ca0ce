package krotov

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/propagate"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sigmaY(scale float64) *objective.Dynamics {
	return &objective.Dynamics{
		Kind:  quantum.Hamiltonian,
		Drift: quantum.NewOperator(2, nil),
		Terms: []objective.Term{{Control: "eps", Op: quantum.SigmaY().Scale(complex(scale, 0))}},
	}
}

func testConfig(t *testing.T, steps int, dyns ...*objective.Dynamics) Config {
	t.Helper()
	g, err := grid.Uniform(0, 5, steps+1)
	require.NoError(t, err)
	set, err := pulse.NewSet(pulse.Zeros("eps", g))
	require.NoError(t, err)
	if len(dyns) == 0 {
		dyns = []*objective.Dynamics{sigmaY(1)}
	}
	objs := make([]*objective.Objective, len(dyns))
	for k, d := range dyns {
		objs[k] = &objective.Objective{Initial: quantum.Ket(2, 0), Target: quantum.Ket(2, 1), Dynamics: d}
	}
	return Config{
		Grid:          g,
		Objectives:    objs,
		Controls:      set,
		Options:       map[string]pulse.Options{"eps": {Lambda: 5}},
		Functional:    functional.RE{},
		Propagator:    propagate.NewExpm(),
		MaxIterations: 3,
	}
}

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no grid", func(c *Config) { c.Grid = nil }},
		{"no objectives", func(c *Config) { c.Objectives = nil }},
		{"no controls", func(c *Config) { c.Controls = nil }},
		{"no functional", func(c *Config) { c.Functional = nil }},
		{"no propagator", func(c *Config) { c.Propagator = nil }},
		{"unknown scheme", func(c *Config) { c.Scheme = Scheme(7) }},
		{"no stopping rule", func(c *Config) { c.MaxIterations = 0 }},
		{"negative ceiling", func(c *Config) { c.MaxIterations = -1 }},
		{"negative parallelism", func(c *Config) { c.Parallel = -2 }},
		{"missing options", func(c *Config) { c.Options = nil }},
		{"zero lambda", func(c *Config) { c.Options["eps"] = pulse.Options{} }},
		{"options for unknown control", func(c *Config) { c.Options["other"] = pulse.Options{Lambda: 1} }},
		{"control length", func(c *Config) {
			set, _ := pulse.NewSet(pulse.New("eps", []float64{0, 0}))
			c.Controls = set
		}},
		{"non-finite control", func(c *Config) {
			ctl, _ := c.Controls.Get("eps")
			ctl.Values[0] = math.NaN()
		}},
		{"unregistered control", func(c *Config) {
			c.Objectives[0].Dynamics.Terms[0].Control = "missing"
		}},
		{"invalid objective", func(c *Config) { c.Objectives[0].Initial = quantum.Ket(3, 0) }},
		{"start without controls", func(c *Config) { c.Start = &StartPoint{Iteration: 2} }},
		{"start history mismatch", func(c *Config) {
			c.Start = &StartPoint{
				Iteration: 2,
				Controls:  c.Controls.Snapshot(),
				History:   []IterationRecord{{Iteration: 1}},
			}
		}},
		{"negative start", func(c *Config) {
			c.Start = &StartPoint{Iteration: -1, Controls: c.Controls.Snapshot()}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, 10)
			tt.mutate(&cfg)

			calls := 0
			cfg.Propagator = counting(cfg.Propagator, &calls)

			res, err := Optimize(context.Background(), cfg)
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
			assert.Nil(t, res)
			assert.Zero(t, calls)
		})
	}
}

func counting(p propagate.Propagator, calls *int) propagate.Propagator {
	if p == nil {
		return nil
	}
	return propagate.Func(func(st propagate.Step, s quantum.State) (quantum.State, error) {
		*calls++
		return p.Propagate(st, s)
	})
}

func TestRun_PhaseSequence(t *testing.T) {
	tests := []struct {
		scheme Scheme
		want   []Phase
	}{
		{Sequential, []Phase{
			PropagatingForward, Evaluating, CheckingConvergence,
			PropagatingBackward, Updating, Evaluating, CheckingConvergence,
			Terminated,
		}},
		{Simultaneous, []Phase{
			PropagatingForward, Evaluating, CheckingConvergence,
			PropagatingBackward, Updating, PropagatingForward, Evaluating, CheckingConvergence,
			Terminated,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.scheme.String(), func(t *testing.T) {
			cfg := testConfig(t, 10)
			cfg.Scheme = tt.scheme
			cfg.MaxIterations = 1

			o, err := New(cfg)
			require.NoError(t, err)
			var got []Phase
			o.trace = func(p Phase) { got = append(got, p) }

			_, err = o.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_ObserverStop(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.MaxIterations = 10
	seen := 0
	cfg.Observers = []Observer{
		ObserverFunc(func(rec IterationRecord) *Stop {
			seen++
			rec.Pulses["eps"][0] = 999
			if rec.Iteration == 3 {
				return &Stop{Message: "enough"}
			}
			return nil
		}),
	}

	res, err := Optimize(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ExternallyStopped, res.Reason)
	assert.Equal(t, "enough", res.Message)
	assert.Len(t, res.History, 3)
	assert.Equal(t, 3, seen)
	assert.NotEqual(t, 999.0, res.History[0].Pulses["eps"][0], "observers get a copy")
	assert.NotEqual(t, 999.0, res.Controls["eps"][0])
}

func TestRun_ObserverStopWinsOverCheck(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.Check = ValueAbove(0)
	cfg.Observers = []Observer{ObserverFunc(func(IterationRecord) *Stop {
		return &Stop{Reason: ConvergedChange}
	})}

	res, err := Optimize(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ConvergedChange, res.Reason)
	assert.Len(t, res.History, 1)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t, 20)
	cfg.MaxIterations = 10
	cfg.Observers = []Observer{ObserverFunc(func(rec IterationRecord) *Stop {
		if rec.Iteration == 2 {
			cancel()
		}
		return nil
	})}

	res, err := Optimize(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, ExternallyStopped, res.Reason)
	assert.Len(t, res.History, 2)
	assert.Equal(t, res.History[1].Pulses, res.Controls)
}

func TestRun_FunctionalFailureRollsBackControls(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.MaxIterations = 5
	calls := 0
	cfg.Functional = functional.Func{
		Label: "flaky",
		Fn: func(finals []quantum.State, objs []*objective.Objective) (float64, []quantum.State, error) {
			calls++
			v, chis, err := functional.RE{}.Evaluate(finals, objs)
			if calls == 3 {
				v = math.NaN()
			}
			return v, chis, err
		},
	}

	res, err := Optimize(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFunctionalEvaluation)

	var ie *IterationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Iteration)
	assert.Equal(t, Evaluating, ie.Phase)
	assert.Equal(t, -1, ie.Step)

	assert.Equal(t, PropagationError, res.Reason)
	assert.Len(t, res.History, 1)
	assert.Equal(t, 1, res.Iterations)
	ctl, _ := cfg.Controls.Get("eps")
	assert.Equal(t, res.History[0].Pulses["eps"], ctl.Values)
}

func TestRun_NonFiniteStateIsAPropagationError(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Propagator = propagate.Func(func(st propagate.Step, s quantum.State) (quantum.State, error) {
		out := s.Clone()
		if st.Index == 4 {
			out[0] = complex(math.Inf(1), 0)
		}
		return out, nil
	})

	res, err := Optimize(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrPropagation)
	require.NotNil(t, res)
	assert.Equal(t, PropagationError, res.Reason)
	assert.Nil(t, res.Guess)
	assert.Empty(t, res.History)

	var ie *IterationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.Iteration)
	assert.Equal(t, 4, ie.Step)
	assert.Equal(t, PropagatingForward, ie.Phase)
}

func TestRun_ParallelMatchesSerial(t *testing.T) {
	for _, scheme := range []Scheme{Sequential, Simultaneous} {
		t.Run(scheme.String(), func(t *testing.T) {
			run := func(parallel int) *Result {
				cfg := testConfig(t, 50, sigmaY(1), sigmaY(0.9), sigmaY(1.1))
				cfg.Scheme = scheme
				cfg.Parallel = parallel
				res, err := Optimize(context.Background(), cfg)
				require.NoError(t, err)
				return res
			}

			serial, parallel := run(1), run(3)
			require.Len(t, parallel.History, len(serial.History))
			for i := range serial.History {
				assert.Equal(t, serial.History[i].Value, parallel.History[i].Value)
				assert.Equal(t, serial.History[i].Pulses, parallel.History[i].Pulses)
				assert.Equal(t, serial.History[i].Propagations, parallel.History[i].Propagations)
			}
		})
	}
}

func TestRun_Liouvillian(t *testing.T) {
	g, err := grid.Uniform(0, 5, 101)
	require.NoError(t, err)
	set, err := pulse.NewSet(pulse.FromFunc("eps", g, func(float64) float64 { return 0.1 }))
	require.NoError(t, err)

	decay := quantum.SigmaMinus().Scale(complex(math.Sqrt(0.01), 0))
	dyn := &objective.Dynamics{
		Kind:  quantum.Liouvillian,
		Drift: quantum.Lindblad(quantum.NewOperator(2, nil), decay),
		Terms: []objective.Term{{Control: "eps", Op: quantum.Lindblad(quantum.SigmaY())}},
	}
	obj := &objective.Objective{
		Initial:  quantum.Vec(quantum.Projector(quantum.Ket(2, 0))),
		Target:   quantum.Vec(quantum.Projector(quantum.Ket(2, 1))),
		Dynamics: dyn,
	}

	res, err := Optimize(context.Background(), Config{
		Grid:          g,
		Objectives:    []*objective.Objective{obj},
		Controls:      set,
		Options:       map[string]pulse.Options{"eps": {Lambda: 5}},
		Functional:    functional.RE{},
		Propagator:    propagate.NewExpm(),
		MaxIterations: 5,
	})
	require.NoError(t, err)
	assert.InDelta(t, math.Pow(math.Sin(0.5), 2), res.Guess.Value, 0.01)
	prev := res.Guess.Value
	for _, rec := range res.History {
		assert.Greater(t, rec.Value, prev)
		prev = rec.Value
	}
	assert.Greater(t, res.Value, 0.9)
}

func TestRun_RecordsPenalty(t *testing.T) {
	cfg := testConfig(t, 20)
	cfg.MaxIterations = 1

	res, err := Optimize(context.Background(), cfg)
	require.NoError(t, err)
	rec := res.History[0]

	var ga float64
	for n, v := range rec.Pulses["eps"] {
		ga += v * v * cfg.Grid.Dt(n)
	}
	assert.InDelta(t, ga, rec.GaIntegrals["eps"], 1e-12)
	assert.InDelta(t, rec.Value-5*ga, rec.Total, 1e-12)
	assert.InDelta(t, rec.Value, rec.Delta, 1e-15, "zero guess has value zero")
}

func TestResult_PulseAndLast(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.MaxIterations = 2
	res, err := Optimize(context.Background(), cfg)
	require.NoError(t, err)

	fn, ok := res.Pulse("eps")
	require.True(t, ok)
	assert.Equal(t, res.Controls["eps"][0], fn(0.1))
	_, ok = res.Pulse("nope")
	assert.False(t, ok)

	last, ok := res.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Iteration)
	assert.False(t, res.End.Before(res.Start))
}
