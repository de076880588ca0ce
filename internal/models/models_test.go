package models

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
)

func TestRegistryModels(t *testing.T) {
	r := NewRegistry()
	params := config.DefaultConfig().Params

	tests := []struct {
		model    string
		count    int
		dim      int
		controls int
	}{
		{"two_level", 1, 2, 1},
		{"ensemble", 3, 2, 1},
		{"not_gate", 2, 2, 1},
		{"lambda", 1, 3, 2},
		{"dissipative", 1, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			objs, err := r.GetObjectives(tt.model, params)
			if err != nil {
				t.Fatalf("GetObjectives failed: %v", err)
			}
			if len(objs) != tt.count {
				t.Errorf("got %d objectives, want %d", len(objs), tt.count)
			}
			for i, o := range objs {
				if err := o.Validate(); err != nil {
					t.Errorf("objective %d invalid: %v", i, err)
				}
				if o.Dynamics.Dim() != tt.dim {
					t.Errorf("dim = %d, want %d", o.Dynamics.Dim(), tt.dim)
				}
				if got := len(o.Dynamics.Controls()); got != tt.controls {
					t.Errorf("controls = %d, want %d", got, tt.controls)
				}
			}
			if r.Describe(tt.model) == "" {
				t.Error("expected a description")
			}
		})
	}

	if len(r.ListModels()) != len(tests) {
		t.Errorf("ListModels() = %v", r.ListModels())
	}
	if _, err := r.GetObjectives("pendulum", params); err == nil {
		t.Error("expected error for unknown model")
	}
	if _, err := r.GetPropagator("euler"); err == nil {
		t.Error("expected error for unknown propagator")
	}
}

func TestEnsembleOmegas(t *testing.T) {
	got := EnsembleOmegas(1, 0.1, 3)
	want := []float64{1, 0.9, 1.1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("omega[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := EnsembleOmegas(1, 0.1, 4); len(got) != 4 || got[0] != 1 {
		t.Errorf("EnsembleOmegas(4) = %v", got)
	}
	if got := EnsembleOmegas(2, 0.1, 0); len(got) != 1 || got[0] != 2 {
		t.Errorf("EnsembleOmegas(0) = %v", got)
	}
}

func TestDecayingQubitKeepsTrace(t *testing.T) {
	dyn := DecayingQubit(1, 0.3)
	rho := quantum.Vec(quantum.DensityMatrix(quantum.Ket(2, 1)))
	gen := dyn.At(0, pulse.Table{"eps": {0}})
	d := gen.Rate().Apply(rho)
	tr := quantum.Unvec(d).Trace()
	if math.Abs(real(tr)) > 1e-12 || math.Abs(imag(tr)) > 1e-12 {
		t.Errorf("d/dt Tr(rho) = %v, want 0", tr)
	}
	if got := real(d[3]); math.Abs(got+0.3) > 1e-12 {
		t.Errorf("d/dt rho_11 = %v, want -0.3", got)
	}
}

func TestShape(t *testing.T) {
	for _, name := range []string{"", "one", "box", "sinsq", "blackman", "flattop"} {
		s, err := Shape(name, 0, 4, 1)
		if err != nil {
			t.Fatalf("Shape(%q) failed: %v", name, err)
		}
		if v := s(2); math.Abs(v-1) > 1e-12 {
			t.Errorf("Shape(%q)(2) = %v, want 1", name, v)
		}
	}
	if _, err := Shape("gauss", 0, 1, 0); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestCheck(t *testing.T) {
	if c := Check(config.StopConfig{}, functional.Maximize); c != nil {
		t.Error("expected no check without thresholds")
	}

	hist := []krotov.IterationRecord{{Iteration: 1, Value: 0.05, Delta: -0.5}}
	s := Check(config.StopConfig{Value: 0.1}, functional.Minimize).Check(hist)
	if s == nil || s.Reason != krotov.ConvergedValue {
		t.Errorf("minimizing value check = %+v", s)
	}
	if s := Check(config.StopConfig{Value: 0.1}, functional.Maximize).Check(hist); s != nil {
		t.Errorf("maximizing value check fired: %+v", s)
	}
	s = Check(config.StopConfig{Value: 0.99, Delta: 1e-3, Monotonic: true}, functional.Maximize).Check(hist)
	if s == nil || s.Reason != krotov.ExternallyStopped {
		t.Errorf("monotonic check = %+v", s)
	}
}

func TestMonotonicCheckIgnoresRoundOff(t *testing.T) {
	c := Check(config.StopConfig{Monotonic: true}, functional.Maximize)
	hist := []krotov.IterationRecord{
		{Iteration: 1, Value: 0.9},
		{Iteration: 2, Value: 0.99999999999999, Delta: -1e-14},
	}
	if s := c.Check(hist); s != nil {
		t.Errorf("round-off decrease stopped the run: %+v", s)
	}
	hist = append(hist, krotov.IterationRecord{Iteration: 3, Value: 0.99, Delta: -1e-5})
	if s := c.Check(hist); s == nil || s.Reason != krotov.ExternallyStopped {
		t.Errorf("real decrease = %+v, want stop", s)
	}
}

func TestEvaluateMatchesOptimizer(t *testing.T) {
	r := NewRegistry()
	cfg := config.GetPreset("ensemble", "robust")
	cfg.Steps = 100
	cfg.Iterations = 3
	cfg.Stop = config.StopConfig{}

	kc, err := r.Setup(cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	res, err := krotov.Optimize(context.Background(), *kc)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	ev, err := r.Evaluate(cfg, res.Grid, res.Controls)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if math.Abs(ev.Value-res.Value) > 1e-9 {
		t.Errorf("Evaluate = %v, optimizer reported %v", ev.Value, res.Value)
	}
	if want := int64(len(kc.Objectives) * cfg.Steps); ev.Propagations != want {
		t.Errorf("Propagations = %d, want %d", ev.Propagations, want)
	}
	if len(ev.Finals) != len(kc.Objectives) {
		t.Errorf("got %d final states, want %d", len(ev.Finals), len(kc.Objectives))
	}
}

func TestEvaluateRejectsMismatchedControls(t *testing.T) {
	r := NewRegistry()
	cfg := config.DefaultConfig()
	cfg.Steps = 10
	kc, err := r.Setup(cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if _, err := r.Evaluate(cfg, kc.Grid, pulse.Table{}); err == nil {
		t.Error("expected error for a missing control")
	}
	if _, err := r.Evaluate(cfg, kc.Grid, pulse.Table{"eps": {0, 0}}); err == nil {
		t.Error("expected error for a short control")
	}
}

func TestPopulations(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		model  string
		levels int
	}{
		{"two_level", 2},
		{"lambda", 3},
		{"dissipative", 2},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Model = tt.model
			cfg.Steps = 20
			cfg.Params.Decay = 0.1
			kc, err := r.Setup(cfg)
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			pops, err := r.Populations(cfg, kc.Grid, kc.Controls.Snapshot())
			if err != nil {
				t.Fatalf("Populations failed: %v", err)
			}
			if len(pops) != tt.levels {
				t.Fatalf("levels = %d, want %d", len(pops), tt.levels)
			}
			if pops[0][0] != 1 {
				t.Errorf("initial ground population = %v, want 1", pops[0][0])
			}
			for n := range pops[0] {
				var sum float64
				for i := range pops {
					sum += pops[i][n]
				}
				if math.Abs(sum-1) > 1e-9 {
					t.Errorf("populations at point %d sum to %v", n, sum)
				}
			}
		})
	}
}

func TestSetupFromPresets(t *testing.T) {
	r := NewRegistry()
	for model := range config.Presets {
		for _, name := range config.ListPresets(model) {
			cfg := config.GetPreset(model, name)
			kc, err := r.Setup(cfg)
			if err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
				continue
			}
			if kc.Grid.Steps() != cfg.Steps {
				t.Errorf("%s/%s: steps = %d, want %d", model, name, kc.Grid.Steps(), cfg.Steps)
			}
			for _, c := range kc.Controls.Names() {
				if _, ok := kc.Options[c]; !ok {
					t.Errorf("%s/%s: no options for %s", model, name, c)
				}
			}
		}
	}
}

func TestSetupRejects(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"invalid config", func(c *config.Config) { c.Steps = 0 }},
		{"unknown model", func(c *config.Config) { c.Model = "pendulum" }},
		{"unknown propagator", func(c *config.Config) { c.Propagator = "euler" }},
		{"unknown functional", func(c *config.Config) { c.Functional = "F_xx" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)
			if _, err := r.Setup(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTwoLevelFastConverges(t *testing.T) {
	kc, err := NewRegistry().Setup(config.GetPreset("two_level", "fast"))
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	kc.Check = krotov.Monotonic(functional.Maximize, 1e-12)

	res, err := krotov.Optimize(context.Background(), *kc)
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if res.Reason != krotov.MaxIterationsReached {
		t.Errorf("reason = %v, want max_iterations", res.Reason)
	}
	if res.Value < 0.999 {
		t.Errorf("value = %v, want > 0.999", res.Value)
	}
}
