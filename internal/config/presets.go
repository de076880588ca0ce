package config

import "sort"

var Presets = map[string]map[string]*Config{
	"two_level": {
		"fast": {
			Model: "two_level", Functional: "F_ss", Propagator: "expm", Scheme: "sequential",
			Duration: 5, Steps: 200, Iterations: 10,
			Pulse:  PulseConfig{Lambda: 1, Shape: "sinsq", Guess: 0.2, GuessShape: "sinsq"},
			Params: ModelParams{Omega: 1},
		},
		"careful": {
			Model: "two_level", Functional: "F_ss", Propagator: "expm", Scheme: "sequential",
			Duration: 5, Steps: 500, Iterations: 50,
			Pulse:  PulseConfig{Lambda: 5, Shape: "flattop", Rise: 0.5, Guess: 0.2, GuessShape: "flattop"},
			Stop:   StopConfig{Value: 0.9999},
			Params: ModelParams{Omega: 1},
		},
		"simultaneous": {
			Model: "two_level", Functional: "F_ss", Propagator: "expm", Scheme: "simultaneous",
			Duration: 5, Steps: 200, Iterations: 20,
			Pulse:  PulseConfig{Lambda: 5, Shape: "sinsq", Guess: 0.2, GuessShape: "sinsq"},
			Stop:   StopConfig{Monotonic: true},
			Params: ModelParams{Omega: 1},
		},
	},
	"ensemble": {
		"robust": {
			Model: "ensemble", Functional: "F_ss", Propagator: "expm", Scheme: "sequential",
			Duration: 10, Steps: 500, Iterations: 40,
			Pulse:  PulseConfig{Lambda: 2, Shape: "flattop", Rise: 1, Guess: 0.2, GuessShape: "flattop"},
			Stop:   StopConfig{Value: 0.999},
			Params: ModelParams{Omega: 1, Spread: 0.1, Members: 5},
		},
	},
	"not_gate": {
		"phase_sensitive": {
			Model: "not_gate", Functional: "F_sm", Propagator: "expm", Scheme: "sequential",
			Duration: 5, Steps: 300, Iterations: 30,
			Pulse:  PulseConfig{Lambda: 2, Shape: "flattop", Rise: 0.5, Guess: 0.3, GuessShape: "flattop"},
			Stop:   StopConfig{Value: 0.999},
			Params: ModelParams{Omega: 1},
		},
		"real_part": {
			Model: "not_gate", Functional: "F_re", Propagator: "expm", Scheme: "sequential",
			Duration: 5, Steps: 300, Iterations: 30,
			Pulse:  PulseConfig{Lambda: 2, Shape: "flattop", Rise: 0.5, Guess: 0.3, GuessShape: "flattop"},
			Stop:   StopConfig{Value: 0.999},
			Params: ModelParams{Omega: 1},
		},
	},
	"lambda": {
		"stirap": {
			Model: "lambda", Functional: "F_ss", Propagator: "expm", Scheme: "sequential",
			Duration: 10, Steps: 400, Iterations: 40,
			Pulse:  PulseConfig{Lambda: 2, Shape: "flattop", Rise: 1, Guess: 0.5, GuessShape: "blackman"},
			Stop:   StopConfig{Value: 0.99},
			Params: ModelParams{Detuning: 0.5},
		},
	},
	"dissipative": {
		"weak_decay": {
			Model: "dissipative", Functional: "F_re", Propagator: "expm", Scheme: "sequential",
			Duration: 5, Steps: 200, Iterations: 20,
			Pulse:  PulseConfig{Lambda: 5, Shape: "sinsq", Guess: 0.2, GuessShape: "sinsq"},
			Params: ModelParams{Omega: 1, Decay: 0.01},
		},
		"rk4": {
			Model: "dissipative", Functional: "F_re", Propagator: "rk4", Scheme: "sequential",
			Duration: 5, Steps: 200, Iterations: 20,
			Pulse:  PulseConfig{Lambda: 5, Shape: "sinsq", Guess: 0.2, GuessShape: "sinsq"},
			Params: ModelParams{Omega: 1, Decay: 0.05},
		},
	},
}

// GetPreset returns a copy so callers may override fields.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
