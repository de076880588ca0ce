package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "two_level" {
		t.Errorf("expected model two_level, got %s", cfg.Model)
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("two_level", "fast")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Pulse.Lambda != 1 {
		t.Errorf("expected lambda 1, got %f", cfg.Pulse.Lambda)
	}

	cfg.Steps = 7
	if Presets["two_level"]["fast"].Steps == 7 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("two_level", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "fast"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("two_level")
	if len(presets) != 3 || presets[0] != "careful" {
		t.Errorf("unexpected presets %v", presets)
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsValid(t *testing.T) {
	for model, byName := range Presets {
		for name, cfg := range byName {
			if cfg.Model != model {
				t.Errorf("%s/%s: model %q", model, name, cfg.Model)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = "" }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"no steps", func(c *Config) { c.Steps = 0 }},
		{"negative iterations", func(c *Config) { c.Iterations = -1 }},
		{"no stop at all", func(c *Config) { c.Iterations = 0; c.Stop = StopConfig{} }},
		{"zero lambda", func(c *Config) { c.Pulse.Lambda = 0 }},
		{"rise too long", func(c *Config) { c.Pulse.Rise = 3 }},
		{"unknown shape", func(c *Config) { c.Pulse.Shape = "gauss" }},
		{"unknown guess shape", func(c *Config) { c.Pulse.GuessShape = "gauss" }},
		{"unknown scheme", func(c *Config) { c.Scheme = "parallel" }},
		{"negative delta", func(c *Config) { c.Stop.Delta = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("ensemble", "robust")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *back != *cfg {
		t.Errorf("round trip changed config: %+v != %+v", back, cfg)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("model: not_gate\npulse:\n  lambda: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Model != "not_gate" || cfg.Pulse.Lambda != 3 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Steps != DefaultSteps || cfg.Pulse.Shape != "flattop" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KROTOV_DATA_DIR=/tmp/runs\nKROTOV_LOG_JSON=true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KROTOV_DATA_DIR", "")
	t.Setenv("KROTOV_LOG_JSON", "")
	t.Setenv("KROTOV_LOG_LEVEL", "debug")
	os.Unsetenv("KROTOV_DATA_DIR")
	os.Unsetenv("KROTOV_LOG_JSON")

	env := LoadEnv(path)
	if env.DataDir != "/tmp/runs" {
		t.Errorf("DataDir = %q, want /tmp/runs", env.DataDir)
	}
	if !env.LogJSON {
		t.Error("expected LogJSON from .env file")
	}
	if env.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug (process env wins)", env.LogLevel)
	}
}
