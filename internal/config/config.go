package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDuration = 5.0
	DefaultSteps    = 500
	DefaultLambda   = 5.0
	DefaultRise     = 0.5
	DefaultOmega    = 1.0
	DefaultDataDir  = ".krotov/runs"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Model      string  `yaml:"model"`
	Functional string  `yaml:"functional"`
	Propagator string  `yaml:"propagator"`
	Scheme     string  `yaml:"scheme"`
	Duration   float64 `yaml:"duration"`
	Steps      int     `yaml:"steps"`
	// Iterations is the absolute iteration ceiling; 0 leaves only Stop.
	Iterations int         `yaml:"iterations"`
	Parallel   int         `yaml:"parallel"`
	Pulse      PulseConfig `yaml:"pulse"`
	Stop       StopConfig  `yaml:"stop"`
	Params     ModelParams `yaml:"params"`
}

type PulseConfig struct {
	Lambda float64 `yaml:"lambda"`
	// Shape is the update shape: flattop, blackman, sinsq, box or one.
	Shape string  `yaml:"shape"`
	Rise  float64 `yaml:"rise"`
	// Guess is the amplitude of the guess pulse, which follows GuessShape.
	Guess      float64 `yaml:"guess"`
	GuessShape string  `yaml:"guess_shape"`
}

// StopConfig thresholds are ignored when zero.
type StopConfig struct {
	Value     float64 `yaml:"value"`
	Delta     float64 `yaml:"delta"`
	Monotonic bool    `yaml:"monotonic"`
}

type ModelParams struct {
	Omega    float64 `yaml:"omega"`
	Detuning float64 `yaml:"detuning"`
	Coupling float64 `yaml:"coupling"`
	Spread   float64 `yaml:"spread"`
	Members  int     `yaml:"members"`
	Decay    float64 `yaml:"decay"`
}

var shapes = map[string]bool{"flattop": true, "blackman": true, "sinsq": true, "box": true, "one": true}

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "two_level",
		Functional: "F_ss",
		Propagator: "expm",
		Scheme:     "sequential",
		Duration:   DefaultDuration,
		Steps:      DefaultSteps,
		Iterations: 20,
		Pulse: PulseConfig{
			Lambda:     DefaultLambda,
			Shape:      "flattop",
			Rise:       DefaultRise,
			Guess:      0.2,
			GuessShape: "flattop",
		},
		Stop: StopConfig{Value: 0.999},
		Params: ModelParams{
			Omega:   DefaultOmega,
			Members: 3,
			Spread:  0.05,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	bad := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Model == "":
		return bad("model is empty")
	case !(c.Duration > 0):
		return bad("duration must be positive, got %g", c.Duration)
	case c.Steps < 1:
		return bad("steps must be at least 1, got %d", c.Steps)
	case c.Iterations < 0:
		return bad("iterations must not be negative, got %d", c.Iterations)
	case c.Iterations == 0 && c.Stop.Value == 0 && c.Stop.Delta == 0:
		return bad("no iteration ceiling and no stop threshold")
	case !(c.Pulse.Lambda > 0):
		return bad("lambda must be positive, got %g", c.Pulse.Lambda)
	case c.Pulse.Rise < 0 || 2*c.Pulse.Rise > c.Duration:
		return bad("rise %g does not fit into duration %g", c.Pulse.Rise, c.Duration)
	case c.Stop.Delta < 0:
		return bad("delta threshold must not be negative")
	}
	if !shapes[c.Pulse.Shape] {
		return bad("unknown shape %q", c.Pulse.Shape)
	}
	if c.Pulse.GuessShape != "" && !shapes[c.Pulse.GuessShape] {
		return bad("unknown guess shape %q", c.Pulse.GuessShape)
	}
	switch strings.ToLower(c.Scheme) {
	case "", "sequential", "simultaneous":
	default:
		return bad("unknown scheme %q", c.Scheme)
	}
	return nil
}

// Env holds settings taken from the environment or a .env file.
type Env struct {
	DataDir  string
	LogLevel string
	LogJSON  bool
}

// LoadEnv reads KROTOV_DATA_DIR, KROTOV_LOG_LEVEL and KROTOV_LOG_JSON. Files
// that do not exist are skipped; with no files given, ./.env is tried.
func LoadEnv(files ...string) Env {
	_ = godotenv.Load(files...)
	return Env{
		DataDir:  getEnv("KROTOV_DATA_DIR", DefaultDataDir),
		LogLevel: getEnv("KROTOV_LOG_LEVEL", "info"),
		LogJSON:  getEnv("KROTOV_LOG_JSON", "") == "1" || strings.EqualFold(getEnv("KROTOV_LOG_JSON", ""), "true"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
