package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/krotov/internal/analysis"
	"github.com/san-kum/krotov/internal/checkpoint"
	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/history"
	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/metrics"
	"github.com/san-kum/krotov/internal/models"
	"github.com/san-kum/krotov/internal/storage"
	"github.com/san-kum/krotov/internal/tui"
)

// buildConfig applies, in order, the preset, the config file and any flags
// given on the command line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	model := ""
	if len(args) > 0 {
		model = args[0]
		cfg.Model = model
	}

	if preset != "" {
		if model == "" {
			return nil, fmt.Errorf("--preset needs a model")
		}
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		fc, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fc
		if model != "" {
			cfg.Model = model
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("lambda") {
		cfg.Pulse.Lambda = lambda
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Changed("functional") {
		cfg.Functional = functional
	}
	if flags.Changed("propagator") {
		cfg.Propagator = propagator
	}
	if flags.Changed("scheme") {
		cfg.Scheme = scheme
	}
	if flags.Changed("value") {
		cfg.Stop.Value = valueStop
	}
	if flags.Changed("delta") {
		cfg.Stop.Delta = deltaStop
	}
	if flags.Changed("monotonic") {
		cfg.Stop.Monotonic = monotonic
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	if flags.Changed("guess") {
		cfg.Pulse.Guess = guessAmp
	}
	if flags.Changed("shape") {
		cfg.Pulse.Shape = shape
	}
	return cfg, cfg.Validate()
}

// session holds everything that follows one optimization from setup to the
// stored result.
type session struct {
	id          string
	cfg         *config.Config
	kc          *krotov.Config
	log         zerolog.Logger
	collector   *metrics.Collector
	db          *history.DB
	recorder    *history.Recorder
	writer      *checkpoint.Writer
	resumedFrom string
}

func prepare(cfg *config.Config, log zerolog.Logger) (*session, error) {
	kc, err := models.NewRegistry().Setup(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{
		id:        storage.NewID(cfg.Model),
		cfg:       cfg,
		kc:        kc,
		collector: metrics.NewCollector(cfg.Model, cfg.Functional),
	}
	s.log = log.With().Str("run", s.id).Logger()
	kc.Logger = &s.log
	kc.Observers = append(kc.Observers, s.collector)

	if !noHistory {
		db, err := history.Open(historyPath())
		if err != nil {
			return nil, err
		}
		if err := db.BeginRun(history.Run{ID: s.id, Model: cfg.Model, Functional: cfg.Functional, Started: time.Now()}); err != nil {
			db.Close()
			return nil, err
		}
		s.db = db
		s.recorder = history.NewRecorder(db, s.id, log)
		kc.Observers = append(kc.Observers, s.recorder)
	}

	if cpPath != "" {
		s.writer = checkpoint.NewWriter(cpPath, cpEvery, kc.Grid, log)
		s.writer.Functional = cfg.Functional
		kc.Observers = append(kc.Observers, s.writer)
	}
	return s, nil
}

func (s *session) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// finish stores whatever the run produced, including partial results.
func (s *session) finish(res *krotov.Result, runErr error) error {
	defer s.close()
	if res == nil {
		return runErr
	}

	s.collector.Finish(res)
	if s.recorder != nil {
		if err := s.recorder.Finish(res); err != nil {
			s.log.Warn().Err(err).Msg("history incomplete")
		}
	}

	fmt.Printf("%s: %s after %d iterations, value %.10f (%v)\n",
		s.cfg.Model, res.Reason, res.Iterations, res.Value, res.Duration().Round(time.Millisecond))

	if !noSave {
		meta := storage.RunMetadata{
			ID:          s.id,
			Model:       s.cfg.Model,
			Functional:  s.cfg.Functional,
			Propagator:  s.cfg.Propagator,
			Scheme:      s.kc.Scheme.String(),
			Lambda:      s.cfg.Pulse.Lambda,
			ResumedFrom: s.resumedFrom,
			Metrics:     map[string]float64{},
			Config:      s.cfg,
		}
		for name, values := range res.Controls {
			meta.Metrics["fluence_"+name] = analysis.Fluence(values, res.Grid)
			meta.Metrics["peak_"+name] = analysis.Peak(values)
		}
		runID, err := storage.New(dataDir).Save(meta, res)
		if err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Printf("run saved: %s\n", runID)
	}
	return runErr
}

func serveMetrics(c *metrics.Collector, log zerolog.Logger) (func(), error) {
	if metricsAddr == "" {
		return func() {}, nil
	}
	reg := prometheus.NewRegistry()
	if err := c.Register(reg); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", metricsAddr)
	if err != nil {
		return nil, err
	}
	srv := metrics.Serve(ln, reg, log)
	log.Info().Str("addr", srv.Addr()).Msg("serving metrics")
	return func() { srv.Close(time.Second) }, nil
}

func optimize(s *session) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := serveMetrics(s.collector, s.log)
	if err != nil {
		s.close()
		return err
	}
	defer shutdown()

	res, err := krotov.Optimize(ctx, *s.kc)
	return s.finish(res, err)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	s, err := prepare(cfg, newLogger())
	if err != nil {
		return err
	}
	return optimize(s)
}

func resumeRun(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	var cp *checkpoint.Checkpoint
	var from string

	switch {
	case cpPath != "":
		if configFile == "" {
			return fmt.Errorf("--checkpoint needs --config")
		}
		c, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cp, err = checkpoint.Load(cpPath); err != nil {
			return err
		}
		cfg, from = c, cpPath
	case len(args) == 1:
		st := storage.New(dataDir)
		meta, err := st.Load(args[0])
		if err != nil {
			return err
		}
		if meta.Config == nil {
			return fmt.Errorf("run %s has no stored config", args[0])
		}
		if cp, err = st.Checkpoint(args[0]); err != nil {
			return err
		}
		cfg, from = meta.Config, args[0]
	default:
		return fmt.Errorf("need a run id or --checkpoint")
	}

	if cmd.Flags().Changed("iterations") {
		cfg.Iterations = iterations
	}
	// the checkpoint flag names the input here, not an output
	cpPath = ""

	s, err := prepare(cfg, newLogger())
	if err != nil {
		return err
	}
	start, err := cp.Start(s.kc.Grid)
	if err != nil {
		s.close()
		return err
	}
	s.kc.Start = start
	s.resumedFrom = from
	s.log.Info().Str("from", from).Int("iteration", start.Iteration).Msg("resuming")
	return optimize(s)
}

func watchOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	// log output would tear the live view
	s, err := prepare(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s  %s  %s", cfg.Model, cfg.Functional, s.kc.Scheme)
	res, err := tui.Run(context.Background(), title, cfg.Iterations, func(ctx context.Context, obs krotov.Observer) (*krotov.Result, error) {
		s.kc.Observers = append(s.kc.Observers, obs)
		return krotov.Optimize(ctx, *s.kc)
	})
	return s.finish(res, err)
}
