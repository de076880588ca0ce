package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/logging"
)

var (
	dataDir  string
	logLevel string
	logJSON  bool

	configFile  string
	preset      string
	steps       int
	duration    float64
	lambda      float64
	iterations  int
	functional  string
	propagator  string
	scheme      string
	valueStop   float64
	deltaStop   float64
	monotonic   bool
	parallel    int
	guessAmp    float64
	shape       string
	noSave      bool
	noHistory   bool
	cpPath      string
	cpEvery     int
	metricsAddr string

	control    string
	outputFile string
	listenAddr string

	sweepParams []string
	sweepJobs   int
)

func main() {
	env := config.LoadEnv()

	rootCmd := &cobra.Command{
		Use:           "krotov",
		Short:         "quantum optimal control with Krotov's method",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", env.LogJSON, "log as JSON")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "optimize the controls of a model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOptimization,
	}
	problemFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record iterations in the history database")
	runCmd.Flags().StringVar(&cpPath, "checkpoint", "", "write a checkpoint to this file (.json or .msgpack)")
	runCmd.Flags().IntVar(&cpEvery, "checkpoint-every", 1, "checkpoint interval in iterations")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a stored run or a checkpoint file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().IntVar(&iterations, "iterations", 0, "new absolute iteration ceiling")
	resumeCmd.Flags().StringVar(&cpPath, "checkpoint", "", "resume from this checkpoint file instead of a stored run")
	resumeCmd.Flags().StringVar(&configFile, "config", "", "config file (required with --checkpoint)")
	resumeCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record iterations in the history database")

	watchCmd := &cobra.Command{
		Use:   "watch [model]",
		Short: "optimize with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchOptimization,
	}
	problemFlags(watchCmd)
	watchCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "optimize over a grid of parameters",
		Long:  "Runs one optimization per parameter combination, e.g. --param lambda=1,2,5 --param duration=4,5",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepRun,
	}
	problemFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "swept parameter as name=v1,v2,...")
	sweepCmd.Flags().IntVar(&sweepJobs, "jobs", 2, "optimizations run concurrently")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot convergence and pulses",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [run_id]",
		Short: "re-propagate stored pulses and compare the functional",
		Args:  cobra.ExactArgs(1),
		RunE:  verifyRun,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "pulse spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().StringVar(&control, "control", "", "control to analyse (default: first)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run to JSON, or its pulses to SVG when the output ends in .svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models, propagators and functionals",
		RunE:  listModels,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve stored runs over HTTP",
		RunE:  serveRuns,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "listen address")

	rootCmd.AddCommand(runCmd, resumeCmd, watchCmd, sweepCmd, listCmd, showCmd, plotCmd, verifyCmd, spectrumCmd, exportCmd, presetsCmd, modelsCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func problemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "time steps")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&lambda, "lambda", config.DefaultLambda, "step size penalty")
	cmd.Flags().IntVar(&iterations, "iterations", 20, "absolute iteration ceiling (0: none)")
	cmd.Flags().StringVar(&functional, "functional", "F_ss", "functional")
	cmd.Flags().StringVar(&propagator, "propagator", "expm", "propagator")
	cmd.Flags().StringVar(&scheme, "scheme", "sequential", "update scheme (sequential, simultaneous)")
	cmd.Flags().Float64Var(&valueStop, "value", 0, "stop once the functional reaches this value")
	cmd.Flags().Float64Var(&deltaStop, "delta", 0, "stop once the change per iteration drops below this")
	cmd.Flags().BoolVar(&monotonic, "monotonic", false, "stop when an iteration makes the functional worse")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "objectives propagated concurrently")
	cmd.Flags().Float64Var(&guessAmp, "guess", 0.2, "guess pulse amplitude")
	cmd.Flags().StringVar(&shape, "shape", "flattop", "update shape")
}

func newLogger() zerolog.Logger {
	return logging.New(os.Stderr, logging.Config{Level: logLevel, JSON: logJSON})
}

func historyPath() string {
	return filepath.Join(dataDir, "history.db")
}
