package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/krotov/internal/analysis"
	"github.com/san-kum/krotov/internal/config"
	"github.com/san-kum/krotov/internal/export"
	functionals "github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/models"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/storage"
	"github.com/san-kum/krotov/internal/tui"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tFUNCTIONAL\tITER\tVALUE\tREASON")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.8f\t%s\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Functional,
			run.Iterations,
			run.Value,
			run.Reason,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	cp, err := st.Checkpoint(args[0])
	if err != nil {
		return err
	}
	g, err := cp.TimeGrid()
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("functional: %s  propagator: %s  scheme: %s  lambda: %g\n", meta.Functional, meta.Propagator, meta.Scheme, meta.Lambda)
	fmt.Printf("grid: %d steps over %g\n", meta.Steps, meta.Duration)
	fmt.Printf("iterations: %d  value: %.10f  reason: %s\n", meta.Iterations, meta.Value, meta.Reason)
	if meta.Message != "" {
		fmt.Printf("message: %s\n", meta.Message)
	}
	if meta.ResumedFrom != "" {
		fmt.Printf("resumed from: %s\n", meta.ResumedFrom)
	}
	fmt.Printf("elapsed: %v\n\n", meta.Elapsed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROL\tFLUENCE\tAREA\tPEAK\tDOMINANT")
	for _, name := range pulse.Table(cp.Controls).Names() {
		s := analysis.Summarize(name, cp.Controls[name], g)
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.4g\n", s.Control, s.Fluence, s.Area, s.Peak, s.Dominant)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	_, table, err := st.LoadPulses(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n\n", meta.Model)

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	if chart := tui.Plot(values, 10, 80, meta.Functional+" vs iteration"); chart != "" {
		fmt.Println(chart)
		fmt.Println()
	}

	for _, name := range table.Names() {
		if chart := tui.Plot(table[name], 10, 80, name+" vs time"); chart != "" {
			fmt.Println(chart)
			fmt.Println()
		}
	}
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	cp, err := st.Checkpoint(args[0])
	if err != nil {
		return err
	}
	g, err := cp.TimeGrid()
	if err != nil {
		return err
	}

	name := control
	if name == "" {
		names := pulse.Table(cp.Controls).Names()
		if len(names) == 0 {
			return fmt.Errorf("run has no controls")
		}
		name = names[0]
	}
	values, ok := cp.Controls[name]
	if !ok {
		return fmt.Errorf("unknown control: %s", name)
	}

	s, err := analysis.PowerSpectrum(values, g)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", args[0])
	fmt.Printf("control: %s\n\n", name)

	plotData := s.Power[:len(s.Power)/4+1]
	if chart := tui.Plot(plotData, 15, 80, "power spectrum ("+name+")"); chart != "" {
		fmt.Println(chart)
		fmt.Println()
	}

	freq := s.Dominant()
	fmt.Printf("dominant frequency: %.4f\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.4f\n", 1.0/freq)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if strings.HasSuffix(outputFile, ".svg") {
		times, table, err := st.LoadPulses(args[0])
		if err != nil {
			return err
		}
		if err := export.WriteFile(outputFile, export.PulsesToSVG(times, table, 800, 300)); err != nil {
			return err
		}
		fmt.Printf("exported pulses of %s to %s\n", args[0], outputFile)
		return nil
	}

	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outputFile == "" {
		return data.WriteJSON(os.Stdout)
	}
	if err := data.WriteFile(outputFile); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], outputFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	modelNames := make([]string, 0, len(config.Presets))
	if len(args) == 1 {
		modelNames = append(modelNames, args[0])
	} else {
		for m := range config.Presets {
			modelNames = append(modelNames, m)
		}
		sort.Strings(modelNames)
	}

	for _, m := range modelNames {
		presets := config.ListPresets(m)
		if len(presets) == 0 {
			fmt.Printf("no presets for model: %s\n", m)
			continue
		}
		fmt.Printf("presets for %s:\n", m)
		for _, p := range presets {
			cfg := config.GetPreset(m, p)
			fmt.Printf("  %-16s %s, %s, %d steps, lambda %g\n", p, cfg.Functional, cfg.Scheme, cfg.Steps, cfg.Pulse.Lambda)
		}
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	r := models.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tDESCRIPTION")
	for _, name := range r.ListModels() {
		fmt.Fprintf(w, "%s\t%s\n", name, r.Describe(name))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\npropagators: %s\n", strings.Join(r.ListPropagators(), ", "))
	fmt.Printf("functionals: %s\n", strings.Join(functionals.Names(), ", "))
	return nil
}

func verifyRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if meta.Config == nil {
		return fmt.Errorf("run %s has no stored config", args[0])
	}
	cp, err := st.Checkpoint(args[0])
	if err != nil {
		return err
	}
	g, err := cp.TimeGrid()
	if err != nil {
		return err
	}

	r := models.NewRegistry()
	ev, err := r.Evaluate(meta.Config, g, cp.Controls)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("stored %s:     %.12f\n", meta.Functional, meta.Value)
	fmt.Printf("recomputed %s: %.12f\n", meta.Functional, ev.Value)
	fmt.Printf("difference: %.3g  (%d propagations)\n\n", math.Abs(ev.Value-meta.Value), ev.Propagations)

	pops, err := r.Populations(meta.Config, g, cp.Controls)
	if err != nil {
		return err
	}
	for i, p := range pops {
		if chart := tui.Plot(p, 8, 80, fmt.Sprintf("population |%d> vs time", i)); chart != "" {
			fmt.Println(chart)
			fmt.Println()
		}
	}
	return nil
}
