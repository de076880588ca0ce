package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	functionals "github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/models"
	"github.com/san-kum/krotov/internal/sweep"
)

func sweepRun(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(sweepParams) == 0 {
		return fmt.Errorf("no --param given")
	}

	params := make([]sweep.Param, 0, len(sweepParams))
	for _, s := range sweepParams {
		p, err := sweep.ParseParam(s)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	g := sweep.NewGridSearch(params...)

	fn, err := functionals.ByName(cfg.Functional)
	if err != nil {
		return err
	}

	log := newLogger()
	log.Info().Str("model", cfg.Model).Int("points", g.Size()).Int("jobs", sweepJobs).Msg("starting sweep")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, err := g.Run(ctx, cfg, models.NewRegistry().Setup, sweepJobs)
	if err != nil {
		return err
	}
	sweep.Rank(points, fn.Sense())

	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tVALUE\tITER\tREASON\n", strings.ToUpper(strings.Join(names, "\t")))
	for _, p := range points {
		cols := make([]string, len(names))
		for i, n := range names {
			cols[i] = fmt.Sprintf("%g", p.Params[n])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\terror: %v\n", strings.Join(cols, "\t"), p.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.8f\t%d\t%s\n", strings.Join(cols, "\t"), p.Value, p.Iterations, p.Reason)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := sweep.Best(points, fn.Sense()); ok {
		fmt.Printf("\nbest %s: %.10f\n", cfg.Functional, best.Value)
	}
	return nil
}
