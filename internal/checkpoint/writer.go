package checkpoint

import (
	"github.com/rs/zerolog"
	"github.com/san-kum/krotov/internal/grid"
	"github.com/san-kum/krotov/internal/krotov"
)

// Writer is an observer that saves a checkpoint every Every iterations.
// Write failures are logged and kept in Err; they never stop the run.
type Writer struct {
	Path       string
	Every      int
	Functional string
	Err        error

	grid *grid.Grid
	log  zerolog.Logger
}

func NewWriter(path string, every int, g *grid.Grid, log zerolog.Logger) *Writer {
	if every < 1 {
		every = 1
	}
	return &Writer{
		Path:  path,
		Every: every,
		grid:  g,
		log:   log.With().Str("component", "checkpoint").Logger(),
	}
}

func (w *Writer) OnIteration(rec krotov.IterationRecord) *krotov.Stop {
	if rec.Iteration%w.Every != 0 {
		return nil
	}
	c := New(w.grid, rec.Pulses, rec.Iteration, rec.Value)
	c.Functional = w.Functional
	if err := Save(w.Path, c); err != nil {
		w.Err = err
		w.log.Error().Err(err).Str("path", w.Path).Int("iteration", rec.Iteration).Msg("checkpoint failed")
		return nil
	}
	w.log.Debug().Str("path", w.Path).Int("iteration", rec.Iteration).Msg("checkpoint saved")
	return nil
}
