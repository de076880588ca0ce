package history

import (
	"github.com/rs/zerolog"
	"github.com/san-kum/krotov/internal/krotov"
)

// Recorder is an observer that writes every iteration to the database.
// Failures are logged and kept in Err; the run is never stopped for them.
type Recorder struct {
	RunID string
	// Pulses stores the full control table with every row.
	Pulses bool
	Err    error

	db  *DB
	log zerolog.Logger
}

func NewRecorder(db *DB, runID string, log zerolog.Logger) *Recorder {
	return &Recorder{
		RunID: runID,
		db:    db,
		log:   log.With().Str("component", "history").Str("run", runID).Logger(),
	}
}

func rowOf(rec krotov.IterationRecord, pulses bool) Row {
	r := Row{
		Iteration:    rec.Iteration,
		Value:        rec.Value,
		Delta:        rec.Delta,
		Total:        rec.Total,
		Propagations: rec.Propagations,
		Elapsed:      rec.Elapsed,
	}
	if pulses {
		r.Pulses = rec.Pulses
	}
	return r
}

func (r *Recorder) record(rec krotov.IterationRecord) {
	if err := r.db.Insert(r.RunID, rowOf(rec, r.Pulses)); err != nil {
		r.Err = err
		r.log.Error().Err(err).Int("iteration", rec.Iteration).Msg("record failed")
	}
}

func (r *Recorder) OnIteration(rec krotov.IterationRecord) *krotov.Stop {
	r.record(rec)
	return nil
}

// Finish stores the guess row and the outcome of the run.
func (r *Recorder) Finish(res *krotov.Result) error {
	if res.Guess != nil {
		r.record(*res.Guess)
	}
	if err := r.db.FinishRun(r.RunID, res.Iterations, res.Value, res.Reason.String(), res.End); err != nil {
		r.Err = err
		return err
	}
	return r.Err
}
