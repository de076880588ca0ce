package krotov

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/krotov/internal/functional"
	"github.com/san-kum/krotov/internal/propagate"
	"github.com/san-kum/krotov/internal/pulse"
	"github.com/san-kum/krotov/internal/quantum"
	"golang.org/x/sync/errgroup"
)

// Phase is a state of the optimization loop.
type Phase int

const (
	Initialized Phase = iota
	PropagatingForward
	Evaluating
	CheckingConvergence
	PropagatingBackward
	Updating
	Terminated
)

var phaseNames = [...]string{
	Initialized:         "initialized",
	PropagatingForward:  "propagating_forward",
	Evaluating:          "evaluating",
	CheckingConvergence: "checking_convergence",
	PropagatingBackward: "propagating_backward",
	Updating:            "updating",
	Terminated:          "terminated",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

type Optimizer struct {
	cfg     Config
	updater *Updater
	log     zerolog.Logger
	// trace is called on every phase transition.
	trace func(Phase)
}

// New validates cfg. Problems are reported as ErrConfiguration before any
// propagation happens.
func New(cfg Config) (*Optimizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	u, err := NewUpdater(cfg.Grid, cfg.Objectives, cfg.optimized(), cfg.Options)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Optimizer{
		cfg:     cfg,
		updater: u,
		log:     logger.With().Str("component", "krotov").Logger(),
	}, nil
}

// Optimize is New followed by Run.
func Optimize(ctx context.Context, cfg Config) (*Result, error) {
	o, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx)
}

// Run iterates until a check fires, the iteration ceiling is reached, an
// observer asks to stop, ctx is cancelled or a propagation fails. Cancellation
// is only noticed between iterations.
//
// On failure and on cancellation the partial result is returned together with
// the error; it describes the last completed iteration.
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	r := &run{
		o:     o,
		cfg:   &o.cfg,
		ctx:   ctx,
		log:   o.log,
		start: time.Now(),
	}
	if o.cfg.Start != nil {
		r.completed = o.cfg.Start.Iteration
	}

	for r.phase != Terminated {
		next, err := r.step()
		if err != nil {
			r.fail(err)
			next = Terminated
		}
		r.enter(next)
	}
	return r.result, r.err
}

type run struct {
	o   *Optimizer
	cfg *Config
	ctx context.Context
	log zerolog.Logger

	phase     Phase
	iteration int
	completed int
	value     float64

	finals   []quantum.State
	forward  [][]quantum.State
	chis     []quantum.State
	backward [][]quantum.State
	penalty  *penalty

	accepted pulse.Table
	guess    *IterationRecord
	history  []IterationRecord
	stop     *Stop

	propagations atomic.Int64
	mark         int64
	iterStart    time.Time
	start        time.Time

	result *Result
	err    error
}

func (r *run) enter(next Phase) {
	r.log.Debug().Int("iteration", r.iteration).Stringer("from", r.phase).Stringer("to", next).Msg("phase")
	r.phase = next
	if r.o.trace != nil {
		r.o.trace(next)
	}
}

func (r *run) step() (Phase, error) {
	switch r.phase {
	case Initialized:
		return r.initialize()
	case PropagatingForward:
		return r.propagateForward()
	case Evaluating:
		return r.evaluate()
	case CheckingConvergence:
		return r.checkConvergence(), nil
	case PropagatingBackward:
		return r.propagateBackward()
	case Updating:
		return r.update()
	default:
		return Terminated, fmt.Errorf("krotov: no transition from phase %s", r.phase)
	}
}

func (r *run) initialize() (Phase, error) {
	if s := r.cfg.Start; s != nil {
		if err := r.cfg.Controls.Restore(s.Controls); err != nil {
			return Terminated, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		r.iteration = s.Iteration
		r.history = make([]IterationRecord, len(s.History))
		for i, rec := range s.History {
			r.history[i] = rec.clone()
		}
		r.log.Info().Int("iteration", s.Iteration).Int("history", len(s.History)).Msg("resuming")
	}
	r.accepted = r.cfg.Controls.Snapshot()
	r.iterStart = time.Now()
	return PropagatingForward, nil
}

// current is the number of the iteration being computed.
func (r *run) current() int {
	if r.phase == PropagatingBackward || r.phase == Updating {
		return r.iteration + 1
	}
	return r.iteration
}

func (r *run) propagateForward() (Phase, error) {
	objs := r.cfg.Objectives
	g := r.cfg.Grid
	keep := r.cfg.Scheme == Simultaneous

	finals := make([]quantum.State, len(objs))
	var forward [][]quantum.State
	if keep {
		forward = make([][]quantum.State, len(objs))
	}

	err := r.each(func(k int) error {
		dyn := objs[k].Dynamics
		state := objs[k].Initial
		var traj []quantum.State
		if keep {
			traj = make([]quantum.State, g.Len())
			traj[0] = state.Clone()
		}
		for n := 0; n < g.Steps(); n++ {
			next, err := r.propagate(k, n, propagate.Forward, dyn.At(n, r.cfg.Controls), state)
			if err != nil {
				return err
			}
			state = next
			if keep {
				traj[n+1] = state
			}
		}
		finals[k] = state
		if keep {
			forward[k] = traj
		}
		return nil
	})
	if err != nil {
		return Terminated, err
	}

	r.finals, r.forward = finals, forward
	return Evaluating, nil
}

func (r *run) evaluate() (Phase, error) {
	objs := r.cfg.Objectives
	value, chis, err := r.cfg.Functional.Evaluate(r.finals, objs)
	if err == nil {
		err = r.checkEvaluation(value, chis)
	}
	if err != nil {
		if _, ok := err.(*IterationError); !ok {
			err = r.evalError(-1, fmt.Errorf("%w: %w", ErrFunctionalEvaluation, err))
		}
		return Terminated, err
	}
	r.chis = chis

	now := time.Now()
	rec := IterationRecord{
		Iteration:    r.iteration,
		Value:        value,
		Pulses:       r.cfg.Controls.Snapshot(),
		Propagations: r.propagations.Load() - r.mark,
		Elapsed:      now.Sub(r.iterStart),
		Time:         now,
	}
	if taus, err := functional.Taus(r.finals, objs); err == nil {
		rec.Taus = taus
	}

	if r.guess == nil {
		rec.Total = value
		r.guess = &rec
		r.log.Info().Int("iteration", rec.Iteration).Float64("value", value).
			Str("functional", r.cfg.Functional.Name()).Msg("guess")
	} else {
		rec.Delta = value - r.value
		rec.GaIntegrals = r.penalty.integrals()
		rec.Total = value + r.penaltySign()*r.penalty.total
		r.history = append(r.history, rec)
		r.log.Info().
			Int("iteration", rec.Iteration).
			Float64("value", rec.Value).
			Float64("delta", rec.Delta).
			Int64("propagations", rec.Propagations).
			Dur("elapsed", rec.Elapsed).
			Msg("iteration")
		r.notify(rec)
	}

	r.value = value
	r.completed = rec.Iteration
	r.accepted = rec.Pulses
	return CheckingConvergence, nil
}

func (r *run) penaltySign() float64 {
	if r.cfg.Functional.Sense() == functional.Minimize {
		return 1
	}
	return -1
}

func (r *run) checkEvaluation(value float64, chis []quantum.State) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return r.evalError(-1, fmt.Errorf("%w: value is %v", ErrFunctionalEvaluation, value))
	}
	if len(chis) != len(r.finals) {
		return r.evalError(-1, fmt.Errorf("%w: %d boundary states for %d objectives",
			ErrFunctionalEvaluation, len(chis), len(r.finals)))
	}
	for k, chi := range chis {
		if len(chi) != len(r.finals[k]) {
			return r.evalError(k, fmt.Errorf("%w: boundary state dimension %d, want %d",
				ErrFunctionalEvaluation, len(chi), len(r.finals[k])))
		}
		if !chi.IsValid() {
			return r.evalError(k, fmt.Errorf("%w: non-finite boundary state", ErrFunctionalEvaluation))
		}
	}
	return nil
}

func (r *run) evalError(objective int, err error) error {
	return &IterationError{Iteration: r.iteration, Objective: objective, Step: -1, Phase: Evaluating, Wrapped: err}
}

func (r *run) notify(rec IterationRecord) {
	for _, obs := range r.cfg.Observers {
		if s := obs.OnIteration(rec.clone()); s != nil && r.stop == nil {
			r.stop = s
		}
	}
}

func (r *run) checkConvergence() Phase {
	var stop *Stop
	switch {
	case r.stop != nil:
		stop = r.stop
	case r.cfg.Check != nil && len(r.history) > 0:
		stop = r.cfg.Check.Check(r.history[:len(r.history):len(r.history)])
	}
	if stop == nil && r.cfg.MaxIterations > 0 && r.iteration >= r.cfg.MaxIterations {
		stop = &Stop{Reason: MaxIterationsReached, Message: fmt.Sprintf("iteration %d", r.iteration)}
	}
	if stop == nil {
		if err := r.ctx.Err(); err != nil {
			r.err = err
			stop = &Stop{Reason: ExternallyStopped, Message: err.Error()}
		}
	}
	if stop != nil {
		r.finish(stop.reason(), stop.Message)
		return Terminated
	}

	r.iterStart = time.Now()
	r.mark = r.propagations.Load()
	return PropagatingBackward
}

func (r *run) propagateBackward() (Phase, error) {
	objs := r.cfg.Objectives
	g := r.cfg.Grid
	backward := make([][]quantum.State, len(objs))

	err := r.each(func(k int) error {
		dyn := objs[k].Dynamics
		traj := make([]quantum.State, g.Len())
		traj[g.Steps()] = r.chis[k]
		for n := g.Steps() - 1; n >= 0; n-- {
			prev, err := r.propagate(k, n, propagate.Backward, dyn.At(n, r.cfg.Controls), traj[n+1])
			if err != nil {
				return err
			}
			traj[n] = prev
		}
		backward[k] = traj
		return nil
	})
	if err != nil {
		return Terminated, err
	}

	r.backward = backward
	return Updating, nil
}

func (r *run) update() (Phase, error) {
	objs := r.cfg.Objectives
	steps := r.cfg.Grid.Steps()
	u := r.o.updater

	next := r.cfg.Controls.Snapshot()
	pen := u.newPenalty()
	delta := make([]float64, len(u.Controls()))
	chis := make([]quantum.State, len(objs))

	if r.cfg.Scheme == Sequential {
		psis := make([]quantum.State, len(objs))
		for k, obj := range objs {
			psis[k] = obj.Initial
		}
		for n := 0; n < steps; n++ {
			for k := range objs {
				chis[k] = r.backward[k][n]
			}
			u.Update(n, psis, chis, next, delta)
			pen.add(n, delta)

			err := r.each(func(k int) error {
				s, err := r.propagate(k, n, propagate.Forward, objs[k].Dynamics.At(n, next), psis[k])
				if err != nil {
					return err
				}
				psis[k] = s
				return nil
			})
			if err != nil {
				return Terminated, err
			}
		}
		r.finals = psis
	} else {
		psis := make([]quantum.State, len(objs))
		for n := 0; n < steps; n++ {
			for k := range objs {
				psis[k] = r.forward[k][n]
				chis[k] = r.backward[k][n]
			}
			u.Update(n, psis, chis, next, delta)
			pen.add(n, delta)
		}
	}

	if err := r.cfg.Controls.Restore(next); err != nil {
		return Terminated, err
	}
	r.penalty = pen
	r.iteration++
	r.forward, r.backward = nil, nil

	if r.cfg.Scheme == Sequential {
		return Evaluating, nil
	}
	return PropagatingForward, nil
}

func (r *run) propagate(k, n int, dir propagate.Direction, gen quantum.Generator, state quantum.State) (quantum.State, error) {
	r.propagations.Add(1)
	step := propagate.Step{Index: n, Dt: r.cfg.Grid.Dt(n), Generator: gen, Direction: dir}
	out, err := r.cfg.Propagator.Propagate(step, state)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrPropagation, err)
	case len(out) != len(state):
		err = fmt.Errorf("%w: state dimension changed from %d to %d", ErrPropagation, len(state), len(out))
	case !out.IsValid():
		err = fmt.Errorf("%w: non-finite state", ErrPropagation)
	}
	if err != nil {
		return nil, &IterationError{Iteration: r.current(), Objective: k, Step: n, Phase: r.phase, Wrapped: err}
	}
	return out, nil
}

// each runs fn for every objective and waits for all of them.
func (r *run) each(fn func(k int) error) error {
	n := len(r.cfg.Objectives)
	if r.cfg.Parallel < 2 || n < 2 {
		for k := 0; k < n; k++ {
			if err := fn(k); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(r.cfg.Parallel)
	for k := 0; k < n; k++ {
		g.Go(func() error { return fn(k) })
	}
	return g.Wait()
}

func (r *run) fail(err error) {
	if r.accepted != nil {
		if rerr := r.cfg.Controls.Restore(r.accepted); rerr != nil {
			r.log.Error().Err(rerr).Msg("restoring controls")
		}
	}
	r.err = err
	r.log.Error().Err(err).Int("iteration", r.completed).Msg("optimization failed")
	r.finish(PropagationError, err.Error())
}

func (r *run) finish(reason Reason, msg string) {
	controls := r.accepted
	if controls == nil {
		controls = r.cfg.Controls.Snapshot()
	}
	r.result = &Result{
		Grid:       r.cfg.Grid,
		Controls:   controls.Clone(),
		Value:      r.value,
		Guess:      r.guess,
		History:    r.history,
		Iterations: r.completed,
		Reason:     reason,
		Message:    msg,
		Err:        r.err,
		Start:      r.start,
		End:        time.Now(),
	}
	ev := r.log.Info()
	if reason == PropagationError {
		ev = r.log.Warn()
	}
	ev.Stringer("reason", reason).Int("iterations", r.completed).Float64("value", r.value).Msg("terminated")
}
