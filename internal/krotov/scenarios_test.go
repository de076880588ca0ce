package krotov_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/krotov/internal/krotov"
	"github.com/san-kum/krotov/internal/objective"
	"github.com/san-kum/krotov/internal/propagate"
	"github.com/san-kum/krotov/internal/quantum"
)

var _ = Describe("Optimizer", func() {
	ctx := context.Background()

	Context("two-level transfer from a zero guess", func() {
		It("raises the population of |1⟩ every iteration towards 1", func() {
			p := newProblem(500, 0, 5)

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(krotov.MaxIterationsReached))
			Expect(res.History).To(HaveLen(10))
			Expect(res.Guess).NotTo(BeNil())
			Expect(res.Guess.Value).To(BeNumerically("~", 0, 1e-12))

			prevValue, prevPop := res.Guess.Value, population(*res.Guess, 0)
			for _, rec := range res.History {
				Expect(rec.Value).To(BeNumerically(">", prevValue))
				Expect(population(rec, 0)).To(BeNumerically(">", prevPop))
				prevValue, prevPop = rec.Value, population(rec, 0)
			}
			Expect(prevPop).To(BeNumerically(">", 0.999))
			Expect(res.Value).To(Equal(res.History[9].Value))
		})

		It("follows F_i = tanh(i/2)", func() {
			p := newProblem(500, 0, 5)
			p.cfg.MaxIterations = 6

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			for i, rec := range res.History {
				Expect(rec.Value).To(BeNumerically("~", math.Tanh(0.5*float64(i+1)), 1e-3))
			}
		})
	})

	Context("two objectives sharing one control", func() {
		var (
			slow *objective.Objective
			fast *objective.Objective
		)

		BeforeEach(func() {
			slow = transfer(rotation(0.9))
			fast = transfer(rotation(1))
		})

		It("re-propagates both objectives every iteration", func() {
			p := newProblem(100, 0, 5, fast, slow)
			p.cfg.MaxIterations = 4

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Guess.Propagations).To(Equal(int64(2 * 100)))

			prev := *res.Guess
			for _, rec := range res.History {
				Expect(rec.Propagations).To(Equal(int64(2 * 2 * 100)))
				Expect(rec.Taus).To(HaveLen(2))
				Expect(rec.Taus[0]).NotTo(Equal(prev.Taus[0]))
				Expect(rec.Taus[1]).NotTo(Equal(prev.Taus[1]))
				prev = rec
			}
		})

		It("applies the combined update to the shared control", func() {
			single := func(o *objective.Objective) float64 {
				p := newProblem(100, 0, 5, o)
				p.cfg.MaxIterations = 1
				res, err := krotov.Optimize(ctx, p.cfg)
				Expect(err).NotTo(HaveOccurred())
				return res.Controls["eps"][0]
			}
			d1, d2 := single(transfer(rotation(1))), single(transfer(rotation(0.9)))
			Expect(d1).To(BeNumerically("~", 0.1, 1e-12))
			Expect(d2).To(BeNumerically("~", 0.09, 1e-12))

			p := newProblem(100, 0, 5, fast, slow)
			p.cfg.MaxIterations = 1
			shared, ok := p.set.Get("eps")
			Expect(ok).To(BeTrue())

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Controls["eps"][0]).To(BeNumerically("~", (d1+d2)/2, 1e-12))
			Expect(shared.Values).To(Equal(res.Controls["eps"]))
		})
	})

	Context("with a value threshold", func() {
		It("stops at the first iteration that reaches it", func() {
			p := newProblem(500, 0, 5)
			p.cfg.MaxIterations = 50
			p.cfg.Check = krotov.ValueAbove(0.99)

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(krotov.ConvergedValue))
			Expect(res.Iterations).To(Equal(6))
			Expect(res.History).To(HaveLen(6))
			Expect(res.Value).To(BeNumerically(">=", 0.99))
			Expect(res.History[4].Value).To(BeNumerically("<", 0.99))
		})
	})

	Context("when propagation fails in iteration 3", func() {
		It("returns the first two iterations tagged with the failure", func() {
			const steps = 50
			injected := errors.New("injected")
			calls := 0
			p := newProblem(steps, 0, 5)
			expm := propagate.NewExpm()
			// guess: steps calls, each iteration: 2·steps calls
			p.cfg.Propagator = propagate.Func(func(st propagate.Step, s quantum.State) (quantum.State, error) {
				calls++
				if calls > 5*steps {
					return nil, injected
				}
				return expm.Propagate(st, s)
			})

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, krotov.ErrPropagation)).To(BeTrue())
			Expect(errors.Is(err, injected)).To(BeTrue())

			var ie *krotov.IterationError
			Expect(errors.As(err, &ie)).To(BeTrue())
			Expect(ie.Iteration).To(Equal(3))
			Expect(ie.Objective).To(Equal(0))
			Expect(ie.Phase).To(Equal(krotov.PropagatingBackward))

			Expect(res).NotTo(BeNil())
			Expect(res.Reason).To(Equal(krotov.PropagationError))
			Expect(res.History).To(HaveLen(2))
			Expect(res.Iterations).To(Equal(2))
			Expect(res.Controls).To(Equal(res.History[1].Pulses))
			Expect(res.Value).To(Equal(res.History[1].Value))
		})
	})

	Context("monotonic convergence", func() {
		It("never gets worse with the sequential scheme", func() {
			p := qubitProblem(1, krotov.Sequential)
			p.cfg.Check = krotov.Monotonic(p.cfg.Functional.Sense(), 1e-12)

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(krotov.MaxIterationsReached))
			for _, rec := range res.History {
				Expect(rec.Delta).To(BeNumerically(">", -1e-12))
			}
			Expect(res.Value).To(BeNumerically(">", 0.999))
		})

		It("never gets worse with the simultaneous scheme for a large λ", func() {
			p := qubitProblem(5, krotov.Simultaneous)

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			for _, rec := range res.History {
				Expect(rec.Delta).To(BeNumerically(">", 0))
			}
		})

		It("reaches the same fidelity trend with RK4 propagation", func() {
			p := qubitProblem(1, krotov.Sequential)
			p.cfg.MaxIterations = 3
			exact, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())

			p = qubitProblem(1, krotov.Sequential)
			p.cfg.MaxIterations = 3
			p.cfg.Propagator = propagate.NewRK4(4)
			approx, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(maxAbsDiff(values(exact.History), values(approx.History))).To(BeNumerically("<", 1e-6))
		})
	})

	Context("at the optimum", func() {
		It("leaves the controls unchanged", func() {
			opt := math.Pi / 10 // ∫ε = π/2 over [0, 5]
			p := newProblem(100, opt, 5)
			p.cfg.MaxIterations = 1

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Guess.Value).To(BeNumerically("~", 1, 1e-12))
			for _, v := range res.Controls["eps"] {
				Expect(v).To(BeNumerically("~", opt, 1e-12))
			}
		})
	})

	Context("resuming", func() {
		It("reproduces the iterations of an uninterrupted run", func() {
			full := newProblem(200, 0, 5)
			want, err := krotov.Optimize(ctx, full.cfg)
			Expect(err).NotTo(HaveOccurred())

			first := newProblem(200, 0, 5)
			first.cfg.MaxIterations = 5
			head, err := krotov.Optimize(ctx, first.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(head.Iterations).To(Equal(5))

			// a fresh process: new controls, start point from the saved fields only
			second := newProblem(200, 0, 5)
			second.cfg.Start = &krotov.StartPoint{Iteration: head.Iterations, Controls: head.Controls}
			tail, err := krotov.Optimize(ctx, second.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tail.History).To(HaveLen(5))

			for i, rec := range tail.History {
				ref := want.History[5+i]
				Expect(rec.Iteration).To(Equal(ref.Iteration))
				Expect(rec.Value).To(Equal(ref.Value))
				Expect(rec.Delta).To(Equal(ref.Delta))
				Expect(rec.Pulses).To(Equal(ref.Pulses))
			}
			Expect(tail.Controls).To(Equal(want.Controls))
		})

		It("keeps the history when continuing from a result", func() {
			p := newProblem(100, 0, 5)
			p.cfg.MaxIterations = 3
			head, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())

			p.cfg.MaxIterations = 5
			p.cfg.Start = krotov.ContinueFrom(head)
			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.History).To(HaveLen(5))
			Expect(res.History[2].Value).To(Equal(head.History[2].Value))
			Expect(res.History[3].Iteration).To(Equal(4))
			Expect(res.Guess.Iteration).To(Equal(3))
			Expect(res.Guess.Value).To(Equal(head.Value))
		})

		It("stops right away when the ceiling is already reached", func() {
			p := newProblem(100, 0, 5)
			p.cfg.MaxIterations = 2
			head, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())

			p.cfg.Start = krotov.ContinueFrom(head)
			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Reason).To(Equal(krotov.MaxIterationsReached))
			Expect(res.History).To(HaveLen(2))
			Expect(res.Iterations).To(Equal(2))
		})
	})

	Context("on a two-point grid", func() {
		It("propagates once per sweep", func() {
			p := newProblem(1, 0, 5)
			p.cfg.MaxIterations = 3

			res, err := krotov.Optimize(ctx, p.cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Guess.Propagations).To(Equal(int64(1)))
			for _, rec := range res.History {
				Expect(rec.Propagations).To(Equal(int64(2)))
			}
			Expect(values(res.History)).To(HaveLen(3))
			Expect(res.History[0].Value).To(BeNumerically("~", 0.4794, 1e-4))
			Expect(res.History[2].Value).To(BeNumerically("~", 0.9439, 1e-4))
		})
	})
})
