// Package krotov implements Krotov's method for quantum optimal control.
//
// An [Optimizer] owns the shared controls of a set of objectives for the
// duration of a run. Each iteration propagates every objective forward,
// evaluates the figure of merit, propagates the boundary states backward under
// the old controls and applies the first-order Krotov update
//
//	Δε_a(t) = S_a(t)/λ_a · Σ_k Re⟨χ_k(t)|∂A_k/∂ε_a|ψ_k(t)⟩
//
// where A_k is the rate of objective k (-iH for a Hamiltonian, L for a
// Liouvillian), so the projection reduces to Im⟨χ|∂H/∂ε|ψ⟩ in the closed case.
//
// In the [Sequential] scheme ψ_k(t) is re-propagated with the new controls
// while the sweep advances, which makes the method monotonic for any λ_a > 0.
// The [Simultaneous] scheme uses the stored forward trajectory of the previous
// iteration and is monotonic only for sufficiently large λ_a.
//
// The loop is an explicit state machine:
//
//	Initialized → PropagatingForward → Evaluating → CheckingConvergence →
//	PropagatingBackward → Updating → (Evaluating | PropagatingForward) → …
//
// ending in Terminated. Exactly one [IterationRecord] is appended per
// completed iteration; the evaluation of the starting controls is kept in
// [Result.Guess].
package krotov
