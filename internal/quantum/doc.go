// Package quantum provides the small amount of quantum-object algebra the
// optimizer needs:
//
//   - [State]: ket or vectorised density matrix, []complex128
//   - [Operator]: dense square complex matrix (row-major)
//   - [Generator]: an assembled Hamiltonian or Liouvillian at one time step
//
// Inner products follow the physics convention: a.Overlap(b) is ⟨a|b⟩,
// antilinear in the first argument.
//
// Density matrices are vectorised by stacking columns, so that
// vec(A·X·B) = (Bᵀ ⊗ A)·vec(X). [Lindblad] builds Liouvillian generators in
// that convention.
package quantum
