package quantum

// DensityMatrix returns |ψ⟩⟨ψ|.
func DensityMatrix(psi State) *Operator { return Outer(psi, psi) }

// Vec stacks the columns of rho into a state of dimension n².
func Vec(rho *Operator) State {
	n := rho.n
	v := make(State, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v[j*n+i] = rho.data[i*n+j]
		}
	}
	return v
}

// Unvec is the inverse of Vec. It panics if len(v) is not a square.
func Unvec(v State) *Operator {
	n := isqrt(len(v))
	if n*n != len(v) {
		panic("quantum: vectorised density matrix has non-square length")
	}
	rho := NewOperator(n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			rho.data[i*n+j] = v[j*n+i]
		}
	}
	return rho
}

// Lindblad returns the superoperator L with
//
//	L[ρ] = -i[H, ρ] + Σ_k (A_k ρ A_k† - ½{A_k†A_k, ρ})
//
// acting on Vec(ρ). With no collapse operators it is the commutator
// superoperator -i[H, ·], which is also the derivative of a Liouvillian with
// respect to a control that enters through H.
func Lindblad(h *Operator, collapse ...*Operator) *Operator {
	n := h.n
	id := Identity(n)
	l := Kron(id, h).Scale(-1i)
	l.AddScaled(1i, Kron(h.Transpose(), id))
	for _, a := range collapse {
		ada := a.Dagger().Mul(a)
		l.AddScaled(1, Kron(a.Conj(), a))
		l.AddScaled(-0.5, Kron(id, ada))
		l.AddScaled(-0.5, Kron(ada.Transpose(), id))
	}
	return l
}

func isqrt(m int) int {
	n := 0
	for (n+1)*(n+1) <= m {
		n++
	}
	return n
}
