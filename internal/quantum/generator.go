package quantum

import "fmt"

// Kind selects how a generator drives the state.
type Kind int

const (
	// Hamiltonian: dψ/dt = -i H ψ.
	Hamiltonian Kind = iota
	// Liouvillian: dρ/dt = L ρ on vectorised density matrices.
	Liouvillian
)

func (k Kind) String() string {
	switch k {
	case Hamiltonian:
		return "hamiltonian"
	case Liouvillian:
		return "liouvillian"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Generator is a generator evaluated at one time step.
type Generator struct {
	Kind Kind
	Op   *Operator
}

// Rate returns A such that d|s⟩/dt = A|s⟩.
func (g Generator) Rate() *Operator {
	if g.Kind == Hamiltonian {
		return g.Op.Scale(-1i)
	}
	return g.Op
}

func (g Generator) Dim() int { return g.Op.n }
