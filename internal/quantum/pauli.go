package quantum

// Two-level operators in the {|0⟩, |1⟩} basis.

func SigmaX() *Operator { return NewOperator(2, []complex128{0, 1, 1, 0}) }

func SigmaY() *Operator { return NewOperator(2, []complex128{0, -1i, 1i, 0}) }

func SigmaZ() *Operator { return NewOperator(2, []complex128{1, 0, 0, -1}) }

// SigmaMinus lowers |1⟩ to |0⟩.
func SigmaMinus() *Operator { return NewOperator(2, []complex128{0, 1, 0, 0}) }

// SigmaPlus raises |0⟩ to |1⟩.
func SigmaPlus() *Operator { return NewOperator(2, []complex128{0, 0, 1, 0}) }

// Transition returns |i⟩⟨j| + |j⟩⟨i| in a dim-dimensional space.
func Transition(dim, i, j int) *Operator {
	o := NewOperator(dim, nil)
	o.Set(i, j, 1)
	o.Set(j, i, 1)
	return o
}
