package quantum

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
)

// Operator is a dense n×n complex matrix stored row-major.
type Operator struct {
	n    int
	data []complex128
}

// NewOperator wraps data as an n×n operator. data is used directly; it
// panics if len(data) != n*n. A nil data allocates a zero operator.
func NewOperator(n int, data []complex128) *Operator {
	if data == nil {
		data = make([]complex128, n*n)
	}
	if len(data) != n*n {
		panic(fmt.Sprintf("quantum: operator data length %d, want %d", len(data), n*n))
	}
	return &Operator{n: n, data: data}
}

func Identity(n int) *Operator {
	o := NewOperator(n, nil)
	for i := 0; i < n; i++ {
		o.data[i*n+i] = 1
	}
	return o
}

// Diag returns the diagonal operator with the given real entries.
func Diag(values ...float64) *Operator {
	o := NewOperator(len(values), nil)
	for i, v := range values {
		o.data[i*o.n+i] = complex(v, 0)
	}
	return o
}

// Outer returns |a⟩⟨b|.
func Outer(a, b State) *Operator {
	if len(a) != len(b) {
		panic("quantum: outer product of states with different dimension")
	}
	n := len(a)
	o := NewOperator(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			o.data[i*n+j] = a[i] * cmplx.Conj(b[j])
		}
	}
	return o
}

// Projector returns |s⟩⟨s|.
func Projector(s State) *Operator { return Outer(s, s) }

func (o *Operator) Dim() int { return o.n }

func (o *Operator) At(i, j int) complex128 { return o.data[i*o.n+j] }

func (o *Operator) Set(i, j int, v complex128) { o.data[i*o.n+j] = v }

// Data returns the backing row-major slice.
func (o *Operator) Data() []complex128 { return o.data }

func (o *Operator) Clone() *Operator {
	c := make([]complex128, len(o.data))
	copy(c, o.data)
	return &Operator{n: o.n, data: c}
}

// Apply returns o·s.
func (o *Operator) Apply(s State) State {
	return o.ApplyTo(make(State, o.n), s)
}

// ApplyTo writes o·s into dst and returns it. dst must not alias s.
func (o *Operator) ApplyTo(dst, s State) State {
	if len(s) != o.n || len(dst) != o.n {
		panic(fmt.Sprintf("quantum: apply %d×%d operator to state of dimension %d", o.n, o.n, len(s)))
	}
	for i := 0; i < o.n; i++ {
		var v complex128
		for j, a := range o.data[i*o.n : (i+1)*o.n] {
			v += a * s[j]
		}
		dst[i] = v
	}
	return dst
}

// Add returns o + b.
func (o *Operator) Add(b *Operator) *Operator {
	o.mustMatch(b)
	return &Operator{n: o.n, data: cmplxs.AddTo(make([]complex128, len(o.data)), o.data, b.data)}
}

// AddScaled adds alpha·b to o in place.
func (o *Operator) AddScaled(alpha complex128, b *Operator) {
	o.mustMatch(b)
	cmplxs.AddScaled(o.data, alpha, b.data)
}

// Scale returns c·o.
func (o *Operator) Scale(c complex128) *Operator {
	return &Operator{n: o.n, data: cmplxs.ScaleTo(make([]complex128, len(o.data)), c, o.data)}
}

// Dagger returns the conjugate transpose.
func (o *Operator) Dagger() *Operator {
	d := NewOperator(o.n, nil)
	for i := 0; i < o.n; i++ {
		for j := 0; j < o.n; j++ {
			d.data[j*o.n+i] = cmplx.Conj(o.data[i*o.n+j])
		}
	}
	return d
}

// Transpose returns the plain transpose.
func (o *Operator) Transpose() *Operator {
	d := NewOperator(o.n, nil)
	for i := 0; i < o.n; i++ {
		for j := 0; j < o.n; j++ {
			d.data[j*o.n+i] = o.data[i*o.n+j]
		}
	}
	return d
}

// Conj returns the elementwise complex conjugate.
func (o *Operator) Conj() *Operator {
	d := NewOperator(o.n, nil)
	for i, v := range o.data {
		d.data[i] = cmplx.Conj(v)
	}
	return d
}

// Mul returns o·b.
func (o *Operator) Mul(b *Operator) *Operator {
	o.mustMatch(b)
	n := o.n
	r := NewOperator(n, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			a := o.data[i*n+k]
			if a == 0 {
				continue
			}
			cmplxs.AddScaled(r.data[i*n:(i+1)*n], a, b.data[k*n:(k+1)*n])
		}
	}
	return r
}

// Trace returns the sum of the diagonal.
func (o *Operator) Trace() complex128 {
	var t complex128
	for i := 0; i < o.n; i++ {
		t += o.data[i*o.n+i]
	}
	return t
}

// IsHermitian reports whether o equals its adjoint within tol.
func (o *Operator) IsHermitian(tol float64) bool {
	for i := 0; i < o.n; i++ {
		for j := i; j < o.n; j++ {
			if cmplx.Abs(o.data[i*o.n+j]-cmplx.Conj(o.data[j*o.n+i])) > tol {
				return false
			}
		}
	}
	return true
}

// IsZero reports whether every element is exactly zero.
func (o *Operator) IsZero() bool {
	return cmplxs.Count(func(v complex128) bool { return v != 0 }, o.data) == 0
}

// IsValid reports whether every element is finite.
func (o *Operator) IsValid() bool {
	return State(o.data).IsValid()
}

// Kron returns the tensor product a ⊗ b.
func Kron(a, b *Operator) *Operator {
	n := a.n * b.n
	r := NewOperator(n, nil)
	for i := 0; i < a.n; i++ {
		for j := 0; j < a.n; j++ {
			av := a.data[i*a.n+j]
			if av == 0 {
				continue
			}
			for k := 0; k < b.n; k++ {
				for l := 0; l < b.n; l++ {
					r.data[(i*b.n+k)*n+j*b.n+l] = av * b.data[k*b.n+l]
				}
			}
		}
	}
	return r
}

func (o *Operator) mustMatch(b *Operator) {
	if o.n != b.n {
		panic(fmt.Sprintf("quantum: operator dimension mismatch %d != %d", o.n, b.n))
	}
}
