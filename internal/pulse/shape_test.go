package pulse

import (
	"math"
	"testing"

	"github.com/san-kum/krotov/internal/grid"
)

func TestShapes(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		t     float64
		want  float64
	}{
		{"one", One(), 3, 1},
		{"zero", Zero(), 3, 0},
		{"box inside", Box(1, 2), 1.5, 1},
		{"box outside", Box(1, 2), 2.5, 0},
		{"sinsq edge", SinSq(0, 10), 0, 0},
		{"sinsq center", SinSq(0, 10), 5, 1},
		{"blackman edge", Blackman(0, 10), 0, 0},
		{"blackman center", Blackman(0, 10), 5, 1},
		{"blackman outside", Blackman(0, 10), 11, 0},
		{"flattop plateau", Flattop(0, 10, 2, SinSqRamp), 5, 1},
		{"flattop start", Flattop(0, 10, 2, SinSqRamp), 0, 0},
		{"flattop mid ramp", Flattop(0, 10, 2, SinSqRamp), 1, 0.5},
		{"flattop falling ramp", Flattop(0, 10, 2, SinSqRamp), 9, 0.5},
		{"flattop end", Flattop(0, 10, 2, SinSqRamp), 10, 0},
		{"flattop blackman plateau", Flattop(0, 10, 2, BlackmanRamp), 5, 1},
		{"flattop blackman start", Flattop(0, 10, 2, BlackmanRamp), 0, 0},
		{"flattop blackman top of ramp", Flattop(0, 10, 2, BlackmanRamp), 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape(tt.t); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("S(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestShapesStayInUnitInterval(t *testing.T) {
	shapes := map[string]Shape{
		"sinsq":            SinSq(0, 1),
		"blackman":         Blackman(0, 1),
		"flattop sinsq":    Flattop(0, 1, 0.2, SinSqRamp),
		"flattop blackman": Flattop(0, 1, 0.2, BlackmanRamp),
	}
	for name, s := range shapes {
		for i := 0; i <= 1000; i++ {
			v := s(float64(i) / 1000)
			if v < -1e-12 || v > 1+1e-12 {
				t.Fatalf("%s: S(%v) = %v outside [0, 1]", name, float64(i)/1000, v)
			}
		}
	}
}

func TestSample(t *testing.T) {
	g, _ := grid.Uniform(0, 1, 3)

	s := Sample(nil, g)
	if len(s) != 2 || s[0] != 1 || s[1] != 1 {
		t.Errorf("nil shape should sample as one, got %v", s)
	}

	s = Sample(Box(0, 0.5), g)
	if s[0] != 1 || s[1] != 0 {
		t.Errorf("box sample = %v, want [1 0]", s)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{Lambda: 1}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, l := range []float64{0, -1, math.NaN()} {
		if err := (Options{Lambda: l}).Validate(); err == nil {
			t.Errorf("lambda %v should be rejected", l)
		}
	}
}
