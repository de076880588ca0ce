package krotov

import (
	"testing"

	"github.com/san-kum/krotov/internal/functional"
	"github.com/stretchr/testify/assert"
)

func history(values ...float64) []IterationRecord {
	h := make([]IterationRecord, len(values))
	prev := 0.0
	for i, v := range values {
		h[i] = IterationRecord{Iteration: i + 1, Value: v, Delta: v - prev}
		prev = v
	}
	return h
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name    string
		check   Check
		history []IterationRecord
		want    Reason
	}{
		{"value above fires", ValueAbove(0.9), history(0.5, 0.95), ConvergedValue},
		{"value above waits", ValueAbove(0.9), history(0.5, 0.85), 0},
		{"value above at limit", ValueAbove(0.9), history(0.9), ConvergedValue},
		{"value below fires", ValueBelow(0.1), history(0.5, 0.05), ConvergedValue},
		{"value below waits", ValueBelow(0.1), history(0.5, 0.2), 0},
		{"delta below fires", DeltaBelow(1e-3), history(0.5, 0.5001), ConvergedChange},
		{"delta below waits", DeltaBelow(1e-3), history(0.5, 0.6), 0},
		{"stagnation fires", Stagnation(2, 1e-2), history(0.5, 0.501, 0.502), ConvergedChange},
		{"stagnation needs k records", Stagnation(3, 1e-2), history(0.5, 0.501), 0},
		{"stagnation waits", Stagnation(2, 1e-2), history(0.5, 0.6, 0.601), 0},
		{"max iterations fires", MaxIterations(2), history(0.1, 0.2), MaxIterationsReached},
		{"max iterations waits", MaxIterations(3), history(0.1, 0.2), 0},
		{"monotonic fires", Monotonic(functional.Maximize, 1e-9), history(0.5, 0.4), ExternallyStopped},
		{"monotonic waits", Monotonic(functional.Maximize, 1e-9), history(0.5, 0.6), 0},
		{"monotonic minimize", Monotonic(functional.Minimize, 1e-9), history(0.5, 0.6), ExternallyStopped},
		{"any", Any(ValueAbove(2), DeltaBelow(1)), history(0.5), ConvergedChange},
		{"all waits", All(ValueAbove(2), DeltaBelow(1)), history(0.5), 0},
		{"all fires", All(ValueAbove(0.1), DeltaBelow(1)), history(0.5), ConvergedValue},
		{"empty all", All(), history(0.5), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.check.Check(tt.history)
			if tt.want == 0 {
				assert.Nil(t, s)
				return
			}
			if assert.NotNil(t, s) {
				assert.Equal(t, tt.want, s.Reason)
				assert.NotEmpty(t, s.Message)
			}
		})
	}
}

func TestChecks_EmptyHistory(t *testing.T) {
	checks := []Check{
		ValueAbove(-1), ValueBelow(1), DeltaBelow(1), Stagnation(1, 1), MaxIterations(0),
		Monotonic(functional.Maximize, 0), Any(ValueAbove(-1)),
	}
	for _, c := range checks {
		assert.Nil(t, c.Check(nil))
	}
}

func TestStop_DefaultReason(t *testing.T) {
	assert.Equal(t, ExternallyStopped, (&Stop{}).reason())
	assert.Equal(t, ConvergedValue, (&Stop{Reason: ConvergedValue}).reason())
}

func TestReason_Text(t *testing.T) {
	for r := ConvergedValue; r <= PropagationError; r++ {
		b, err := r.MarshalText()
		assert.NoError(t, err)

		var back Reason
		assert.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, r, back)
	}

	_, err := Reason(0).MarshalText()
	assert.Error(t, err)
	var r Reason
	assert.Error(t, r.UnmarshalText([]byte("bogus")))
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme("Simultaneous")
	assert.NoError(t, err)
	assert.Equal(t, Simultaneous, s)

	s, err = ParseScheme("")
	assert.NoError(t, err)
	assert.Equal(t, Sequential, s)

	_, err = ParseScheme("random")
	assert.ErrorIs(t, err, ErrConfiguration)
}
