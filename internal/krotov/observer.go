package krotov

// Stop asks the driver to end the run after the current iteration. A zero
// Reason means ExternallyStopped.
type Stop struct {
	Reason  Reason
	Message string
}

// Observer is notified once per completed iteration, after the record has
// been appended. Each observer receives its own copy of the record.
type Observer interface {
	OnIteration(rec IterationRecord) *Stop
}

type ObserverFunc func(rec IterationRecord) *Stop

func (f ObserverFunc) OnIteration(rec IterationRecord) *Stop { return f(rec) }

func (s *Stop) reason() Reason {
	if s.Reason == 0 {
		return ExternallyStopped
	}
	return s.Reason
}
