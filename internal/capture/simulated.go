package capture

import (
	"context"

	"keybridge/internal/event"
)

// SimulatedCapture feeds synthetic events into the sink. It is used by
// tests and by hosts that want to exercise the bridge without OS hooks.
type SimulatedCapture struct {
	base
	sink Sink
}

// NewSimulated creates a capture adapter that only emits what the caller
// injects.
func NewSimulated(sink Sink) *SimulatedCapture {
	return &SimulatedCapture{sink: sink}
}

// Available returns true (simulated capture is always available).
func (s *SimulatedCapture) Available() (bool, string) {
	return true, "simulated capture (for testing)"
}

// SupportsModifiers returns true; injected events carry whatever modifier
// flags the caller set.
func (s *SimulatedCapture) SupportsModifiers() bool { return true }

// Start marks the adapter running.
func (s *SimulatedCapture) Start(ctx context.Context) error {
	if s.IsRunning() {
		return ErrAlreadyRunning
	}
	s.SetRunning(true)
	return nil
}

// Stop marks the adapter stopped.
func (s *SimulatedCapture) Stop() error {
	s.SetRunning(false)
	return nil
}

// Inject pushes one synthetic event. It returns false when the sink
// dropped it or the adapter is not running.
func (s *SimulatedCapture) Inject(ev event.Event) bool {
	if !s.IsRunning() {
		return false
	}
	return s.sink.Push(ev)
}

// InjectKey pushes a press/release pair for code with no modifiers.
func (s *SimulatedCapture) InjectKey(code int32) {
	s.Inject(event.Event{Code: code, Type: event.Press})
	s.Inject(event.Event{Code: code, Type: event.Release})
}
