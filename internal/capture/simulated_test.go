package capture

import (
	"context"
	"testing"

	"keybridge/internal/event"
)

type recordingSink struct {
	events []event.Event
	full   bool
}

func (s *recordingSink) Push(ev event.Event) bool {
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func TestSimulatedLifecycle(t *testing.T) {
	sink := &recordingSink{}
	sim := NewSimulated(sink)

	if sim.IsRunning() {
		t.Fatal("running before start")
	}
	if sim.Inject(event.Event{Code: 65, Type: event.Press}) {
		t.Error("inject accepted while stopped")
	}

	if err := sim.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sim.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("second start: got %v, want ErrAlreadyRunning", err)
	}

	if err := sim.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sim.IsRunning() {
		t.Error("still running after stop")
	}
}

func TestSimulatedInject(t *testing.T) {
	sink := &recordingSink{}
	sim := NewSimulated(sink)
	if err := sim.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sim.Stop()

	if !sim.Inject(event.Event{Code: 65, Type: event.Press, Shift: true}) {
		t.Fatal("inject rejected")
	}
	sim.InjectKey(13)

	want := []event.Event{
		{Code: 65, Type: event.Press, Shift: true},
		{Code: 13, Type: event.Press},
		{Code: 13, Type: event.Release},
	}
	if len(sink.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(sink.events), len(want))
	}
	for i, ev := range want {
		if sink.events[i] != ev {
			t.Errorf("event %d = %+v, want %+v", i, sink.events[i], ev)
		}
	}
}

func TestSimulatedFullSink(t *testing.T) {
	sink := &recordingSink{full: true}
	sim := NewSimulated(sink)
	if err := sim.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer sim.Stop()

	// A rejected push is reported but does not stop the adapter.
	if sim.Inject(event.Event{Code: 65, Type: event.Press}) {
		t.Error("inject reported success on a full sink")
	}
	if !sim.IsRunning() {
		t.Error("adapter stopped on sink rejection")
	}
}

func TestSimulatedCapabilities(t *testing.T) {
	sim := NewSimulated(&recordingSink{})
	ok, reason := sim.Available()
	if !ok {
		t.Errorf("not available: %s", reason)
	}
	if !sim.SupportsModifiers() {
		t.Error("simulated capture should carry caller-set modifiers")
	}
}
