package sequence

import (
	"testing"
	"time"

	"keybridge/internal/event"
)

// fakeClock lets tests control the inter-key gap.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) (*Manager, *[]string) {
	t.Helper()
	layout := event.X11Layout()
	var completed []string
	m, err := New(Options{
		Layout: layout,
		Rules: []Rule{
			func(ev event.Event) bool {
				_, ok := layout.Char(ev.Code)
				return ok
			},
		},
		OnComplete: func(seq string) { completed = append(completed, seq) },
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m, &completed
}

func release(code int32) event.Event {
	return event.Event{Code: code, Type: event.Release}
}

func typeKeys(m *Manager, clock *fakeClock, codes ...int32) {
	for _, code := range codes {
		clock.advance(10 * time.Millisecond)
		m.Process(event.Event{Code: code, Type: event.Press})
		m.Process(release(code))
	}
}

func TestNewRequiresLayout(t *testing.T) {
	_, err := New(Options{})
	if err != ErrNoLayout {
		t.Fatalf("got %v, want ErrNoLayout", err)
	}
}

func TestSequenceComplete(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m, completed := newTestManager(t, clock)

	typeKeys(m, clock, '1', '2', '3', 0xFF0D)

	if len(*completed) != 1 || (*completed)[0] != "123" {
		t.Errorf("got %v, want [123]", *completed)
	}
}

func TestPressesIgnored(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m, completed := newTestManager(t, clock)

	// Presses alone never complete anything.
	for _, code := range []int32{'1', 0xFF0D} {
		m.Process(event.Event{Code: code, Type: event.Press})
	}
	if len(*completed) != 0 {
		t.Errorf("presses completed a sequence: %v", *completed)
	}
}

func TestTimeoutClearsBuffer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m, completed := newTestManager(t, clock)

	typeKeys(m, clock, 'a', 'b')
	clock.advance(time.Second) // well past the 250ms default
	typeKeys(m, clock, 'c', 0xFF0D)

	if len(*completed) != 1 || (*completed)[0] != "c" {
		t.Errorf("got %v, want [c]", *completed)
	}
}

func TestUnmatchedKeyBreaksSequence(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m, completed := newTestManager(t, clock)

	// Escape has no character, so the rule rejects it mid-sequence.
	typeKeys(m, clock, '1', '2', 0xFF1B, '3', 0xFF0D)

	if len(*completed) != 1 || (*completed)[0] != "3" {
		t.Errorf("got %v, want [3]", *completed)
	}
}

func TestValidationRejects(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	layout := event.X11Layout()
	var completed []string
	m, err := New(Options{
		Layout: layout,
		Rules: []Rule{func(ev event.Event) bool {
			_, ok := layout.Char(ev.Code)
			return ok
		}},
		Validate:   func(seq string) bool { return len(seq) >= 4 },
		OnComplete: func(seq string) { completed = append(completed, seq) },
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	typeKeys(m, clock, '1', '2', 0xFF0D)       // too short, rejected
	typeKeys(m, clock, '1', '2', '3', '4', 0xFF0D) // accepted

	if len(completed) != 1 || completed[0] != "1234" {
		t.Errorf("got %v, want [1234]", completed)
	}
}

func TestBlockedClearsBuffer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	layout := event.X11Layout()
	blocked := false
	var completed []string
	m, err := New(Options{
		Layout: layout,
		Rules: []Rule{func(ev event.Event) bool {
			_, ok := layout.Char(ev.Code)
			return ok
		}},
		OnComplete: func(seq string) { completed = append(completed, seq) },
		Blocked:    func() bool { return blocked },
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	typeKeys(m, clock, '1', '2')
	blocked = true
	typeKeys(m, clock, '3')
	blocked = false
	typeKeys(m, clock, '4', 0xFF0D)

	// The block discarded everything accumulated before it.
	if len(completed) != 1 || completed[0] != "4" {
		t.Errorf("got %v, want [4]", completed)
	}
}

func TestSetRulesResets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m, completed := newTestManager(t, clock)

	typeKeys(m, clock, '1', '2')
	m.SetRules([]Rule{func(ev event.Event) bool { return true }})
	typeKeys(m, clock, '3', 0xFF0D)

	if len(*completed) != 1 || (*completed)[0] != "3" {
		t.Errorf("got %v, want [3]", *completed)
	}
}
