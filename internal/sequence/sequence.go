// Package sequence assembles released keys into delimited strings.
//
// This serves scanner-style input devices (barcode readers, magstripe
// wedges) that type a burst of characters and terminate it with a known
// key. The manager accumulates characters from key-release events that
// satisfy its match rules, clears the buffer when the burst pauses for
// longer than the timeout, and reports the accumulated string when the
// done rule fires.
package sequence

import (
	"errors"
	"strings"
	"sync"
	"time"

	"keybridge/internal/event"
)

// Rule decides whether a key event participates in a sequence.
type Rule func(ev event.Event) bool

// ErrNoLayout is returned when a manager is constructed without a layout.
var ErrNoLayout = errors.New("sequence: no layout configured")

// DefaultTimeout is the maximum pause between keys of one sequence.
const DefaultTimeout = 250 * time.Millisecond

// Options configures a Manager.
type Options struct {
	// Layout translates key codes into characters. Required.
	Layout *event.Layout

	// Rules decide which events may contribute characters. An event
	// matching no rule clears the buffer. Empty means nothing matches.
	Rules []Rule

	// Done decides when a sequence is complete. Nil means the layout's
	// Enter key.
	Done Rule

	// Validate, when set, rejects completed sequences that return
	// false; rejected sequences are discarded silently.
	Validate func(seq string) bool

	// OnComplete receives each completed (and validated) sequence.
	OnComplete func(seq string)

	// Blocked, when set and returning true, suspends sequence
	// processing and clears the buffer.
	Blocked func() bool

	// Timeout is the maximum pause between keys. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// Manager accumulates key releases into sequences. Safe for use from one
// feeding goroutine; the mutex guards rule updates from other goroutines.
type Manager struct {
	mu       sync.Mutex
	layout   *event.Layout
	rules    []Rule
	done     Rule
	validate func(string) bool
	complete func(string)
	blocked  func() bool
	timeout  time.Duration
	now      func() time.Time

	buf     strings.Builder
	lastKey time.Time
}

// New creates a sequence manager. It fails fast when no layout is
// configured: the default done rule and character lookups both need one.
func New(opts Options) (*Manager, error) {
	if opts.Layout == nil {
		return nil, ErrNoLayout
	}
	m := &Manager{
		layout:   opts.Layout,
		rules:    opts.Rules,
		done:     opts.Done,
		validate: opts.Validate,
		complete: opts.OnComplete,
		blocked:  opts.Blocked,
		timeout:  opts.Timeout,
		now:      opts.Now,
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.done == nil {
		m.done = func(ev event.Event) bool {
			return m.layout.IsReturn(ev.Code)
		}
	}
	return m, nil
}

// SetRules replaces the match rules and clears the buffer.
func (m *Manager) SetRules(rules []Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = rules
	m.buf.Reset()
}

// Reset clears the accumulated buffer.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Reset()
}

// Process feeds one event into the manager. Only key releases advance a
// sequence; presses are ignored.
func (m *Manager) Process(ev event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.blocked != nil && m.blocked() {
		m.buf.Reset()
		return
	}
	if ev.Type != event.Release {
		return
	}

	now := m.now()
	if now.Sub(m.lastKey) > m.timeout {
		m.buf.Reset()
	}
	m.lastKey = now

	if m.done(ev) {
		seq := m.buf.String()
		m.buf.Reset()
		if m.validate != nil && !m.validate(seq) {
			return
		}
		if m.complete != nil {
			m.complete(seq)
		}
		return
	}

	for _, rule := range m.rules {
		if rule(ev) {
			if ch, ok := m.layout.Char(ev.Code); ok {
				m.buf.WriteString(ch)
			}
			return
		}
	}
	// An event outside the rules breaks the sequence.
	m.buf.Reset()
}

// Run consumes events from ch until it closes. It is meant to drain a
// bridge subscription on its own goroutine.
func (m *Manager) Run(ch <-chan event.Event) {
	for ev := range ch {
		m.Process(ev)
	}
}
