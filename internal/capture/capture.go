// Package capture translates OS-native keyboard notifications into bridge
// events.
//
// One adapter exists per platform:
//   - Windows: a low-level keyboard hook on a dedicated message-pump
//     thread. The hook callback must return quickly, so it only extracts
//     the key code, samples modifier state, and pushes into the sink.
//   - Linux/X11: a dedicated goroutine draining key press/release events
//     from a display server connection.
//
// A full sink is never a capture failure; the sink counts the drop and
// capture continues. Failure to register the hook or open the display is
// returned from Start, and no goroutine is started in that case.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"keybridge/internal/event"
)

// Sink receives captured events. Push must never block; it returns false
// when the event was dropped. *bridge.Bridge satisfies this.
type Sink interface {
	Push(ev event.Event) bool
}

// Capture observes OS-level keyboard activity and pushes one event per
// key transition into the sink.
type Capture interface {
	// Start begins capturing. It returns an error when the OS hook or
	// display connection cannot be established; no thread is spawned in
	// that case.
	Start(ctx context.Context) error

	// Stop signals the capture thread and joins it.
	Stop() error

	// Available reports whether capture can run on this platform with
	// current permissions, with a human-readable reason.
	Available() (bool, string)

	// SupportsModifiers reports whether pushed events carry sampled
	// modifier state. When false, modifier flags are always false and
	// mean "unknown", not "unheld".
	SupportsModifiers() bool
}

// ErrNotAvailable is returned when keyboard capture isn't possible on this
// platform.
var ErrNotAvailable = errors.New("keyboard capture not available on this platform")

// ErrAlreadyRunning is returned when Start is called while running.
var ErrAlreadyRunning = errors.New("capture already running")

// DefaultPollInterval is the idle sleep between message-pump polls.
const DefaultPollInterval = time.Millisecond

// Options configures a platform capture adapter.
type Options struct {
	// PollInterval is the idle sleep of the capture loop where the
	// platform requires polling. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Logger receives capture diagnostics. Nil means slog.Default.
	Logger *slog.Logger
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// New creates the capture adapter for the current platform.
func New(sink Sink, opts Options) Capture {
	opts.withDefaults()
	return newPlatformCapture(sink, opts)
}

// base provides the running-state bookkeeping shared by the platform
// implementations.
type base struct {
	mu      sync.RWMutex
	running bool
}

func (b *base) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *base) SetRunning(running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = running
}
