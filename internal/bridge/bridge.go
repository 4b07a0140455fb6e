// Package bridge connects platform capture adapters to an event handler
// through a bounded, non-blocking queue.
//
// The bridge decouples a latency-critical producer (an OS hook or display
// event loop that must return quickly) from a consumer whose forwarding
// call may block or allocate. Producers push without waiting; a full queue
// drops the event and increments the drop counter. A dedicated dispatch
// goroutine drains the queue and forwards every dequeued event, in order,
// exactly once.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"keybridge/internal/event"
	"keybridge/internal/queue"
)

// Handler receives each dequeued event, one call per event, in queue
// order. The call runs on the dispatch goroutine and may block; a slow
// handler throttles delivery but never blocks capture. A returned error is
// logged and the loop continues with the next event.
type Handler interface {
	HandleKey(ev event.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(event.Event) error

// HandleKey calls f.
func (f HandlerFunc) HandleKey(ev event.Event) error { return f(ev) }

var (
	// ErrNoHandler is returned when a bridge is constructed without a
	// handler. Running a dispatch loop that silently discards every
	// event is worse than failing at startup.
	ErrNoHandler = errors.New("bridge: no handler configured")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("bridge: already running")

	// ErrStopTimeout is returned when the dispatch goroutine does not
	// exit within the stop timeout, typically because a handler call is
	// stuck.
	ErrStopTimeout = errors.New("bridge: dispatch loop did not stop in time")

	// ErrSubscriberExists is returned for a duplicate subscriber id.
	ErrSubscriberExists = errors.New("bridge: subscriber id already exists")

	// ErrSubscriberNotFound is returned when unsubscribing an unknown id.
	ErrSubscriberNotFound = errors.New("bridge: subscriber not found")
)

// Default timing values.
const (
	DefaultPollInterval = time.Millisecond
	DefaultDrainTimeout = 500 * time.Millisecond
	DefaultStopTimeout  = 2 * time.Second
)

// Options configures a Bridge.
type Options struct {
	// Capacity is the queue capacity. Zero means queue.DefaultCapacity.
	Capacity int

	// PollInterval is how long the dispatch loop sleeps when the queue
	// is empty. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// DrainTimeout bounds the best-effort drain after Stop. Zero means
	// DefaultDrainTimeout.
	DrainTimeout time.Duration

	// StopTimeout bounds how long Stop waits for the dispatch goroutine
	// to exit. Zero means DefaultStopTimeout.
	StopTimeout time.Duration

	// Logger receives dispatch diagnostics. Nil means slog.Default.
	Logger *slog.Logger
}

func (o *Options) withDefaults() {
	if o.Capacity < 1 {
		o.Capacity = queue.DefaultCapacity
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = DefaultDrainTimeout
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Bridge owns the queue, the drop counter, and the dispatch goroutine.
// Each Bridge is an independent instance; nothing is process-global, so
// tests can run several side by side.
type Bridge struct {
	q       *queue.Queue
	handler Handler
	opts    Options
	log     *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	stats stats
	subs  subscribers
}

// New creates a bridge that forwards events to h. It fails fast when h is
// nil: resolving the forwarding capability is a startup requirement.
func New(h Handler, opts Options) (*Bridge, error) {
	if h == nil {
		return nil, ErrNoHandler
	}
	opts.withDefaults()
	return &Bridge{
		q:       queue.New(opts.Capacity),
		handler: h,
		opts:    opts,
		log:     opts.Logger.With("component", "bridge"),
	}, nil
}

// Capacity returns the fixed queue capacity.
func (b *Bridge) Capacity() int { return b.q.Cap() }

// Push attempts to enqueue one event. It never blocks: when the queue is
// full the event is discarded and the drop counter is incremented exactly
// once. Safe to call from any goroutine, including OS callback threads.
func (b *Bridge) Push(ev event.Event) bool {
	if b.q.TryPush(ev) {
		b.stats.pushed.Add(1)
		return true
	}
	b.stats.dropped.Add(1)
	return false
}

// Dropped returns the total number of events discarded because the queue
// was full. The count is monotonically non-decreasing for the life of the
// bridge and safe to read from any goroutine.
func (b *Bridge) Dropped() int64 { return b.stats.dropped.Load() }

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats { return b.stats.snapshot() }

// Running reports whether the dispatch loop is active.
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start launches the dispatch goroutine. The goroutine runs until Stop is
// called or ctx is cancelled. When a previous Stop timed out, Start keeps
// refusing until the old goroutine has actually exited: a second consumer
// on the same queue would break in-order forwarding.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrAlreadyRunning
	}
	if b.done != nil {
		select {
		case <-b.done:
		default:
			// The previous loop outlived its stop timeout and is
			// still stuck in a handler call.
			return ErrAlreadyRunning
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running = true
	go b.dispatchLoop(ctx, b.done)
	return nil
}

// Stop signals the dispatch loop and joins it with a bounded wait. Events
// still queued are drained best-effort within the drain timeout; events
// remaining after that are lost. Stop is idempotent.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(b.opts.StopTimeout):
		return ErrStopTimeout
	}
}

// dispatchLoop drains the queue and forwards each event exactly once, in
// arrival order. When the queue is empty it sleeps for the poll interval,
// so shutdown latency is bounded by that interval plus one handler call.
func (b *Bridge) dispatchLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		ev, ok := b.q.TryPop()
		if !ok {
			time.Sleep(b.opts.PollInterval)
			continue
		}
		b.deliver(ev)
	}

	// Best-effort drain with a deadline, so a stuck handler cannot hang
	// shutdown indefinitely.
	deadline := time.Now().Add(b.opts.DrainTimeout)
	for time.Now().Before(deadline) {
		ev, ok := b.q.TryPop()
		if !ok {
			return
		}
		b.deliver(ev)
	}
	if n := b.q.Len(); n > 0 {
		b.log.Warn("drain deadline reached", "remaining", n)
	}
}

func (b *Bridge) deliver(ev event.Event) {
	b.stats.delivered.Add(1)
	if err := b.handler.HandleKey(ev); err != nil {
		// One failed delivery must not stop the loop; stopping would
		// silently end all future input delivery.
		b.stats.handlerErrors.Add(1)
		b.log.Error("handler failed", "code", ev.Code, "type", ev.Type.String(), "err", err)
	}
	if n := b.subs.publish(ev); n > 0 {
		b.stats.subscriberDrops.Add(int64(n))
	}
}
