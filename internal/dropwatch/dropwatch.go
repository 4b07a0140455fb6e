// Package dropwatch polls a drop counter and reports changes.
//
// Overflow is not pushed anywhere by the bridge; it is only visible by
// polling. The watcher does that polling on behalf of the host and fires
// a callback whenever the observed total changes.
package dropwatch

import (
	"context"
	"sync"
	"time"
)

// Source exposes the drop counter. *bridge.Bridge satisfies this.
type Source interface {
	Dropped() int64
}

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Watcher polls src at a fixed interval and invokes the callback when the
// count changes.
type Watcher struct {
	src      Source
	interval time.Duration
	onChange func(total int64)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    int64
}

// New creates a watcher. A zero interval means DefaultInterval.
func New(src Source, interval time.Duration, onChange func(total int64)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		src:      src,
		interval: interval,
		onChange: onChange,
		last:     -1, // so the first observation is always reported
	}
}

// Start launches the polling goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	go w.pollLoop(ctx)
	return nil
}

// Stop signals the polling goroutine and joins it.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (w *Watcher) pollLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := w.src.Dropped()
			if current != w.last {
				w.last = current
				if w.onChange != nil {
					w.onChange(current)
				}
			}
		}
	}
}
