//go:build linux

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	x "github.com/linuxdeepin/go-x11-client"
	"github.com/linuxdeepin/go-x11-client/util/keysyms"

	"keybridge/internal/event"
)

// X11Capture reads key press/release events from the display server on a
// dedicated goroutine.
type X11Capture struct {
	base
	sink Sink
	opts Options
	log  *slog.Logger

	conn   *x.Conn
	syms   *keysyms.KeySymbols
	cancel context.CancelFunc
	done   chan struct{}
}

func newPlatformCapture(sink Sink, opts Options) Capture {
	return &X11Capture{
		sink: sink,
		opts: opts,
		log:  opts.Logger.With("component", "capture", "platform", "x11"),
	}
}

// Available checks whether a display is reachable.
func (c *X11Capture) Available() (bool, string) {
	if os.Getenv("DISPLAY") == "" {
		return false, "DISPLAY not set (X11 session required)"
	}
	return true, "X11 display available"
}

// SupportsModifiers returns false: this adapter does not sample global
// modifier state, so modifier flags on its events mean "unknown".
func (c *X11Capture) SupportsModifiers() bool { return false }

// Start opens the display connection, selects key events on the root
// window, and launches the event loop. A connection or selection failure
// is returned and no goroutine is started.
func (c *X11Capture) Start(ctx context.Context) error {
	if c.IsRunning() {
		return ErrAlreadyRunning
	}

	conn, err := x.NewConn()
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}

	root := conn.GetDefaultScreen().Root
	const eventMask = x.EventMaskKeyPress | x.EventMaskKeyRelease
	err = x.ChangeWindowAttributesChecked(conn, root, x.CWEventMask,
		[]uint32{eventMask}).Check(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("select key events on root window: %w", err)
	}

	events := make(chan x.GenericEvent, 128)
	conn.AddEventChan(events)

	ctx, cancel := context.WithCancel(ctx)
	c.conn = conn
	c.syms = keysyms.NewKeySymbols(conn)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.SetRunning(true)

	go c.eventLoop(ctx, events)

	c.log.Info("capture started", "root", root)
	return nil
}

// eventLoop drains the connection's event channel until the context is
// cancelled, converting each key transition into a non-blocking push.
func (c *X11Capture) eventLoop(ctx context.Context, events <-chan x.GenericEvent) {
	defer close(c.done)
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ge, ok := <-events:
			if !ok {
				c.log.Warn("display connection closed")
				return
			}
			switch ge.GetEventCode() {
			case x.KeyPressEventCode:
				ev, err := x.NewKeyPressEvent(ge)
				if err != nil {
					continue
				}
				c.push(ev.Detail, event.Press)
			case x.KeyReleaseEventCode:
				ev, err := x.NewKeyReleaseEvent(ge)
				if err != nil {
					continue
				}
				c.push(ev.Detail, event.Release)
			}
		}
	}
}

// push translates the hardware keycode to its unshifted keysym and hands
// the event to the sink. Modifier flags stay false; see SupportsModifiers.
func (c *X11Capture) push(keycode x.Keycode, t event.Type) {
	sym := c.syms.GetKeysym(keycode, 0)
	c.sink.Push(event.Event{Code: int32(sym), Type: t})
}

// Stop signals the event loop and joins it, then the display connection
// is released.
func (c *X11Capture) Stop() error {
	if !c.IsRunning() {
		return nil
	}
	c.cancel()
	<-c.done
	c.SetRunning(false)
	c.log.Info("capture stopped")
	return nil
}
