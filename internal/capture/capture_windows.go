//go:build windows

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"keybridge/internal/event"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13
	hcAction     = 0

	wmKeyUp    = 0x0101
	wmSysKeyUp = 0x0105

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12

	pmRemove = 0x0001
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// winMsg mirrors MSG.
type winMsg struct {
	Hwnd    windows.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// The OS invokes the hook on the thread that installed it, so the
// callback cannot carry a receiver. One HookCapture is active per process
// at a time; the callback reads it through this pointer.
var activeCapture atomic.Pointer[HookCapture]

// syscall.NewCallback allocations are never released, so the callback is
// created once for the life of the process.
var hookProc = sync.OnceValue(func() uintptr {
	return syscall.NewCallback(lowLevelKeyboardProc)
})

// lowLevelKeyboardProc is the WH_KEYBOARD_LL callback. It extracts the
// virtual-key code and transition, samples modifier state with a
// non-blocking query, pushes into the sink, and unconditionally forwards
// the notification to the next hook. It performs no operation that can
// block: a full queue is a counted drop, not a wait.
func lowLevelKeyboardProc(nCode, wparam, lparam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if c := activeCapture.Load(); c != nil {
			kb := (*kbdllHookStruct)(unsafe.Pointer(lparam))
			t := event.Press
			if wparam == wmKeyUp || wparam == wmSysKeyUp {
				t = event.Release
			}
			c.sink.Push(event.Event{
				Code:  int32(kb.VkCode),
				Type:  t,
				Shift: keyHeld(vkShift),
				Ctrl:  keyHeld(vkControl),
				Alt:   keyHeld(vkMenu),
			})
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wparam, lparam)
	return ret
}

func keyHeld(vk uintptr) bool {
	state, _, _ := procGetAsyncKeyState.Call(vk)
	return state&0x8000 != 0
}

// HookCapture installs a low-level keyboard hook and runs the message
// pump that keeps it fed, on a dedicated locked OS thread.
type HookCapture struct {
	base
	sink Sink
	opts Options
	log  *slog.Logger

	hook   uintptr
	cancel context.CancelFunc
	done   chan struct{}
}

func newPlatformCapture(sink Sink, opts Options) Capture {
	return &HookCapture{
		sink: sink,
		opts: opts,
		log:  opts.Logger.With("component", "capture", "platform", "windows"),
	}
}

// Available reports hook availability. The low-level keyboard hook needs
// no special privileges on Windows.
func (c *HookCapture) Available() (bool, string) {
	return true, "low-level keyboard hook available"
}

// SupportsModifiers returns true: modifier state is sampled on every
// notification via GetAsyncKeyState.
func (c *HookCapture) SupportsModifiers() bool { return true }

// Start installs the hook and begins pumping messages. Installation
// failure is returned and nothing keeps running.
func (c *HookCapture) Start(ctx context.Context) error {
	if c.IsRunning() {
		return ErrAlreadyRunning
	}
	if !activeCapture.CompareAndSwap(nil, c) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	installed := make(chan error, 1)
	go c.pump(ctx, installed)

	if err := <-installed; err != nil {
		cancel()
		activeCapture.CompareAndSwap(c, nil)
		return err
	}

	c.SetRunning(true)
	c.log.Info("keyboard hook installed")
	return nil
}

// pump installs the hook and runs the message loop on one locked OS
// thread: the hook only receives notifications while this thread pumps.
func (c *HookCapture) pump(ctx context.Context, installed chan<- error) {
	defer close(c.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hook, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, hookProc(), 0, 0)
	if hook == 0 {
		installed <- fmt.Errorf("install low-level keyboard hook: %w", callErr)
		return
	}
	c.hook = hook
	installed <- nil

	var m winMsg
	for ctx.Err() == nil {
		for {
			got, _, _ := procPeekMessageW.Call(
				uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
			if got == 0 {
				break
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		}
		time.Sleep(c.opts.PollInterval)
	}

	procUnhookWindowsHookEx.Call(c.hook)
	c.hook = 0
}

// Stop signals the pump thread and joins it. Shutdown latency is bounded
// by the poll interval.
func (c *HookCapture) Stop() error {
	if !c.IsRunning() {
		return nil
	}
	c.cancel()
	<-c.done
	activeCapture.CompareAndSwap(c, nil)
	c.SetRunning(false)
	c.log.Info("keyboard hook removed")
	return nil
}
