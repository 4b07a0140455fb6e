// Package event defines the key event record that moves through the bridge.
//
// An Event is a plain value: it carries the platform-native key code, the
// transition type, and sampled modifier flags. It never holds references
// into OS-owned memory, because capture callbacks run on threads whose
// stacks are reclaimed as soon as they return.
package event

// Type is the kind of key transition.
type Type int32

const (
	// Press is a key-down transition.
	Press Type = iota
	// Release is a key-up transition.
	Release
)

// String returns the name of the transition type.
func (t Type) String() string {
	switch t {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Event describes one key transition observed at the OS level.
// It is immutable once constructed.
//
// Code semantics differ per platform: a Windows virtual-key code from the
// low-level hook, an X11 keysym from the display server. The modifier
// flags are only meaningful when the producing adapter reports
// SupportsModifiers; otherwise false means "unknown", not "unheld".
type Event struct {
	Code  int32
	Type  Type
	Shift bool
	Ctrl  bool
	Alt   bool
}
