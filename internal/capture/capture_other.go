//go:build !linux && !windows

package capture

import "context"

// StubCapture is used on platforms without a capture adapter.
type StubCapture struct {
	base
}

func newPlatformCapture(sink Sink, opts Options) Capture {
	return &StubCapture{}
}

// Available returns false on unsupported platforms.
func (s *StubCapture) Available() (bool, string) {
	return false, "keyboard capture not implemented for this platform"
}

// SupportsModifiers returns false.
func (s *StubCapture) SupportsModifiers() bool { return false }

// Start returns an error on unsupported platforms.
func (s *StubCapture) Start(ctx context.Context) error {
	return ErrNotAvailable
}

// Stop is a no-op.
func (s *StubCapture) Stop() error {
	return nil
}
