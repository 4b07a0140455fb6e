//go:build !linux

// Package ipc exposes bridge statistics over D-Bus for external polling.
// Only implemented on Linux.
package ipc

import (
	"errors"

	"keybridge/internal/bridge"
)

// ErrUnsupported is returned on platforms without a D-Bus session bus.
var ErrUnsupported = errors.New("ipc: D-Bus export not supported on this platform")

// Service is a stub on non-Linux platforms.
type Service struct{}

// Start returns ErrUnsupported.
func Start(b *bridge.Bridge) (*Service, error) {
	return nil, ErrUnsupported
}

// Close is a no-op.
func (s *Service) Close() error { return nil }

// QueryDropped returns ErrUnsupported.
func QueryDropped() (int32, error) {
	return 0, ErrUnsupported
}
