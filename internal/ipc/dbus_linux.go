//go:build linux

// Package ipc exposes bridge statistics over D-Bus for external polling.
//
// Overflow is only observable by polling the drop counter; this service
// lets other processes do that polling without attaching to the daemon.
package ipc

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"keybridge/internal/bridge"
)

const (
	// BusName is the well-known session bus name of the service.
	BusName = "com.keybridge.Bridge"
	// ObjectPath is the exported object path.
	ObjectPath = "/com/keybridge/Bridge"
	// InterfaceName is the exported interface.
	InterfaceName = "com.keybridge.Bridge"
)

// Service exports bridge statistics on the session bus.
type Service struct {
	conn *dbus.Conn
}

// bridgeObject is the exported D-Bus object.
type bridgeObject struct {
	b *bridge.Bridge
}

// DroppedEvents returns the current drop counter value.
func (o *bridgeObject) DroppedEvents() (int32, *dbus.Error) {
	return int32(o.b.Dropped()), nil
}

// Stats returns all bridge counters.
func (o *bridgeObject) Stats() (map[string]int64, *dbus.Error) {
	s := o.b.Stats()
	return map[string]int64{
		"pushed":           s.Pushed,
		"dropped":          s.Dropped,
		"delivered":        s.Delivered,
		"handler_errors":   s.HandlerErrors,
		"subscriber_drops": s.SubscriberDrops,
	}, nil
}

// Start connects to the session bus, claims the well-known name, and
// exports the bridge object.
func Start(b *bridge.Bridge) (*Service, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", BusName)
	}

	if err := conn.Export(&bridgeObject{b: b}, ObjectPath, InterfaceName); err != nil {
		conn.Close()
		return nil, fmt.Errorf("export bridge object: %w", err)
	}

	return &Service{conn: conn}, nil
}

// Close releases the bus connection.
func (s *Service) Close() error {
	return s.conn.Close()
}

// QueryDropped asks a running daemon for its drop counter value.
func QueryDropped() (int32, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, fmt.Errorf("connect to session bus: %w", err)
	}
	defer conn.Close()

	var dropped int32
	obj := conn.Object(BusName, ObjectPath)
	err = obj.Call(InterfaceName+".DroppedEvents", 0).Store(&dropped)
	if err != nil {
		return 0, fmt.Errorf("call DroppedEvents: %w", err)
	}
	return dropped, nil
}
