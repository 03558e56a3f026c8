// Package systemd talks to the systemd manager over D-Bus to restart the
// supervised autopilot unit when the supervisor escalates.
package systemd

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	systemdDest  = "org.freedesktop.systemd1"
	systemdPath  = "/org/freedesktop/systemd1"
	managerIface = "org.freedesktop.systemd1.Manager"
)

type Client struct {
	conn *dbus.Conn
}

func NewClient() (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &Client{conn: conn}, nil
}

// RestartUnit asks systemd to restart the given unit, replacing any queued
// job for it.
func (c *Client) RestartUnit(unit string) error {
	obj := c.conn.Object(systemdDest, dbus.ObjectPath(systemdPath))

	var jobPath dbus.ObjectPath
	call := obj.Call(managerIface+".RestartUnit", 0, unit, "replace")
	if call.Err != nil {
		return fmt.Errorf("failed to restart unit %s: %w", unit, call.Err)
	}
	if err := call.Store(&jobPath); err != nil {
		return fmt.Errorf("failed to read restart job for %s: %w", unit, err)
	}

	return nil
}

// UnitActiveState returns the ActiveState property of a unit, e.g.
// "active" or "failed".
func (c *Client) UnitActiveState(unit string) (string, error) {
	obj := c.conn.Object(systemdDest, dbus.ObjectPath(systemdPath))

	var unitPath dbus.ObjectPath
	if err := obj.Call(managerIface+".GetUnit", 0, unit).Store(&unitPath); err != nil {
		return "", fmt.Errorf("failed to look up unit %s: %w", unit, err)
	}

	unitObj := c.conn.Object(systemdDest, unitPath)
	prop, err := unitObj.GetProperty("org.freedesktop.systemd1.Unit.ActiveState")
	if err != nil {
		return "", fmt.Errorf("failed to read active state of %s: %w", unit, err)
	}

	state, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected active state type for %s", unit)
	}
	return state, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
