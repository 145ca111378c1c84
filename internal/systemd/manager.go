package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// DefaultUnit is the unit the host is installed as.
const DefaultUnit = "biodockify.service"

// UnitStatus is the subset of unit properties the control API reports.
type UnitStatus struct {
	Unit        string
	LoadState   string
	ActiveState string
	SubState    string
	MainPID     uint32
}

// Active reports whether systemd considers the unit running.
func (s UnitStatus) Active() bool {
	return s.ActiveState == "active" || s.ActiveState == "reloading"
}

// Manager queries and restarts the host's own unit over D-Bus.
type Manager struct {
	conn *dbus.Conn
	unit string
}

// NewManager connects to the user bus, or the system bus when system is true.
// An empty unit selects DefaultUnit.
func NewManager(ctx context.Context, unit string, system bool) (*Manager, error) {
	if unit == "" {
		unit = DefaultUnit
	}
	var (
		conn *dbus.Conn
		err  error
	)
	if system {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	} else {
		conn, err = dbus.NewUserConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	return &Manager{conn: conn, unit: unit}, nil
}

// Unit returns the managed unit name.
func (m *Manager) Unit() string {
	return m.unit
}

// Status reads the unit's load and activation state.
func (m *Manager) Status(ctx context.Context) (UnitStatus, error) {
	props, err := m.conn.GetUnitPropertiesContext(ctx, m.unit)
	if err != nil {
		return UnitStatus{}, fmt.Errorf("get properties of %s: %w", m.unit, err)
	}
	return statusFromProperties(m.unit, props), nil
}

// Restart queues a restart of the unit in replace mode. systemd stops this
// process as part of the job, so the call returns once the job is queued.
func (m *Manager) Restart(ctx context.Context) error {
	if _, err := m.conn.RestartUnitContext(ctx, m.unit, "replace", nil); err != nil {
		return fmt.Errorf("restart %s: %w", m.unit, err)
	}
	return nil
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

func statusFromProperties(unit string, props map[string]any) UnitStatus {
	status := UnitStatus{Unit: unit}
	status.LoadState, _ = props["LoadState"].(string)
	status.ActiveState, _ = props["ActiveState"].(string)
	status.SubState, _ = props["SubState"].(string)
	status.MainPID, _ = props["ExecMainPID"].(uint32)
	if status.MainPID == 0 {
		status.MainPID, _ = props["MainPID"].(uint32)
	}
	return status
}
