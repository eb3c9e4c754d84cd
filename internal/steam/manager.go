package steam

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/device"
)

// Manager owns the bring-up machines, one per connection handle. Machines for
// different connections are independent and may interleave.
//
// Start, HandleEvent and Abandon must be called from the BLE event context.
type Manager struct {
	machines  *hashmap.Map[device.ConnHandle, *Machine]
	session   atomic.Uint64
	client    GATTClient
	lifecycle Lifecycle
	logger    *logrus.Logger
}

// NewManager creates a manager issuing requests through client.
func NewManager(client GATTClient, lifecycle Lifecycle, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		machines:  hashmap.New[device.ConnHandle, *Machine](),
		client:    client,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// Start begins bring-up for a connected controller. A machine still registered
// for the same handle is abandoned first.
func (m *Manager) Start(c *device.Controller) *Result {
	if old, ok := m.machines.Get(c.Handle); ok {
		old.result.resolve(old.state, ErrAbandoned)
	}

	q := Query{Handle: c.Handle, Session: m.session.Add(1)}
	mc := newMachine(q, c, m.client, m.lifecycle, m.logger)
	m.machines.Set(c.Handle, mc)
	mc.start()
	return mc.result
}

// HandleEvent routes a GATT client event to its machine. Events for unknown
// handles or from an earlier session are discarded.
func (m *Manager) HandleEvent(ev Event) {
	mc, ok := m.machines.Get(ev.Query.Handle)
	if !ok || mc.query.Session != ev.Query.Session {
		m.logger.WithFields(logrus.Fields{
			"query": ev.Query.String(),
			"event": ev.Kind.String(),
		}).Debug("Discarding stale bring-up event")
		return
	}
	mc.handle(ev)
}

// Abandon drops the machine for h, resolving its result with ErrAbandoned if it
// had not finished.
func (m *Manager) Abandon(h device.ConnHandle) {
	mc, ok := m.machines.Get(h)
	if !ok {
		return
	}
	m.machines.Del(h)
	mc.result.resolve(mc.state, ErrAbandoned)
	m.logger.WithFields(logrus.Fields{
		"conn":  h.String(),
		"state": mc.state.String(),
	}).Debug("Bring-up released")
}

// Machine returns the live machine for h.
func (m *Manager) Machine(h device.ConnHandle) (*Machine, bool) {
	return m.machines.Get(h)
}

// Len returns the number of tracked machines.
func (m *Manager) Len() int {
	return m.machines.Len()
}
