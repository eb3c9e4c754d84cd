package steam

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/device"
)

// GATTClient issues the asynchronous GATT client requests a bring-up needs.
// Results come back as Events tagged with the same Query, delivered later on the
// event context and never from inside the call.
type GATTClient interface {
	DiscoverPrimaryService(q Query, uuid ble.UUID) error
	DiscoverCharacteristics(q Query, svc *ble.Service, uuid ble.UUID) error
	WriteCharacteristic(q Query, c *ble.Characteristic, value []byte) error
}

// Lifecycle receives the bring-up completion signal.
type Lifecycle interface {
	SetReadyComplete(c *device.Controller)
}

// Machine drives one controller connection from lizard mode to raw reports.
type Machine struct {
	query      Query
	state      State
	stalled    bool
	controller *device.Controller

	service *ble.Service
	report  *ble.Characteristic

	client    GATTClient
	lifecycle Lifecycle
	result    *Result
	logger    *logrus.Logger
}

func newMachine(q Query, c *device.Controller, client GATTClient, lifecycle Lifecycle, logger *logrus.Logger) *Machine {
	return &Machine{
		query:      q,
		state:      StateDiscoverService,
		controller: c,
		client:     client,
		lifecycle:  lifecycle,
		result:     newResult(),
		logger:     logger,
	}
}

// State returns the current protocol state.
func (m *Machine) State() State {
	return m.state
}

// Stalled reports whether the machine stopped on a protocol failure.
func (m *Machine) Stalled() bool {
	return m.stalled
}

// Query returns the token tagging this machine's requests.
func (m *Machine) Query() Query {
	return m.query
}

// Report returns the discovered input report characteristic, or nil.
func (m *Machine) Report() *ble.Characteristic {
	return m.report
}

// Result returns the completion handle.
func (m *Machine) Result() *Result {
	return m.result
}

func (m *Machine) log() *logrus.Entry {
	return m.logger.WithFields(logrus.Fields{
		"conn":  m.query.Handle.String(),
		"state": m.state.String(),
	})
}

// start issues the vendor service discovery.
func (m *Machine) start() {
	m.log().Info("Searching for Steam service")
	if err := m.client.DiscoverPrimaryService(m.query, serviceUUID); err != nil {
		m.stall(ble.ErrUnlikely, fmt.Errorf("discover service: %w", err))
	}
}

// handle applies ev to the machine. Each state's transition returns the next state.
func (m *Machine) handle(ev Event) {
	if m.stalled {
		m.log().WithField("event", ev.Kind.String()).Debug("Bring-up stalled, event ignored")
		return
	}

	var next State
	switch m.state {
	case StateDiscoverService:
		next = m.onDiscoverService(ev)
	case StateDiscoverCharacteristic:
		next = m.onDiscoverCharacteristic(ev)
	case StateClearMappings:
		next = m.onClearMappings(ev)
	case StateDisableFactoryMode:
		next = m.onDisableFactoryMode(ev)
	case StateDone:
		next = m.onDone(ev)
	default:
		m.log().Error("Unknown bring-up state")
		return
	}

	if next != m.state {
		m.log().WithField("next", next.String()).Debug("Bring-up transition")
		m.state = next
	}
}

// completed checks a query-complete event. It returns false for other event
// kinds and for failures, stalling the machine on the latter.
func (m *Machine) completed(ev Event) bool {
	if ev.Kind != EventQueryComplete {
		m.log().WithField("event", ev.Kind.String()).Warn("Unexpected event")
		return false
	}
	if ev.Status != ble.ErrSuccess {
		m.stall(ev.Status, nil)
		return false
	}
	return true
}

func (m *Machine) stall(status ble.ATTError, err error) {
	m.stalled = true
	m.log().WithFields(logrus.Fields{
		"status": fmt.Sprintf("%#02x", uint8(status)),
		"error":  err,
	}).Error("Bring-up stalled")
	m.result.resolve(m.state, &StallError{Handle: m.query.Handle, State: m.state, Status: status, Err: err})
}

func (m *Machine) onDiscoverService(ev Event) State {
	if ev.Kind == EventServiceResult {
		if ev.Service != nil && ev.Service.UUID.Equal(serviceUUID) {
			m.service = ev.Service
		}
		return StateDiscoverService
	}
	if !m.completed(ev) {
		return StateDiscoverService
	}
	if m.service == nil {
		m.stall(ble.ErrAttrNotFound, nil)
		return StateDiscoverService
	}

	m.log().Info("Searching for Steam report characteristic")
	if err := m.client.DiscoverCharacteristics(m.query, m.service, reportUUID); err != nil {
		m.stall(ble.ErrUnlikely, fmt.Errorf("discover characteristics: %w", err))
		return StateDiscoverService
	}
	return StateDiscoverCharacteristic
}

func (m *Machine) onDiscoverCharacteristic(ev Event) State {
	if ev.Kind == EventCharacteristicResult {
		if ev.Characteristic != nil && ev.Characteristic.UUID.Equal(reportUUID) {
			m.report = ev.Characteristic
		}
		return StateDiscoverCharacteristic
	}
	if !m.completed(ev) {
		return StateDiscoverCharacteristic
	}
	if m.report == nil {
		m.stall(ble.ErrAttrNotFound, nil)
		return StateDiscoverCharacteristic
	}

	if err := m.client.WriteCharacteristic(m.query, m.report, ClearMappingsFrame()); err != nil {
		m.stall(ble.ErrUnlikely, fmt.Errorf("clear mappings: %w", err))
		return StateDiscoverCharacteristic
	}
	return StateClearMappings
}

func (m *Machine) onClearMappings(ev Event) State {
	if !m.completed(ev) {
		return StateClearMappings
	}
	if err := m.client.WriteCharacteristic(m.query, m.report, DisableLizardFrame()); err != nil {
		m.stall(ble.ErrUnlikely, fmt.Errorf("disable lizard mode: %w", err))
		return StateClearMappings
	}
	return StateDisableFactoryMode
}

func (m *Machine) onDisableFactoryMode(ev Event) State {
	if !m.completed(ev) {
		return StateDisableFactoryMode
	}
	m.log().Info("Steam controller ready")
	if m.lifecycle != nil {
		m.lifecycle.SetReadyComplete(m.controller)
	}
	m.result.resolve(StateDone, nil)
	return StateDone
}

func (m *Machine) onDone(ev Event) State {
	m.log().WithField("event", ev.Kind.String()).Warn("Unexpected event after bring-up")
	return StateDone
}
