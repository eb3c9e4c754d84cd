package service

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/device"
)

// DefaultMaxClients is the number of BLE clients that can subscribe at the same time.
const DefaultMaxClients = 2

// Stack is the part of the BLE host stack the service drives.
type Stack interface {
	// RequestCanSendNow asks for a single "ready to send" callback for h,
	// delivered later through Service.OnCanSendNow.
	RequestCanSendNow(h device.ConnHandle)
	// Notify pushes value to the client h on the characteristic attr.
	Notify(h device.ConnHandle, attr Attr, value []byte) error
}

// Toggle is a boolean feature switch owned by another part of the host.
type Toggle interface {
	Enabled() bool
	SetEnabled(enabled bool)
}

// Options configures a Service.
type Options struct {
	Version    string
	MaxDevices int
	MaxClients int
	// Disabled starts the service with lifecycle mirroring switched off.
	Disabled bool
}

// Service is the introspection/control GATT service. It owns the compact device
// table, the client connection table and the notification round-robin cursor.
//
// Service has no internal locking: every method must be called from the single
// BLE event context.
type Service struct {
	version string
	enabled bool

	table   *device.Table
	clients clientTable
	cursor  int
	// inFlight is the connection a "ready to send" request is outstanding for.
	inFlight device.ConnHandle

	stack      Stack
	bleEnabled Toggle
	scanning   Toggle

	scratch []byte
	logger  *logrus.Logger
}

// New creates a service with a zeroed device table and an empty client table.
func New(opts Options, registry device.Registry, stack Stack, bleEnabled, scanning Toggle, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.MaxDevices <= 0 {
		opts.MaxDevices = 4
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = DefaultMaxClients
	}

	s := &Service{
		version:    opts.Version,
		enabled:    !opts.Disabled,
		table:      device.NewTable(opts.MaxDevices, registry, logger),
		clients:    newClientTable(opts.MaxClients),
		inFlight:   device.InvalidHandle,
		stack:      stack,
		bleEnabled: bleEnabled,
		scanning:   scanning,
		logger:     logger,
	}
	s.scratch = make([]byte, 0, s.table.Size())

	logger.WithFields(logrus.Fields{
		"uuid":        ServiceUUID,
		"max_devices": opts.MaxDevices,
		"max_clients": opts.MaxClients,
	}).Info("Controller service initialized")
	return s
}

// Table returns the compact device table.
func (s *Service) Table() *device.Table {
	return s.table
}

// Enabled reports whether lifecycle events are mirrored into the table.
func (s *Service) Enabled() bool {
	return s.enabled
}

// SetEnabled switches lifecycle mirroring on or off.
func (s *Service) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// OnDeviceConnected mirrors a newly connected controller into its table slot.
func (s *Service) OnDeviceConnected(c *device.Controller) {
	if !s.enabled {
		return
	}
	if s.table.Connected(c) {
		s.dataChanged()
	}
}

// OnDeviceReady refreshes the mutable fields of a controller's slot.
func (s *Service) OnDeviceReady(c *device.Controller) {
	if !s.enabled {
		return
	}
	if s.table.Ready(c) {
		s.dataChanged()
	}
}

// OnDeviceDisconnected clears a controller's slot.
func (s *Service) OnDeviceDisconnected(c *device.Controller) {
	if !s.enabled {
		return
	}
	if s.table.Disconnected(c) {
		s.dataChanged()
	}
}

// OnATTConnected registers a new ATT client. Without a free slot the client is
// ignored and will never be notified.
func (s *Service) OnATTConnected(h device.ConnHandle) {
	idx := s.clients.claim(h)
	if idx < 0 {
		s.logger.WithField("conn", h.String()).Info("Client table full, connection will not receive updates")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"conn": h.String(),
		"slot": idx,
	}).Debug("Client connected")
}

// OnATTDisconnected releases the client's slot.
func (s *Service) OnATTDisconnected(h device.ConnHandle) {
	if s.clients.release(h) < 0 {
		return
	}
	s.logger.WithField("conn", h.String()).Debug("Client disconnected")

	// The outstanding "ready to send" for this link will never arrive.
	if s.inFlight == h {
		s.inFlight = device.InvalidHandle
		s.armNext()
	}
}
