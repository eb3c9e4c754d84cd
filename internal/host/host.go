// Package host wires the controller service and the Steam bring-up onto one BLE
// device and one event loop.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/padhost/internal/device"
	goble "github.com/srg/padhost/internal/device/go-ble"
	"github.com/srg/padhost/internal/eventloop"
	"github.com/srg/padhost/internal/groutine"
	"github.com/srg/padhost/internal/service"
	"github.com/srg/padhost/internal/steam"
)

// Steam Controller identity reported for dialed controllers.
const (
	SteamVendorID   = 0x28DE
	SteamProductID  = 0x1106
	SteamDeviceName = "SteamController"
)

// ErrScanDisabled is returned by Connect while the scan toggle is off.
var ErrScanDisabled = errors.New("controller scanning is disabled")

// Options configures a Host.
type Options struct {
	Version         string
	MaxDevices      int
	MaxClients      int
	ServiceEnabled  bool
	BLEEnabled      bool
	ScanEnabled     bool
	AdvertisingName string
	MailboxSize     int
	ReportQueueSize uint32
	ConnectTimeout  time.Duration
}

// Host owns every component of a running controller host. The registry, the
// service, the bring-up manager and the input states are only touched from the
// event loop.
type Host struct {
	opts Options
	dev  ble.Device

	loop       *eventloop.Loop
	registry   *device.SlotRegistry
	svc        *service.Service
	server     *goble.Server
	central    *goble.Central
	advertiser *goble.Advertiser
	bleSwitch  *goble.Switch
	scanSwitch *goble.Switch
	steam      *steam.Manager
	reports    *steam.ReportQueue
	inputs     map[device.ConnHandle]*steam.InputState

	group  *groutine.Group
	logger *logrus.Logger
}

// New builds a host on dev. Nothing runs until Start.
func New(ctx context.Context, dev ble.Device, opts Options, logger *logrus.Logger) (*Host, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.AdvertisingName == "" {
		opts.AdvertisingName = service.DefaultAdvertisingName
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 64
	}

	h := &Host{
		opts:     opts,
		dev:      dev,
		loop:     eventloop.New("ble-events", opts.MailboxSize, logger),
		registry: device.NewSlotRegistry(max(opts.MaxDevices, 1)),
		reports:  steam.NewReportQueue(opts.ReportQueueSize),
		inputs:   make(map[device.ConnHandle]*steam.InputState),
		group:    groutine.NewGroup(ctx),
		logger:   logger,
	}

	advertiser, err := goble.NewAdvertiser(ctx, dev, opts.AdvertisingName, logger)
	if err != nil {
		return nil, fmt.Errorf("advertising: %w", err)
	}
	h.advertiser = advertiser
	h.bleSwitch = goble.NewSwitch("ble", opts.BLEEnabled, advertiser.SetEnabled, logger)
	h.scanSwitch = goble.NewSwitch("scan", opts.ScanEnabled, nil, logger)

	handles := goble.NewHandleAllocator()
	h.server = goble.NewServer(ctx, h.loop, handles, logger)
	h.central = goble.NewCentral(ctx, dev, handles, h.deliver, logger)

	h.svc = service.New(service.Options{
		Version:    opts.Version,
		MaxDevices: opts.MaxDevices,
		MaxClients: opts.MaxClients,
		Disabled:   !opts.ServiceEnabled,
	}, h.registry, h.server, h.bleSwitch, h.scanSwitch, logger)
	h.server.Attach(h.svc)

	h.steam = steam.NewManager(h.central, h, logger)
	return h, nil
}

// Start runs the event loop, installs the GATT database and starts advertising
// if the BLE toggle is on.
func (h *Host) Start(ctx context.Context) error {
	h.loop.Start(ctx)
	if err := h.server.Install(h.dev); err != nil {
		return fmt.Errorf("failed to install GATT service: %w", err)
	}
	if h.bleSwitch.Enabled() {
		h.advertiser.SetEnabled(true)
	}
	h.logger.WithFields(logrus.Fields{
		"name":            h.opts.AdvertisingName,
		"service_enabled": h.opts.ServiceEnabled,
	}).Info("Controller host started")
	return nil
}

// Wait blocks until the loop and every background goroutine have stopped.
// The context passed to New and Start must be cancelled first.
func (h *Host) Wait() {
	h.group.Wait()
	h.advertiser.Wait()
	h.central.Wait()
	h.server.Wait()
	<-h.loop.Done()
}

// Loop returns the event loop the host runs on.
func (h *Host) Loop() *eventloop.Loop {
	return h.loop
}

// BLE returns the BLE enable toggle.
func (h *Host) BLE() *goble.Switch {
	return h.bleSwitch
}

// Scan returns the scan enable toggle.
func (h *Host) Scan() *goble.Switch {
	return h.scanSwitch
}

// Connect dials a Steam Controller, registers it and starts its bring-up. The
// returned Result resolves when bring-up finishes, stalls or is abandoned.
func (h *Host) Connect(ctx context.Context, addr device.Address) (*steam.Result, error) {
	if !h.scanSwitch.Enabled() {
		return nil, ErrScanDisabled
	}

	handle, err := h.central.Dial(ctx, addr, h.opts.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	var (
		result *steam.Result
		addErr error
	)
	err = h.loop.Call(ctx, func() {
		c := &device.Controller{
			Address:   addr,
			Handle:    handle,
			VendorID:  SteamVendorID,
			ProductID: SteamProductID,
			State:     device.StateConnected,
			Type:      device.ControllerTypeSteam,
			Name:      SteamDeviceName,
		}
		if _, addErr = h.registry.Add(c); addErr != nil {
			return
		}
		h.svc.OnDeviceConnected(c)
		c.State = device.StateSetup
		result = h.steam.Start(c)
	})
	if err == nil {
		err = addErr
	}

	// Armed only once the registration is queued, so a link loss is always
	// handled on the loop after it. An unregistered handle makes linkLost a no-op.
	if werr := h.central.Watch(handle, h.linkLost); werr != nil {
		h.logger.WithFields(logrus.Fields{
			"conn":  handle.String(),
			"error": werr,
		}).Warn("Controller link is not watched")
	}
	if err != nil {
		if derr := h.central.Disconnect(handle); derr != nil {
			h.logger.WithField("error", derr).Debug("Disconnect after failed registration")
		}
		return nil, fmt.Errorf("failed to register controller %s: %w", addr, err)
	}
	return result, nil
}

// SetReadyComplete implements steam.Lifecycle. It runs on the loop.
func (h *Host) SetReadyComplete(c *device.Controller) {
	c.State = device.StateReady
	h.svc.OnDeviceReady(c)

	mc, ok := h.steam.Machine(c.Handle)
	if !ok || mc.Report() == nil {
		return
	}
	handle, report := c.Handle, mc.Report()
	h.group.Go("subscribe-reports", func(context.Context) {
		err := h.central.SubscribeReports(handle, report, func(data []byte) {
			h.onReport(handle, data)
		})
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"conn":  handle.String(),
				"error": err,
			}).Error("Failed to subscribe to input reports")
		}
	})
}

// InputState returns a copy of the last decoded input state of the controller on handle.
func (h *Host) InputState(ctx context.Context, handle device.ConnHandle) (steam.InputState, bool, error) {
	var (
		st steam.InputState
		ok bool
	)
	err := h.loop.Call(ctx, func() {
		var p *steam.InputState
		if p, ok = h.inputs[handle]; ok {
			st = *p
		}
	})
	return st, ok, err
}

// DeviceTable returns a copy of the compact device table.
func (h *Host) DeviceTable(ctx context.Context) ([]byte, error) {
	var out []byte
	err := h.loop.Call(ctx, func() {
		out = h.svc.Table().AppendTo(nil)
	})
	return out, err
}

// deliver hands a GATT client event to the bring-up manager on the loop.
func (h *Host) deliver(ev steam.Event) {
	if err := h.loop.Post(h.group.Context(), func() { h.steam.HandleEvent(ev) }); err != nil {
		h.logger.WithFields(logrus.Fields{
			"query": ev.Query.String(),
			"error": err,
		}).Debug("Dropping bring-up event")
	}
}

// linkLost runs on the central's watcher goroutine.
func (h *Host) linkLost(handle device.ConnHandle) {
	err := h.loop.Post(h.group.Context(), func() {
		h.steam.Abandon(handle)
		delete(h.inputs, handle)

		c, ok := h.registry.ByHandle(handle)
		if !ok {
			return
		}
		c.State = device.StateDisconnected
		h.svc.OnDeviceDisconnected(c)
		h.registry.Remove(c)
	})
	if err != nil {
		h.logger.WithField("error", err).Debug("Dropping controller disconnect")
	}
}

// onReport runs on go-ble's notification goroutine.
func (h *Host) onReport(handle device.ConnHandle, data []byte) {
	dropped, err := h.reports.Push(handle, data)
	if err != nil {
		h.logger.WithField("error", err).Warn("Input report dropped")
		return
	}
	if dropped > 0 {
		h.logger.WithField("dropped", dropped).Debug("Input report queue overflowed")
	}
	// With a full mailbox the report waits in the queue for the next drain.
	h.loop.Mailbox().TryPost(h.drainReports)
}

func (h *Host) drainReports() {
	for {
		r, ok := h.reports.Pop()
		if !ok {
			return
		}
		if _, known := h.registry.ByHandle(r.Handle); !known {
			continue
		}
		st, ok := h.inputs[r.Handle]
		if !ok {
			st = &steam.InputState{}
			h.inputs[r.Handle] = st
		}
		if err := steam.ParseInputReport(st, r.Data, h.logger); err != nil {
			h.logger.WithFields(logrus.Fields{
				"conn":  r.Handle.String(),
				"error": err,
			}).Warn("Invalid input report")
		}
	}
}
