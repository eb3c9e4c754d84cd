package goble

import (
	"context"
	"fmt"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/groutine"
	"github.com/srg/padhost/internal/steam"
)

// DefaultConnectTimeout bounds a controller dial.
const DefaultConnectTimeout = 10 * time.Second

// Central dials controllers and runs GATT client requests for their bring-up.
// Each request runs on its own goroutine; its results are handed to sink, which
// is expected to forward them to the event loop.
type Central struct {
	dev     ble.Device
	handles *HandleAllocator
	clients *hashmap.Map[device.ConnHandle, *link]
	sink    func(steam.Event)
	group   *groutine.Group
	logger  *logrus.Logger
}

type link struct {
	client ble.Client
	key    string
}

// NewCentral creates a central on dev. sink receives every GATT client event.
func NewCentral(ctx context.Context, dev ble.Device, handles *HandleAllocator, sink func(steam.Event), logger *logrus.Logger) *Central {
	if logger == nil {
		logger = logrus.New()
	}
	if handles == nil {
		handles = NewHandleAllocator()
	}
	return &Central{
		dev:     dev,
		handles: handles,
		clients: hashmap.New[device.ConnHandle, *link](),
		sink:    sink,
		group:   groutine.NewGroup(ctx),
		logger:  logger,
	}
}

// Dial connects to the controller at addr and returns its link handle. The link
// is not watched for loss until Watch is called.
func (c *Central) Dial(ctx context.Context, addr device.Address, timeout time.Duration) (device.ConnHandle, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.WithFields(logrus.Fields{
		"address": addr.String(),
		"timeout": timeout,
	}).Info("Connecting to controller...")

	client, err := c.dev.Dial(dialCtx, ble.NewAddr(addr.String()))
	if err != nil {
		return device.InvalidHandle, fmt.Errorf("failed to connect to controller %s: %w", addr, NormalizeError(err))
	}

	key := addr.String()
	h, _ := c.handles.Acquire(key)
	c.clients.Set(h, &link{client: client, key: key})

	c.logger.WithFields(logrus.Fields{
		"address": key,
		"conn":    h.String(),
	}).Info("Controller connected")
	return h, nil
}

// Watch runs onDisconnect on a background goroutine once the link h drops.
// A link that dropped before Watch is reported right away.
func (c *Central) Watch(h device.ConnHandle, onDisconnect func(device.ConnHandle)) error {
	l, ok := c.clients.Get(h)
	if !ok {
		return fmt.Errorf("controller %s: %w", h, device.ErrNotConnected)
	}

	c.group.Go("controller-disconnect-watch", func(ctx context.Context) {
		select {
		case <-l.client.Disconnected():
		case <-ctx.Done():
			if err := l.client.CancelConnection(); err != nil {
				c.logger.WithField("error", err).Debug("Cancel connection on shutdown failed")
			}
			return
		}
		c.clients.Del(h)
		c.handles.Release(l.key)
		c.logger.WithField("conn", h.String()).Info("Controller disconnected")
		if onDisconnect != nil {
			onDisconnect(h)
		}
	})
	return nil
}

// Disconnect drops the link h.
func (c *Central) Disconnect(h device.ConnHandle) error {
	client, err := c.client(h)
	if err != nil {
		return err
	}
	return NormalizeError(client.CancelConnection())
}

// Wait blocks until background goroutines have returned.
func (c *Central) Wait() {
	c.group.Wait()
}

func (c *Central) client(h device.ConnHandle) (ble.Client, error) {
	l, ok := c.clients.Get(h)
	if !ok {
		return nil, fmt.Errorf("controller %s: %w", h, device.ErrNotConnected)
	}
	return l.client, nil
}

// DiscoverPrimaryService implements steam.GATTClient.
func (c *Central) DiscoverPrimaryService(q steam.Query, uuid ble.UUID) error {
	client, err := c.client(q.Handle)
	if err != nil {
		return err
	}
	c.group.Go("gatt-discover-service", func(context.Context) {
		services, err := client.DiscoverServices([]ble.UUID{uuid})
		for _, s := range services {
			c.sink(steam.ServiceResult(q, s))
		}
		c.sink(steam.QueryComplete(q, attStatus(err)))
	})
	return nil
}

// DiscoverCharacteristics implements steam.GATTClient.
func (c *Central) DiscoverCharacteristics(q steam.Query, svc *ble.Service, uuid ble.UUID) error {
	client, err := c.client(q.Handle)
	if err != nil {
		return err
	}
	c.group.Go("gatt-discover-characteristics", func(context.Context) {
		chars, err := client.DiscoverCharacteristics([]ble.UUID{uuid}, svc)
		for _, ch := range chars {
			c.sink(steam.CharacteristicResult(q, ch))
		}
		c.sink(steam.QueryComplete(q, attStatus(err)))
	})
	return nil
}

// WriteCharacteristic implements steam.GATTClient.
func (c *Central) WriteCharacteristic(q steam.Query, ch *ble.Characteristic, value []byte) error {
	client, err := c.client(q.Handle)
	if err != nil {
		return err
	}
	frame := append([]byte(nil), value...)
	c.group.Go("gatt-write", func(context.Context) {
		err := client.WriteCharacteristic(ch, frame, false)
		c.sink(steam.QueryComplete(q, attStatus(err)))
	})
	return nil
}

// SubscribeReports enables notifications on ch and passes every input report to fn.
// fn runs on go-ble's notification goroutine.
func (c *Central) SubscribeReports(h device.ConnHandle, ch *ble.Characteristic, fn func([]byte)) error {
	client, err := c.client(h)
	if err != nil {
		return err
	}
	if ch.CCCD == nil {
		if _, err := client.DiscoverDescriptors(nil, ch); err != nil {
			return fmt.Errorf("discover descriptors: %w", NormalizeError(err))
		}
	}
	if err := client.Subscribe(ch, false, func(data []byte) { fn(data) }); err != nil {
		return fmt.Errorf("subscribe to input reports: %w", NormalizeError(err))
	}
	return nil
}
