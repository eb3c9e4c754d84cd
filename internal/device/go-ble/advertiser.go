package goble

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux/hci/cmd"
	"github.com/sirupsen/logrus"

	"github.com/srg/padhost/internal/groutine"
	"github.com/srg/padhost/internal/service"
)

// RawAdvertiser is a device that can put a prebuilt advertising payload on air.
// AdvertiseRaw blocks until ctx is done or the device fails.
type RawAdvertiser interface {
	AdvertiseRaw(ctx context.Context, ad, sr []byte) error
}

// AdvertisingParameters returns connectable undirected advertising on all three
// channels at the fixed service interval.
func AdvertisingParameters() cmd.LESetAdvertisingParameters {
	return cmd.LESetAdvertisingParameters{
		AdvertisingIntervalMin: service.AdvIntervalMin,
		AdvertisingIntervalMax: service.AdvIntervalMax,
		AdvertisingType:        0x00, // ADV_IND
		AdvertisingChannelMap:  0x07,
	}
}

// Advertiser runs connectable advertising of the introspection service and can
// be switched on and off at runtime.
type Advertiser struct {
	dev     ble.Device
	name    string
	payload []byte
	group   *groutine.Group
	logger  *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	run    uint64
}

// NewAdvertiser validates name against the advertising payload limit.
func NewAdvertiser(ctx context.Context, dev ble.Device, name string, logger *logrus.Logger) (*Advertiser, error) {
	if logger == nil {
		logger = logrus.New()
	}
	payload, err := service.AdvertisingData(name)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"name":    name,
		"payload": hex.EncodeToString(payload),
	}).Debug("Advertising payload")

	return &Advertiser{
		dev:     dev,
		name:    name,
		payload: payload,
		group:   groutine.NewGroup(ctx),
		logger:  logger,
	}, nil
}

// SetEnabled starts or stops advertising. It has the signature of a Switch callback.
func (a *Advertiser) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !enabled {
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}
		return
	}
	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(a.group.Context())
	a.cancel = cancel
	a.run++
	run := a.run
	a.group.Go("ble-advertise", func(context.Context) {
		defer a.finished(run)
		a.logger.WithField("name", a.name).Info("Advertising started")
		err := a.advertise(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.WithField("error", NormalizeError(err)).Error("Advertising failed")
		}
		a.logger.Info("Advertising stopped")
	})
}

// advertise sends the exact service payload when the device accepts raw data and
// falls back to the stack's own name and services packet otherwise.
func (a *Advertiser) advertise(ctx context.Context) error {
	if raw, ok := a.dev.(RawAdvertiser); ok {
		return raw.AdvertiseRaw(ctx, a.payload, nil)
	}
	return a.dev.AdvertiseNameAndServices(ctx, a.name, ble.MustParse(service.ServiceUUID))
}

// finished clears the running state unless a newer run replaced it.
func (a *Advertiser) finished(run uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.run == run && a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Running reports whether advertising is active.
func (a *Advertiser) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Wait blocks until the advertising goroutine has returned.
func (a *Advertiser) Wait() {
	a.group.Wait()
}
