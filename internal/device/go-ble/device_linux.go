//go:build linux

package goble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// linuxDevice adds raw advertising on top of the HCI device.
type linuxDevice struct {
	*linux.Device
}

func newPlatformDevice() (ble.Device, error) {
	dev, err := linux.NewDevice(ble.OptAdvParams(AdvertisingParameters()))
	if err != nil {
		return nil, err
	}
	return &linuxDevice{Device: dev}, nil
}

func (d *linuxDevice) AdvertiseRaw(ctx context.Context, ad, sr []byte) error {
	if err := d.HCI.SetAdvertisement(ad, sr); err != nil {
		return err
	}
	if err := d.HCI.Advertise(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-d.HCI.Done():
		return d.HCI.Error()
	}
	_ = d.HCI.StopAdvertising()
	return ctx.Err()
}
