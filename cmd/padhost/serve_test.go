package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srg/padhost/internal/device"
	goble "github.com/srg/padhost/internal/device/go-ble"
	"github.com/srg/padhost/internal/host"
	"github.com/srg/padhost/internal/testutils/mocks"
)

func withDevice(t *testing.T, dev ble.Device, err error) {
	t.Helper()
	orig := goble.DeviceFactory
	goble.DeviceFactory = func() (ble.Device, error) { return dev, err }
	t.Cleanup(func() { goble.DeviceFactory = orig })
}

func TestServe_RunsUntilCancelled(t *testing.T) {
	installed := make(chan struct{}, 3)
	dev := &mocks.MockDevice{}
	dev.On("AddService", mock.Anything).Run(func(mock.Arguments) { installed <- struct{}{} }).Return(nil)
	dev.On("AdvertiseNameAndServices", mock.Anything, "BP32", mock.Anything).
		Return(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}).Maybe()
	dev.On("Stop").Return(nil)
	withDevice(t, dev, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := executeCommand(t, ctx, "serve", "--log-level", "error")
		done <- err
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-installed:
		case <-time.After(2 * time.Second):
			t.Fatal("GATT service was not installed")
		}
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
	dev.AssertCalled(t, "Stop")
}

func TestServe_Errors(t *testing.T) {
	withDevice(t, nil, errors.New("no adapter"))

	_, err := executeCommand(t, context.Background(), "serve", "--controller", "not-an-address")
	assert.ErrorContains(t, err, "controllers")

	_, err = executeCommand(t, context.Background(), "serve", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = executeCommand(t, context.Background(), "serve", "--config", "/nonexistent/padhost.yaml")
	assert.ErrorContains(t, err, "read config")

	_, err = executeCommand(t, context.Background(), "serve")
	assert.ErrorContains(t, err, "no adapter")
}

func TestFormatUserError(t *testing.T) {
	assert.Empty(t, FormatUserError(nil))
	assert.Contains(t, FormatUserError(device.ErrBluetoothOff), "Turn it on")
	assert.Contains(t, FormatUserError(&device.LinkError{State: device.NoFreeSlot, Msg: "4 slots"}), "no free controller slot")
	assert.Contains(t, FormatUserError(host.ErrScanDisabled), "scan_enabled")
	assert.Equal(t, "boom", FormatUserError(errors.New("boom")))
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.0", formatVersion("1.2.0"))
	assert.Equal(t, "dev", formatVersion("dev"))
}
