package goble

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"

	"github.com/srg/padhost/internal/device"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"powered off", errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), device.ErrBluetoothOff},
		{"turned off", errors.New("Bluetooth is turned off"), device.ErrBluetoothOff},
		{"not connected", errors.New("device not connected"), device.ErrNotConnected},
		{"darwin disconnected", errors.New("disconnected"), device.ErrNotConnected},
		{"linux closed link", fmt.Errorf("input channel closed: %w", io.ErrClosedPipe), device.ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), tt.err.Error())
		})
	}

	for _, msg := range []string{"timeout", "disconnecting an invalid handle 0040", "peer disconnected during pairing"} {
		other := errors.New(msg)
		assert.Same(t, other, NormalizeError(other), msg)
	}
}

func TestAttStatus(t *testing.T) {
	assert.Equal(t, ble.ErrSuccess, attStatus(nil))
	assert.Equal(t, ble.ErrReadNotPerm, attStatus(fmt.Errorf("read: %w", ble.ErrReadNotPerm)))
	assert.Equal(t, ble.ErrUnlikely, attStatus(errors.New("io")))
}

func TestPropertyString(t *testing.T) {
	assert.Equal(t, "none", PropertyString(0))
	assert.Equal(t, "read", PropertyString(ble.CharRead))
	assert.Equal(t, "read|write-without-response|write|notify",
		PropertyString(ble.CharRead|ble.CharWrite|ble.CharWriteNR|ble.CharNotify))
}
