package goble

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-ble/ble"
	"github.com/srg/padhost/internal/device"
)

// NormalizeError maps known go-ble error strings to the device package sentinels.
// Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "bluetooth is turned off"):
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "device not connected"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	case msg == "disconnected": // darwin client on a dropped peripheral
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	case errors.Is(err, io.ErrClosedPipe): // linux L2CAP link closed
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// attStatus converts a GATT client error into the ATT status reported to a
// bring-up machine.
func attStatus(err error) ble.ATTError {
	if err == nil {
		return ble.ErrSuccess
	}
	var attErr ble.ATTError
	if errors.As(err, &attErr) {
		return attErr
	}
	return ble.ErrUnlikely
}
