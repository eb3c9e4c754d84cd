package main

import (
	"errors"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/host"
)

// FormatUserError turns well-known errors into a hint the user can act on.
func FormatUserError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, device.ErrBluetoothOff):
		return "Bluetooth is turned off. Turn it on and try again."
	case errors.Is(err, device.ErrNoFreeSlot):
		return "no free controller slot: " + err.Error()
	case errors.Is(err, host.ErrScanDisabled):
		return "controller scanning is disabled (scan_enabled: false)"
	default:
		return err.Error()
	}
}
