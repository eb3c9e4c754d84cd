package service

import (
	"fmt"

	"github.com/go-ble/ble"
)

// Advertising parameters, in units of 0.625 ms.
const (
	AdvIntervalMin uint16 = 0x0030
	AdvIntervalMax uint16 = 0x0030
)

const (
	DefaultAdvertisingName = "BP32"
	// MaxAdvertisingName keeps flags, name and the 128-bit service id within the 31 byte payload.
	MaxAdvertisingName = 8
)

// AD structure types.
const (
	adFlags        = 0x01
	adCompleteName = 0x09
	adComplete128  = 0x07

	// LE General Discoverable, BR/EDR not supported.
	adFlagsValue = 0x06
)

// AdvertisingData assembles the advertising payload: flags, the complete local
// name and the 128-bit service identifier in little-endian order.
func AdvertisingData(name string) ([]byte, error) {
	if name == "" || len(name) > MaxAdvertisingName {
		return nil, fmt.Errorf("advertising name %q must be 1..%d bytes", name, MaxAdvertisingName)
	}

	uuid := ble.MustParse(ServiceUUID)
	b := make([]byte, 0, 3+2+len(name)+2+len(uuid))
	b = append(b, 0x02, adFlags, adFlagsValue)
	b = append(b, byte(len(name)+1), adCompleteName)
	b = append(b, name...)
	b = append(b, byte(len(uuid)+1), adComplete128)
	b = append(b, uuid...)
	return b, nil
}
