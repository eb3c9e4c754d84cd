package service

import (
	"encoding/binary"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/device"
)

// readBlob copies value[offset:] into buf. An offset at or past the end yields zero bytes.
func readBlob(value []byte, offset int, buf []byte) int {
	if offset < 0 || offset >= len(value) {
		return 0
	}
	return copy(buf, value[offset:])
}

func boolByte(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

// Read serves a (blob) read of attr into buf starting at offset and returns the
// number of bytes written.
func (s *Service) Read(h device.ConnHandle, attr Attr, offset int, buf []byte) int {
	switch attr {
	case AttrVersion:
		return readBlob([]byte(s.version), offset, buf)
	case AttrMaxDevices:
		return readBlob([]byte{byte(s.table.Cap())}, offset, buf)
	case AttrBLEEnabled:
		return readBlob(boolByte(s.bleEnabled != nil && s.bleEnabled.Enabled()), offset, buf)
	case AttrScanEnabled:
		return readBlob(boolByte(s.scanning != nil && s.scanning.Enabled()), offset, buf)
	case AttrDevices:
		s.scratch = s.table.AppendTo(s.scratch[:0])
		return readBlob(s.scratch, offset, buf)
	case AttrDevicesConfig:
		return 0
	case AttrReserved06, AttrReserved07, AttrReserved08, AttrReserved09,
		AttrReserved0A, AttrReserved0B, AttrReserved0C, AttrReserved0D:
		return 0
	case AttrBatteryLevel, AttrBatteryLevelConfig:
		return 0
	case AttrManufacturerName, AttrModelNumber, AttrSerialNumber,
		AttrHardwareRevision, AttrFirmwareRevision, AttrSoftwareRevision,
		AttrSystemID, AttrRegulatoryCertification, AttrPnPID:
		return 0
	default:
		s.logger.WithFields(logrus.Fields{
			"conn": h.String(),
			"attr": attr.String(),
		}).Debug("Read of unknown attribute")
		return 0
	}
}

// Write applies a client write. Malformed toggle writes are refused with an ATT
// error and change nothing; writes to attributes without write semantics are
// accepted and ignored.
func (s *Service) Write(h device.ConnHandle, attr Attr, offset int, data []byte) error {
	switch attr {
	case AttrDevicesConfig:
		s.writeClientConfig(h, data)
		return nil
	case AttrBLEEnabled:
		return s.writeToggle(h, attr, s.bleEnabled, offset, data)
	case AttrScanEnabled:
		return s.writeToggle(h, attr, s.scanning, offset, data)
	case AttrVersion, AttrMaxDevices, AttrDevices,
		AttrReserved06, AttrReserved07, AttrReserved08, AttrReserved09,
		AttrReserved0A, AttrReserved0B, AttrReserved0C, AttrReserved0D,
		AttrBatteryLevel, AttrBatteryLevelConfig,
		AttrManufacturerName, AttrModelNumber, AttrSerialNumber,
		AttrHardwareRevision, AttrFirmwareRevision, AttrSoftwareRevision,
		AttrSystemID, AttrRegulatoryCertification, AttrPnPID:
		fallthrough
	default:
		s.logger.WithFields(logrus.Fields{
			"conn": h.String(),
			"attr": attr.String(),
			"len":  len(data),
		}).Info("Ignoring write")
		return nil
	}
}

func (s *Service) writeClientConfig(h device.ConnHandle, data []byte) {
	c := s.clients.find(h)
	if c == nil {
		s.logger.WithField("conn", h.String()).Debug("Notification config from unregistered client dropped")
		return
	}
	c.notify = len(data) >= 2 && binary.LittleEndian.Uint16(data) == NotifyEnabled
	c.valueAttr = AttrDevices
	if !c.notify {
		c.pending = false
	}
	s.logger.WithFields(logrus.Fields{
		"conn":   h.String(),
		"notify": c.notify,
	}).Info("Client notification config updated")
}

func (s *Service) writeToggle(h device.ConnHandle, attr Attr, t Toggle, offset int, data []byte) error {
	if offset != 0 {
		s.logger.WithFields(logrus.Fields{"conn": h.String(), "attr": attr.String(), "offset": offset}).Info("Toggle write refused")
		return ble.ErrInvalidOffset
	}
	if len(data) != 1 {
		s.logger.WithFields(logrus.Fields{"conn": h.String(), "attr": attr.String(), "len": len(data)}).Info("Toggle write refused")
		return ble.ErrInvalAttrValueLen
	}
	enabled := data[0] != 0
	if t != nil {
		t.SetEnabled(enabled)
	}
	s.logger.WithFields(logrus.Fields{
		"conn":    h.String(),
		"attr":    attr.String(),
		"enabled": enabled,
	}).Info("Toggle updated")
	return nil
}
