package steam

import (
	"fmt"

	"github.com/go-ble/ble"
)

// GATT identifiers of the controller's vendor service.
const (
	ServiceUUID = "100F6C32-1735-4313-B402-38567131E5F3"
	ReportUUID  = "100F6C34-1735-4313-B402-38567131E5F3"
)

var (
	serviceUUID = ble.MustParse(ServiceUUID)
	reportUUID  = ble.MustParse(ReportUUID)
)

// Command is a feature report opcode.
type Command uint8

const (
	CmdSetMappings        Command = 0x80
	CmdClearMappings      Command = 0x81
	CmdGetMappings        Command = 0x82
	CmdGetAttrib          Command = 0x83
	CmdGetAttribLabel     Command = 0x84
	CmdDefaultMappings    Command = 0x85
	CmdFactoryReset       Command = 0x86
	CmdWriteRegister      Command = 0x87
	CmdClearRegister      Command = 0x88
	CmdReadRegister       Command = 0x89
	CmdGetRegisterLabel   Command = 0x8a
	CmdGetRegisterMax     Command = 0x8b
	CmdGetRegisterDefault Command = 0x8c
	CmdSetMode            Command = 0x8d
	CmdDefaultMouse       Command = 0x8e
	CmdForceFeedback      Command = 0x8f
	CmdGetSerial          Command = 0xae
	CmdRequestCommStatus  Command = 0xb4
	CmdHapticRumble       Command = 0xeb
)

// Register ids accepted by CmdWriteRegister.
type Register uint8

const (
	RegLPadMode          Register = 0x07
	RegRPadMode          Register = 0x08
	RegRPadMargin        Register = 0x18
	RegLED               Register = 0x2d
	RegGyroMode          Register = 0x30
	RegLPadClickPressure Register = 0x34
	RegRPadClickPressure Register = 0x35
)

// frameHeader starts every command frame.
const frameHeader = 0xC0

// maxFramePayload keeps a frame within a single ATT write.
const maxFramePayload = 0xFF

// RegisterWrite is one (register, value) pair of a write-register command.
type RegisterWrite struct {
	Register Register
	Value    uint16
}

// Frame builds [0xC0, cmd, len, payload...].
func Frame(cmd Command, payload ...byte) ([]byte, error) {
	if len(payload) > maxFramePayload {
		return nil, fmt.Errorf("steam: %d byte payload too long for command %#02x", len(payload), uint8(cmd))
	}
	b := make([]byte, 0, 3+len(payload))
	b = append(b, frameHeader, byte(cmd), byte(len(payload)))
	return append(b, payload...), nil
}

// WriteRegisters builds a write-register frame; values are little-endian.
func WriteRegisters(writes ...RegisterWrite) ([]byte, error) {
	payload := make([]byte, 0, 3*len(writes))
	for _, w := range writes {
		payload = append(payload, byte(w.Register), byte(w.Value), byte(w.Value>>8))
	}
	return Frame(CmdWriteRegister, payload...)
}

// ClearMappingsFrame returns the frame that drops the controller's
// keyboard/mouse mappings. Its length byte is 1 although no payload follows.
func ClearMappingsFrame() []byte {
	return []byte{frameHeader, byte(CmdClearMappings), 0x01}
}

// DisableLizardFrame returns the frame that turns off motion sensing and
// touchpad mouse emulation and sets the LED to full brightness.
func DisableLizardFrame() []byte {
	b, err := WriteRegisters(
		RegisterWrite{RegGyroMode, 0x0000},
		RegisterWrite{RegLPadMode, 0x0007},
		RegisterWrite{RegRPadMode, 0x0007},
		RegisterWrite{RegRPadMargin, 0x0000},
		RegisterWrite{RegLED, 0x0064},
	)
	if err != nil {
		panic(err)
	}
	return b
}
