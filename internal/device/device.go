package device

import (
	"fmt"
	"net"
	"strings"
)

// NotFoundError represents an error when a controller or slot is not known to the registry
type NotFoundError struct {
	Resource string // "controller", "slot"
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ConnHandle is the BLE stack connection handle of a link.
type ConnHandle uint16

// InvalidHandle marks a connection slot that holds no link.
const InvalidHandle ConnHandle = 0xFFFF

func (h ConnHandle) String() string {
	if h == InvalidHandle {
		return "invalid"
	}
	return fmt.Sprintf("%#04x", uint16(h))
}

// Address is a Bluetooth device address in display order (most significant byte first).
type Address [6]byte

// ParseAddress parses "AA:BB:CC:DD:EE:FF" (or '-' separated) into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return a, fmt.Errorf("invalid device address %q: %w", s, err)
	}
	if len(hw) != len(a) {
		return a, fmt.Errorf("invalid device address %q: expected 6 bytes, got %d", s, len(hw))
	}
	copy(a[:], hw)
	return a, nil
}

func (a Address) String() string {
	return strings.ToUpper(net.HardwareAddr(a[:]).String())
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ConnState is the link-level state of a controller as tracked by the registry.
type ConnState uint8

const (
	StateDisconnected ConnState = iota
	StateDiscovered
	StateConnecting
	StateConnected
	StateSetup
	StateReady
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateDiscovered:
		return "discovered"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSetup:
		return "setup"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// ControllerType identifies a controller family.
type ControllerType uint16

const (
	ControllerTypeUnknown        ControllerType = 0
	ControllerTypeUnknownSteam   ControllerType = 1
	ControllerTypeSteam          ControllerType = 2
	ControllerTypeSteamV2        ControllerType = 3
	ControllerTypeXBox360        ControllerType = 31
	ControllerTypeXBoxOne        ControllerType = 32
	ControllerTypePS3            ControllerType = 33
	ControllerTypePS4            ControllerType = 34
	ControllerTypeSwitchPro      ControllerType = 38
	ControllerTypeGenericGamepad ControllerType = 0x8000
)

func (t ControllerType) String() string {
	switch t {
	case ControllerTypeUnknown:
		return "unknown"
	case ControllerTypeUnknownSteam:
		return "steam (unknown)"
	case ControllerTypeSteam:
		return "steam"
	case ControllerTypeSteamV2:
		return "steam v2"
	case ControllerTypeXBox360:
		return "xbox 360"
	case ControllerTypeXBoxOne:
		return "xbox one"
	case ControllerTypePS3:
		return "ps3"
	case ControllerTypePS4:
		return "ps4"
	case ControllerTypeSwitchPro:
		return "switch pro"
	case ControllerTypeGenericGamepad:
		return "generic"
	default:
		return fmt.Sprintf("type(%d)", uint16(t))
	}
}

// IsSteam reports whether the controller needs the Steam bring-up protocol.
func (t ControllerType) IsSteam() bool {
	return t == ControllerTypeSteam || t == ControllerTypeSteamV2 || t == ControllerTypeUnknownSteam
}

// ControllerSubtype refines a controller type (e.g. accessory or orientation variants).
type ControllerSubtype uint8

const (
	SubtypeNone ControllerSubtype = iota
	SubtypeWiimoteHoriz
	SubtypeWiimoteVert
	SubtypeWiimoteAccel
	SubtypeWiimoteNunchuk
	SubtypeWiimoteNunchukRev
	SubtypeWiiClassic
	SubtypeWiiBalanceBoard
	SubtypeSwitchJoyConLeft
	SubtypeSwitchJoyConRight
)

// Controller is the authoritative controller record owned by the device registry.
// The device table only mirrors a subset of it.
type Controller struct {
	Address   Address
	Handle    ConnHandle
	VendorID  uint16
	ProductID uint16
	State     ConnState
	Incoming  bool
	Type      ControllerType
	Subtype   ControllerSubtype
	Name      string
}

func (c *Controller) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%s, %04x:%04x)", c.Address, c.Name, c.VendorID, c.ProductID)
}

// Registry resolves the stable slot index the canonical device registry assigned to a controller.
// The index stays the same for the lifetime of a connection.
type Registry interface {
	SlotIndex(c *Controller) (int, bool)
}
