package device

import (
	"fmt"
)

// LinkState names why a link-level operation could not proceed.
type LinkState string

const (
	NotConnected LinkState = "not connected"
	BluetoothOff LinkState = "bluetooth is turned off"
	NoFreeSlot   LinkState = "no free slot"
)

// LinkError represents any link-related problem
type LinkError struct {
	State LinkState
	Msg   string
}

// Error implements the error interface
func (e *LinkError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare LinkError values by State
func (e *LinkError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*LinkError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for link states
var (
	ErrNotConnected = &LinkError{State: NotConnected}
	ErrBluetoothOff = &LinkError{State: BluetoothOff}
	ErrNoFreeSlot   = &LinkError{State: NoFreeSlot}
)
