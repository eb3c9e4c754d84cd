package steam

import (
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/srg/padhost/internal/device"
)

// State is the bring-up protocol state. States only move forward.
type State uint8

const (
	StateDiscoverService State = iota
	StateDiscoverCharacteristic
	StateClearMappings
	StateDisableFactoryMode
	StateDone
)

func (s State) String() string {
	switch s {
	case StateDiscoverService:
		return "DiscoverService"
	case StateDiscoverCharacteristic:
		return "DiscoverCharacteristic"
	case StateClearMappings:
		return "ClearMappings"
	case StateDisableFactoryMode:
		return "DisableFactoryMode"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Query tags every request issued by a machine. Events carry it back so results
// for a connection that was torn down (and possibly reused) are discarded.
type Query struct {
	Handle  device.ConnHandle
	Session uint64
}

func (q Query) String() string {
	return fmt.Sprintf("%s#%d", q.Handle, q.Session)
}

// EventKind distinguishes GATT client events.
type EventKind uint8

const (
	EventServiceResult EventKind = iota + 1
	EventCharacteristicResult
	EventQueryComplete
)

func (k EventKind) String() string {
	switch k {
	case EventServiceResult:
		return "service_result"
	case EventCharacteristicResult:
		return "characteristic_result"
	case EventQueryComplete:
		return "query_complete"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a GATT client result delivered on the BLE event context.
type Event struct {
	Kind           EventKind
	Query          Query
	Service        *ble.Service
	Characteristic *ble.Characteristic
	// Status is meaningful for EventQueryComplete only.
	Status ble.ATTError
}

// ServiceResult reports a discovered service.
func ServiceResult(q Query, s *ble.Service) Event {
	return Event{Kind: EventServiceResult, Query: q, Service: s}
}

// CharacteristicResult reports a discovered characteristic.
func CharacteristicResult(q Query, c *ble.Characteristic) Event {
	return Event{Kind: EventCharacteristicResult, Query: q, Characteristic: c}
}

// QueryComplete ends a discovery or write with an ATT status.
func QueryComplete(q Query, status ble.ATTError) Event {
	return Event{Kind: EventQueryComplete, Query: q, Status: status}
}

// ErrAbandoned resolves a bring-up whose connection went away before it finished.
var ErrAbandoned = errors.New("steam: bring-up abandoned")

// StallError resolves a bring-up that stopped on a protocol failure. The
// machine stays in State; it neither retries nor disconnects.
type StallError struct {
	Handle device.ConnHandle
	State  State
	Status ble.ATTError
	Err    error
}

func (e *StallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("steam: bring-up of %s stalled in %s: %v", e.Handle, e.State, e.Err)
	}
	return fmt.Sprintf("steam: bring-up of %s stalled in %s: %v", e.Handle, e.State, e.Status)
}

func (e *StallError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Status
}
