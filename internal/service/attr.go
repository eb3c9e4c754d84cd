package service

import (
	"fmt"

	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Service and characteristic UUIDs of the introspection service.
const (
	ServiceUUID         = "4627C4A4-AC00-46B9-B688-AFC5C1BF7F63"
	BatteryServiceUUID  = "180F"
	DeviceInfoServiceID = "180A"
)

// NotifyEnabled is the client characteristic configuration value that enables notifications.
const NotifyEnabled uint16 = 0x0001

// Attr identifies an attribute of the service database. The zero value is not an attribute.
type Attr uint8

const (
	AttrVersion Attr = iota + 1
	AttrMaxDevices
	AttrBLEEnabled
	AttrScanEnabled
	AttrDevices
	AttrDevicesConfig
	AttrReserved06
	AttrReserved07
	AttrReserved08
	AttrReserved09
	AttrReserved0A
	AttrReserved0B
	AttrReserved0C
	AttrReserved0D
	AttrBatteryLevel
	AttrBatteryLevelConfig
	AttrManufacturerName
	AttrModelNumber
	AttrSerialNumber
	AttrHardwareRevision
	AttrFirmwareRevision
	AttrSoftwareRevision
	AttrSystemID
	AttrRegulatoryCertification
	AttrPnPID

	attrEnd
)

// Attribute describes one entry of the attribute map.
type Attribute struct {
	Attr     Attr
	Name     string
	Service  ble.UUID
	UUID     ble.UUID
	Property ble.Property
	// Config marks a client characteristic configuration descriptor; UUID then
	// names the characteristic it configures.
	Config bool
}

func vendorUUID(n uint8) ble.UUID {
	return ble.MustParse(fmt.Sprintf("4627C4A4-AC%02X-46B9-B688-AFC5C1BF7F63", n))
}

// attributes holds the attribute map in database (handle) order.
var attributes = buildAttributes()

func buildAttributes() *orderedmap.OrderedMap[Attr, Attribute] {
	svc := ble.MustParse(ServiceUUID)
	bat := ble.MustParse(BatteryServiceUUID)
	dis := ble.MustParse(DeviceInfoServiceID)

	om := orderedmap.New[Attr, Attribute]()
	add := func(a Attribute) {
		om.Set(a.Attr, a)
	}

	add(Attribute{Attr: AttrVersion, Name: "version", Service: svc, UUID: vendorUUID(0x01), Property: ble.CharRead})
	add(Attribute{Attr: AttrMaxDevices, Name: "max_devices", Service: svc, UUID: vendorUUID(0x02), Property: ble.CharRead})
	add(Attribute{Attr: AttrBLEEnabled, Name: "ble_enabled", Service: svc, UUID: vendorUUID(0x03), Property: ble.CharRead | ble.CharWrite})
	add(Attribute{Attr: AttrScanEnabled, Name: "scan_enabled", Service: svc, UUID: vendorUUID(0x04), Property: ble.CharRead | ble.CharWrite})
	add(Attribute{Attr: AttrDevices, Name: "devices", Service: svc, UUID: vendorUUID(0x05), Property: ble.CharRead | ble.CharNotify})
	add(Attribute{Attr: AttrDevicesConfig, Name: "devices_config", Service: svc, UUID: vendorUUID(0x05), Config: true})
	for i, a := range []Attr{
		AttrReserved06, AttrReserved07, AttrReserved08, AttrReserved09,
		AttrReserved0A, AttrReserved0B, AttrReserved0C, AttrReserved0D,
	} {
		n := uint8(0x06 + i)
		add(Attribute{Attr: a, Name: fmt.Sprintf("reserved_%02x", n), Service: svc, UUID: vendorUUID(n), Property: ble.CharRead})
	}

	add(Attribute{Attr: AttrBatteryLevel, Name: "battery_level", Service: bat, UUID: ble.UUID16(0x2A19), Property: ble.CharRead | ble.CharNotify})
	add(Attribute{Attr: AttrBatteryLevelConfig, Name: "battery_level_config", Service: bat, UUID: ble.UUID16(0x2A19), Config: true})

	add(Attribute{Attr: AttrManufacturerName, Name: "manufacturer_name", Service: dis, UUID: ble.UUID16(0x2A29), Property: ble.CharRead})
	add(Attribute{Attr: AttrModelNumber, Name: "model_number", Service: dis, UUID: ble.UUID16(0x2A24), Property: ble.CharRead})
	add(Attribute{Attr: AttrSerialNumber, Name: "serial_number", Service: dis, UUID: ble.UUID16(0x2A25), Property: ble.CharRead})
	add(Attribute{Attr: AttrHardwareRevision, Name: "hardware_revision", Service: dis, UUID: ble.UUID16(0x2A27), Property: ble.CharRead})
	add(Attribute{Attr: AttrFirmwareRevision, Name: "firmware_revision", Service: dis, UUID: ble.UUID16(0x2A26), Property: ble.CharRead})
	add(Attribute{Attr: AttrSoftwareRevision, Name: "software_revision", Service: dis, UUID: ble.UUID16(0x2A28), Property: ble.CharRead})
	add(Attribute{Attr: AttrSystemID, Name: "system_id", Service: dis, UUID: ble.UUID16(0x2A23), Property: ble.CharRead})
	add(Attribute{Attr: AttrRegulatoryCertification, Name: "regulatory_certification", Service: dis, UUID: ble.UUID16(0x2A2A), Property: ble.CharRead})
	add(Attribute{Attr: AttrPnPID, Name: "pnp_id", Service: dis, UUID: ble.UUID16(0x2A50), Property: ble.CharRead})

	return om
}

// Attributes returns the attribute map in database order.
func Attributes() []Attribute {
	out := make([]Attribute, 0, attributes.Len())
	for pair := attributes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Lookup returns the attribute description of a.
func Lookup(a Attr) (Attribute, bool) {
	return attributes.Get(a)
}

func (a Attr) String() string {
	if attr, ok := attributes.Get(a); ok {
		return attr.Name
	}
	return fmt.Sprintf("attr(%d)", uint8(a))
}
