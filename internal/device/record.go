package device

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// NameLen is the size of the truncated name field of a compact record.
const NameLen = 16

// RecordSize is the packed wire size of a compact record:
// addr(6) vid(2) pid(2) state(1) incoming(1) type(2) subtype(1) name(16).
const RecordSize = 6 + 2 + 2 + 1 + 1 + 2 + 1 + NameLen

// Field offsets within a packed record.
const (
	offAddress   = 0
	offVendorID  = 6
	offProductID = 8
	offState     = 10
	offIncoming  = 11
	offType      = 12
	offSubtype   = 14
	offName      = 15
)

// Record is the compact, denormalized controller record published to BLE clients.
// The name field is not guaranteed to be NUL terminated.
type Record struct {
	Address   Address
	VendorID  uint16
	ProductID uint16
	State     ConnState
	Incoming  bool
	Type      ControllerType
	Subtype   ControllerSubtype
	Name      [NameLen]byte
}

// IsZero reports whether the record is all-zero, i.e. the slot is free.
func (r Record) IsZero() bool {
	return r == Record{}
}

// setName copies at most NameLen-1 bytes of name; the last byte is left zero.
func (r *Record) setName(name string) {
	r.Name = [NameLen]byte{}
	copy(r.Name[:NameLen-1], name)
}

// NameString returns the name up to the first NUL byte.
func (r *Record) NameString() string {
	if i := bytes.IndexByte(r.Name[:], 0); i >= 0 {
		return string(r.Name[:i])
	}
	return string(r.Name[:])
}

// Append appends the packed little-endian encoding of r to b.
func (r *Record) Append(b []byte) []byte {
	var buf [RecordSize]byte
	copy(buf[offAddress:], r.Address[:])
	binary.LittleEndian.PutUint16(buf[offVendorID:], r.VendorID)
	binary.LittleEndian.PutUint16(buf[offProductID:], r.ProductID)
	buf[offState] = byte(r.State)
	if r.Incoming {
		buf[offIncoming] = 1
	}
	binary.LittleEndian.PutUint16(buf[offType:], uint16(r.Type))
	buf[offSubtype] = byte(r.Subtype)
	copy(buf[offName:], r.Name[:])
	return append(b, buf[:]...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.Append(make([]byte, 0, RecordSize)), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) != RecordSize {
		return fmt.Errorf("compact record: expected %d bytes, got %d", RecordSize, len(b))
	}
	copy(r.Address[:], b[offAddress:offVendorID])
	r.VendorID = binary.LittleEndian.Uint16(b[offVendorID:])
	r.ProductID = binary.LittleEndian.Uint16(b[offProductID:])
	r.State = ConnState(b[offState])
	r.Incoming = b[offIncoming] != 0
	r.Type = ControllerType(binary.LittleEndian.Uint16(b[offType:]))
	r.Subtype = ControllerSubtype(b[offSubtype])
	copy(r.Name[:], b[offName:])
	return nil
}

// MarshalJSON renders the record in a human-oriented form.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address   string `json:"address"`
		VendorID  string `json:"vendor_id"`
		ProductID string `json:"product_id"`
		State     string `json:"state"`
		Incoming  bool   `json:"incoming"`
		Type      string `json:"type"`
		Subtype   uint8  `json:"subtype"`
		Name      string `json:"name"`
	}{
		Address:   r.Address.String(),
		VendorID:  fmt.Sprintf("%04x", r.VendorID),
		ProductID: fmt.Sprintf("%04x", r.ProductID),
		State:     r.State.String(),
		Incoming:  r.Incoming,
		Type:      r.Type.String(),
		Subtype:   uint8(r.Subtype),
		Name:      r.NameString(),
	})
}

// DecodeTable splits a device table blob into its records.
func DecodeTable(b []byte) ([]Record, error) {
	if len(b)%RecordSize != 0 {
		return nil, fmt.Errorf("device table: %d bytes is not a multiple of the %d byte record size", len(b), RecordSize)
	}
	records := make([]Record, len(b)/RecordSize)
	for i := range records {
		if err := records[i].UnmarshalBinary(b[i*RecordSize : (i+1)*RecordSize]); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return records, nil
}
