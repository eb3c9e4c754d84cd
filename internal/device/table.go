package device

import (
	"github.com/sirupsen/logrus"
)

// Table is the fixed-capacity compact device table, indexed by registry slot.
//
// Table has no internal locking. All mutations and reads must happen on the
// single BLE event context.
type Table struct {
	records  []Record
	registry Registry
	logger   *logrus.Logger
}

// NewTable creates a zeroed table with capacity slots.
func NewTable(capacity int, registry Registry, logger *logrus.Logger) *Table {
	if capacity <= 0 {
		panic("device: table capacity must be > 0")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Table{
		records:  make([]Record, capacity),
		registry: registry,
		logger:   logger,
	}
}

// Cap returns the number of slots.
func (t *Table) Cap() int {
	return len(t.records)
}

// Size returns the packed size of the whole table in bytes.
func (t *Table) Size() int {
	return len(t.records) * RecordSize
}

// Record returns a copy of the record at slot.
func (t *Table) Record(slot int) Record {
	return t.records[slot]
}

// Bytes returns the packed table, slot order, no padding.
func (t *Table) Bytes() []byte {
	return t.AppendTo(make([]byte, 0, t.Size()))
}

// AppendTo appends the packed table to b.
func (t *Table) AppendTo(b []byte) []byte {
	for i := range t.records {
		b = t.records[i].Append(b)
	}
	return b
}

func (t *Table) slot(c *Controller) (int, bool) {
	if c == nil || t.registry == nil {
		return 0, false
	}
	idx, ok := t.registry.SlotIndex(c)
	if !ok || idx < 0 || idx >= len(t.records) {
		t.logger.WithField("controller", c.String()).Debug("Controller has no device table slot")
		return 0, false
	}
	return idx, true
}

// Connected populates the controller's slot from the authoritative record.
// Returns false when the controller has no slot.
func (t *Table) Connected(c *Controller) bool {
	idx, ok := t.slot(c)
	if !ok {
		return false
	}
	r := &t.records[idx]
	r.Address = c.Address
	r.VendorID = c.VendorID
	r.ProductID = c.ProductID
	r.State = c.State
	r.Incoming = c.Incoming
	r.Type = c.Type
	r.Subtype = c.Subtype
	r.setName(c.Name)

	t.logger.WithFields(logrus.Fields{
		"slot":    idx,
		"address": c.Address.String(),
	}).Debug("Device table slot populated")
	return true
}

// Ready refreshes the fields that may change after the initial handshake.
// Identity fields (address, vendor and product id) are left untouched.
func (t *Table) Ready(c *Controller) bool {
	idx, ok := t.slot(c)
	if !ok {
		return false
	}
	r := &t.records[idx]
	r.Subtype = c.Subtype
	r.State = c.State
	r.setName(c.Name)

	t.logger.WithFields(logrus.Fields{
		"slot":  idx,
		"state": c.State.String(),
	}).Debug("Device table slot refreshed")
	return true
}

// Disconnected zeroes the controller's slot.
func (t *Table) Disconnected(c *Controller) bool {
	idx, ok := t.slot(c)
	if !ok {
		return false
	}
	t.records[idx] = Record{}
	t.logger.WithField("slot", idx).Debug("Device table slot cleared")
	return true
}
