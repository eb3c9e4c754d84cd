package device_test

import (
	"math/rand"
	"testing"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steamController(t *testing.T, addr string) *device.Controller {
	a, err := device.ParseAddress(addr)
	require.NoError(t, err)
	return &device.Controller{
		Address:   a,
		Handle:    0x40,
		VendorID:  0x28DE,
		ProductID: 0x1142,
		State:     device.StateConnected,
		Incoming:  true,
		Type:      device.ControllerTypeSteam,
		Subtype:   device.SubtypeNone,
		Name:      "SteamController",
	}
}

func newTable(t *testing.T, capacity int) (*device.Table, *device.SlotRegistry) {
	helper := testutils.NewTestHelper(t)
	reg := device.NewSlotRegistry(capacity)
	return device.NewTable(capacity, reg, helper.Logger), reg
}

func TestTable_ConnectedLayout(t *testing.T) {
	table, reg := newTable(t, 4)
	c := steamController(t, "11:22:33:44:55:66")

	slot, err := reg.Add(c)
	require.NoError(t, err)
	require.Equal(t, 0, slot)

	assert.True(t, table.Connected(c))

	blob := table.Bytes()
	require.Len(t, blob, 4*device.RecordSize)

	rec := blob[:device.RecordSize]
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, rec[0:6], "address")
	assert.Equal(t, []byte{0xDE, 0x28}, rec[6:8], "vendor id is little-endian")
	assert.Equal(t, []byte{0x42, 0x11}, rec[8:10], "product id is little-endian")
	assert.Equal(t, byte(device.StateConnected), rec[10], "state")
	assert.Equal(t, byte(1), rec[11], "incoming")
	assert.Equal(t, []byte{0x02, 0x00}, rec[12:14], "controller type")
	assert.Equal(t, byte(device.SubtypeNone), rec[14], "subtype")
	assert.Equal(t, []byte("SteamController"), rec[15:30], "first 15 name bytes")

	for i := device.RecordSize; i < len(blob); i++ {
		require.Zerof(t, blob[i], "untouched slot byte %d must be zero", i)
	}
}

func TestTable_ReadyKeepsIdentity(t *testing.T) {
	table, reg := newTable(t, 2)
	c := steamController(t, "AA:BB:CC:DD:EE:FF")
	_, err := reg.Add(c)
	require.NoError(t, err)
	require.True(t, table.Connected(c))

	updated := *c
	updated.VendorID = 0x1234
	updated.ProductID = 0x5678
	updated.State = device.StateReady
	updated.Subtype = device.SubtypeWiimoteHoriz
	updated.Name = "Pad"

	require.True(t, table.Ready(&updated))

	rec := table.Record(0)
	assert.Equal(t, uint16(0x28DE), rec.VendorID, "vendor id is not rewritten")
	assert.Equal(t, uint16(0x1142), rec.ProductID, "product id is not rewritten")
	assert.Equal(t, c.Address, rec.Address)
	assert.Equal(t, device.StateReady, rec.State)
	assert.Equal(t, device.SubtypeWiimoteHoriz, rec.Subtype)
	assert.Equal(t, "Pad", rec.NameString(), "shorter name clears the previous one")
}

func TestTable_UnknownDeviceIsNoop(t *testing.T) {
	table, _ := newTable(t, 2)
	c := steamController(t, "AA:BB:CC:DD:EE:FF")

	assert.False(t, table.Connected(c))
	assert.False(t, table.Ready(c))
	assert.False(t, table.Disconnected(c))
	assert.False(t, table.Connected(nil))
	assert.Equal(t, make([]byte, table.Size()), table.Bytes())
}

func TestTable_DisconnectZeroesSlot(t *testing.T) {
	table, reg := newTable(t, 2)
	c := steamController(t, "AA:BB:CC:DD:EE:FF")
	_, err := reg.Add(c)
	require.NoError(t, err)

	require.True(t, table.Connected(c))
	rec := table.Record(0)
	require.False(t, rec.IsZero())

	require.True(t, table.Disconnected(c))
	assert.True(t, table.Record(0).IsZero())
}

// Random lifecycle sequences never touch slots nobody occupies, and a disconnect
// always leaves its slot zero.
func TestTable_RandomLifecycleSequences(t *testing.T) {
	const capacity = 4
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		table, reg := newTable(t, capacity)
		controllers := []*device.Controller{
			steamController(t, "00:00:00:00:00:01"),
			steamController(t, "00:00:00:00:00:02"),
		}
		for _, c := range controllers {
			_, err := reg.Add(c)
			require.NoError(t, err)
		}

		for step := 0; step < 40; step++ {
			c := controllers[rng.Intn(len(controllers))]
			slot, _ := reg.SlotIndex(c)
			switch rng.Intn(3) {
			case 0:
				table.Connected(c)
			case 1:
				table.Ready(c)
			case 2:
				table.Disconnected(c)
				rec := table.Record(slot)
				require.True(t, rec.IsZero(), "disconnect must zero slot %d", slot)
			}

			for idx := len(controllers); idx < capacity; idx++ {
				rec := table.Record(idx)
				require.True(t, rec.IsZero(), "untouched slot %d must stay zero", idx)
			}
		}
	}
}

func TestDecodeTable(t *testing.T) {
	table, reg := newTable(t, 3)
	c := steamController(t, "AA:BB:CC:DD:EE:FF")
	_, err := reg.Add(c)
	require.NoError(t, err)
	require.True(t, table.Connected(c))

	records, err := device.DecodeTable(table.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, table.Record(0), records[0])
	assert.True(t, records[1].IsZero())

	_, err = device.DecodeTable(make([]byte, device.RecordSize+1))
	assert.Error(t, err)
}
