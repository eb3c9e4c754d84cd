package device_test

import (
	"testing"

	"github.com/srg/padhost/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "colon separated", input: "aa:bb:cc:dd:ee:ff", expected: "AA:BB:CC:DD:EE:FF"},
		{name: "dash separated", input: "AA-BB-CC-DD-EE-FF", expected: "AA:BB:CC:DD:EE:FF"},
		{name: "surrounding whitespace", input: " 01:02:03:04:05:06 ", expected: "01:02:03:04:05:06"},
		{name: "too short", input: "01:02:03", wantErr: true},
		{name: "eui-64 rejected", input: "01:02:03:04:05:06:07:08", wantErr: true},
		{name: "garbage", input: "not-an-address", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := device.ParseAddress(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, addr.String())
		})
	}
}

func TestSlotRegistry(t *testing.T) {
	reg := device.NewSlotRegistry(2)
	a := steamController(t, "00:00:00:00:00:0A")
	b := steamController(t, "00:00:00:00:00:0B")
	c := steamController(t, "00:00:00:00:00:0C")

	t.Run("assigns first free slots", func(t *testing.T) {
		idx, err := reg.Add(a)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)

		idx, err = reg.Add(b)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
	})

	t.Run("re-adding keeps the slot", func(t *testing.T) {
		idx, err := reg.Add(a)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("full registry rejects", func(t *testing.T) {
		_, err := reg.Add(c)
		assert.ErrorIs(t, err, device.ErrNoFreeSlot)
		assert.NotErrorIs(t, err, device.ErrNotConnected)
	})

	t.Run("remove frees the slot", func(t *testing.T) {
		reg.Remove(a)
		_, ok := reg.SlotIndex(a)
		assert.False(t, ok)

		idx, err := reg.Add(c)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("lookup", func(t *testing.T) {
		got, err := reg.Lookup(c.Address)
		require.NoError(t, err)
		assert.Same(t, c, got)

		_, err = reg.Lookup(a.Address)
		var nf *device.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("by handle", func(t *testing.T) {
		b.Handle = 0x81
		got, ok := reg.ByHandle(0x81)
		require.True(t, ok)
		assert.Same(t, b, got)
	})
}
