package steam

import (
	"testing"

	"github.com/srg/padhost/internal/device"
	"github.com/srg/padhost/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames(t *testing.T) {
	assert.Equal(t, []byte{0xC0, 0x81, 0x01}, ClearMappingsFrame())
	assert.Equal(t, []byte{
		0xC0, 0x87, 0x0F,
		0x30, 0x00, 0x00,
		0x07, 0x07, 0x00,
		0x08, 0x07, 0x00,
		0x18, 0x00, 0x00,
		0x2D, 0x64, 0x00,
	}, DisableLizardFrame())
}

func TestFrame(t *testing.T) {
	b, err := Frame(CmdHapticRumble, 0x01, 0x02)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC0, 0xEB, 0x02, 0x01, 0x02}, b)

	b, err = WriteRegisters(RegisterWrite{RegLPadClickPressure, 0x1234})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC0, 0x87, 0x03, 0x34, 0x34, 0x12}, b)

	_, err = Frame(CmdSetMappings, make([]byte, 256)...)
	assert.Error(t, err)
}

func TestParseInputReport(t *testing.T) {
	logger := testutils.NewTestHelper(t).Logger
	var st InputState
	require.NoError(t, ParseInputReport(&st, []byte{1, 2, 3, 4}, logger))
	assert.Equal(t, ClassGamepad, st.Class)
	assert.Equal(t, []byte{1, 2, 3, 4}, st.Bytes())

	// Each report replaces the previous state completely.
	require.NoError(t, ParseInputReport(&st, []byte{9}, logger))
	assert.Equal(t, []byte{9}, st.Bytes())
	assert.Zero(t, st.Raw[1])

	err := ParseInputReport(&st, make([]byte, MaxReportLen+1), logger)
	assert.Error(t, err)
	assert.Equal(t, []byte{9}, st.Bytes(), "oversized report leaves state untouched")
}

func TestReportQueue(t *testing.T) {
	q := NewReportQueue(4)
	require.GreaterOrEqual(t, q.Cap(), uint32(4))

	_, ok := q.Pop()
	assert.False(t, ok)

	src := []byte{1, 2}
	_, err := q.Push(0x40, src)
	require.NoError(t, err)
	src[0] = 7

	r, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, device.ConnHandle(0x40), r.Handle)
	assert.Equal(t, []byte{1, 2}, r.Data, "queue keeps its own copy")

	// Overfilling drops the oldest reports.
	var dropped uint32
	for i := 0; i < int(q.Cap())+3; i++ {
		n, err := q.Push(0x41, []byte{byte(i)})
		require.NoError(t, err)
		dropped += n
	}
	assert.Positive(t, dropped)
	r, ok = q.Pop()
	require.True(t, ok)
	assert.NotEqual(t, []byte{0}, r.Data)
}
