//go:build test

package device_test

import (
	"testing"

	"github.com/srg/padhost/internal/testutils"
	"github.com/stretchr/testify/require"
)

func TestRecord_MarshalJSON(t *testing.T) {
	ja := testutils.NewJSONAsserter(t)

	table, reg := newTable(t, 1)
	c := steamController(t, "AA:BB:CC:DD:EE:FF")
	_, err := reg.Add(c)
	require.NoError(t, err)
	require.True(t, table.Connected(c))

	ja.AssertValue(table.Record(0), `{
		"address": "AA:BB:CC:DD:EE:FF",
		"vendor_id": "28de",
		"product_id": "1142",
		"state": "connected",
		"incoming": true,
		"type": "steam",
		"subtype": 0,
		"name": "SteamController"
	}`)
}
