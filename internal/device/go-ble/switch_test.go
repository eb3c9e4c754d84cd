package goble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/padhost/internal/testutils"
)

func TestSwitch(t *testing.T) {
	var changes []bool
	s := NewSwitch("ble", true, func(on bool) { changes = append(changes, on) }, testutils.NewTestHelper(t).Logger)
	assert.True(t, s.Enabled())

	s.SetEnabled(true)
	assert.Empty(t, changes, "no callback when the value does not change")

	s.SetEnabled(false)
	s.SetEnabled(false)
	s.SetEnabled(true)
	assert.Equal(t, []bool{false, true}, changes)
	assert.True(t, s.Enabled())

	bare := NewSwitch("scan", false, nil, nil)
	bare.SetEnabled(true)
	assert.True(t, bare.Enabled())
}
