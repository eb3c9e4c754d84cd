package goble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/padhost/internal/device"
)

func TestHandleAllocator(t *testing.T) {
	a := NewHandleAllocator()

	h1, created := a.Acquire("aa")
	assert.True(t, created)
	assert.Equal(t, device.ConnHandle(0x40), h1)

	again, created := a.Acquire("aa")
	assert.False(t, created)
	assert.Equal(t, h1, again)

	h2, _ := a.Acquire("bb")
	assert.Equal(t, device.ConnHandle(0x41), h2)

	got, ok := a.Lookup("bb")
	assert.True(t, ok)
	assert.Equal(t, h2, got)

	a.Release("aa")
	_, ok = a.Lookup("aa")
	assert.False(t, ok)

	h3, created := a.Acquire("aa")
	assert.True(t, created)
	assert.NotEqual(t, h1, h3, "released handles are not reused immediately")
}

func TestHandleAllocator_Wraps(t *testing.T) {
	a := NewHandleAllocator()
	a.next.Store(maxConnHandle - firstConnHandle)

	h, _ := a.Acquire("last")
	assert.Equal(t, device.ConnHandle(maxConnHandle), h)
	h, _ = a.Acquire("wrapped")
	assert.Equal(t, device.ConnHandle(firstConnHandle), h)
}
