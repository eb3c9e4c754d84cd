package goble

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/srg/padhost/internal/device"
)

const (
	firstConnHandle = 0x0040
	// maxConnHandle is the highest HCI connection handle (12 bits, 0x0F00+ reserved).
	maxConnHandle = 0x0EFF
)

// HandleAllocator hands out connection handles for links that go-ble does not
// number itself, keyed by remote address. It is safe for concurrent use.
type HandleAllocator struct {
	byAddr *hashmap.Map[string, device.ConnHandle]
	next   atomic.Uint32
}

// NewHandleAllocator creates an allocator whose first handle is 0x0040.
func NewHandleAllocator() *HandleAllocator {
	return &HandleAllocator{byAddr: hashmap.New[string, device.ConnHandle]()}
}

// Acquire returns the handle for addr, allocating one if needed. created reports
// whether the handle is new.
func (a *HandleAllocator) Acquire(addr string) (h device.ConnHandle, created bool) {
	if h, ok := a.byAddr.Get(addr); ok {
		return h, false
	}
	n := a.next.Add(1) - 1
	candidate := device.ConnHandle(firstConnHandle + n%(maxConnHandle-firstConnHandle+1))
	h, loaded := a.byAddr.GetOrInsert(addr, candidate)
	return h, !loaded
}

// Lookup returns the handle held by addr.
func (a *HandleAllocator) Lookup(addr string) (device.ConnHandle, bool) {
	return a.byAddr.Get(addr)
}

// Release forgets addr.
func (a *HandleAllocator) Release(addr string) {
	a.byAddr.Del(addr)
}
