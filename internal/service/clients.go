package service

import "github.com/srg/padhost/internal/device"

// clientConn tracks one subscribed BLE client.
type clientConn struct {
	handle    device.ConnHandle
	notify    bool
	valueAttr Attr
	// pending is set while the client has not yet been sent the latest table.
	pending bool
}

func (c *clientConn) active() bool {
	return c.handle != device.InvalidHandle && c.notify
}

func (c *clientConn) reset() {
	*c = clientConn{handle: device.InvalidHandle}
}

// clientTable is the fixed-capacity table of ATT client connections. When it is
// full, further clients get no slot and receive no notifications.
type clientTable struct {
	conns []clientConn
}

func newClientTable(capacity int) clientTable {
	t := clientTable{conns: make([]clientConn, capacity)}
	for i := range t.conns {
		t.conns[i].reset()
	}
	return t
}

// index returns the slot holding h, or -1.
func (t *clientTable) index(h device.ConnHandle) int {
	if h == device.InvalidHandle {
		return -1
	}
	for i := range t.conns {
		if t.conns[i].handle == h {
			return i
		}
	}
	return -1
}

func (t *clientTable) find(h device.ConnHandle) *clientConn {
	if i := t.index(h); i >= 0 {
		return &t.conns[i]
	}
	return nil
}

// claim registers h in the first free slot. Returns -1 when the table is full.
func (t *clientTable) claim(h device.ConnHandle) int {
	if i := t.index(h); i >= 0 {
		return i
	}
	for i := range t.conns {
		if t.conns[i].handle == device.InvalidHandle {
			t.conns[i] = clientConn{handle: h}
			return i
		}
	}
	return -1
}

// release clears the slot holding h. Returns -1 if h was not registered.
func (t *clientTable) release(h device.ConnHandle) int {
	i := t.index(h)
	if i >= 0 {
		t.conns[i].reset()
	}
	return i
}

// next returns the first slot at or after from (wrapping once) whose client is
// active and still pending, or -1.
func (t *clientTable) next(from int) int {
	n := len(t.conns)
	for k := 0; k < n; k++ {
		i := (from + k) % n
		if t.conns[i].active() && t.conns[i].pending {
			return i
		}
	}
	return -1
}

func (t *clientTable) markPending() int {
	marked := 0
	for i := range t.conns {
		if t.conns[i].active() {
			t.conns[i].pending = true
			marked++
		}
	}
	return marked
}
