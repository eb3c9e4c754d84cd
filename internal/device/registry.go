package device

import (
	"fmt"

	"github.com/cornelk/hashmap"
)

// SlotRegistry is a minimal stand-in for the canonical device registry: it hands out
// stable slot indexes keyed by controller address. Like the table it feeds, it must
// only be used from the BLE event context.
type SlotRegistry struct {
	slots []*Controller
	index *hashmap.Map[string, int]
}

// NewSlotRegistry creates a registry with capacity slots.
func NewSlotRegistry(capacity int) *SlotRegistry {
	return &SlotRegistry{
		slots: make([]*Controller, capacity),
		index: hashmap.New[string, int](),
	}
}

// Add claims the first free slot for c. Adding an already registered controller
// returns its existing slot.
func (r *SlotRegistry) Add(c *Controller) (int, error) {
	key := c.Address.String()
	if idx, ok := r.index.Get(key); ok {
		r.slots[idx] = c
		return idx, nil
	}
	for i, s := range r.slots {
		if s == nil {
			r.slots[i] = c
			r.index.Set(key, i)
			return i, nil
		}
	}
	return -1, &LinkError{State: NoFreeSlot, Msg: fmt.Sprintf("%s: all %d slots in use", key, len(r.slots))}
}

// Remove releases the controller's slot.
func (r *SlotRegistry) Remove(c *Controller) {
	key := c.Address.String()
	if idx, ok := r.index.Get(key); ok {
		r.slots[idx] = nil
		r.index.Del(key)
	}
}

// Lookup returns the controller registered under address.
func (r *SlotRegistry) Lookup(addr Address) (*Controller, error) {
	idx, ok := r.index.Get(addr.String())
	if !ok {
		return nil, &NotFoundError{Resource: "controller", Key: addr.String()}
	}
	return r.slots[idx], nil
}

// ByHandle returns the registered controller using connection handle h.
func (r *SlotRegistry) ByHandle(h ConnHandle) (*Controller, bool) {
	for _, c := range r.slots {
		if c != nil && c.Handle == h {
			return c, true
		}
	}
	return nil, false
}

// SlotIndex implements Registry.
func (r *SlotRegistry) SlotIndex(c *Controller) (int, bool) {
	if c == nil {
		return 0, false
	}
	return r.index.Get(c.Address.String())
}

// Len returns the number of occupied slots.
func (r *SlotRegistry) Len() int {
	return r.index.Len()
}
