package core

import "fmt"

// IdentifierPool hands out dense integer ids, reusing released ones first.
// A capacity of 0 means unbounded.
type IdentifierPool struct {
	owners   []interface{}
	capacity uint32
}

func NewIdentifierPool(capacity uint32) *IdentifierPool {
	return &IdentifierPool{capacity: capacity}
}

func (p *IdentifierPool) Acquire(owner interface{}) (uint32, error) {
	if owner == nil {
		return 0, fmt.Errorf("identifier pool: owner cannot be nil")
	}
	length := uint32(len(p.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return i, nil
		}
	}
	if p.capacity > 0 && length >= p.capacity {
		return 0, ErrSceneCapacityExceeded
	}
	p.owners = append(p.owners, owner)
	return length, nil
}

func (p *IdentifierPool) Release(id uint32) error {
	if id >= uint32(len(p.owners)) {
		return fmt.Errorf("identifier pool: id '%d' out of range (max=%d). Nothing was done", id, len(p.owners))
	}
	p.owners[id] = nil
	return nil
}

// Owner returns the owner of id, or nil when the id is free.
func (p *IdentifierPool) Owner(id uint32) interface{} {
	if id >= uint32(len(p.owners)) {
		return nil
	}
	return p.owners[id]
}

// InUse is the number of acquired ids.
func (p *IdentifierPool) InUse() int {
	n := 0
	for _, o := range p.owners {
		if o != nil {
			n++
		}
	}
	return n
}
