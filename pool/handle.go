// Package pool implements the handle-indexed object pool described in
// spec §3/§4.1: a fixed-capacity slab of T plus a channel-based index pool,
// returning tag-versioned Handles so a stale reference to a freed-and-
// reallocated slot is detected rather than silently aliased (the ABA
// problem spec §3 calls out).
package pool

// Handle is a (id, tag) pair. id indexes a pool slot; tag is a version
// counter bumped on every (allocate, free) cycle of that slot. A Handle
// whose slot was freed and reallocated never equals the new occupant's
// Handle, because the new occupant's tag has moved on.
type Handle struct {
	ID  uint32
	Tag uint32
}

// Zero is the handle value no live object is ever assigned.
var Zero = Handle{}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.ID == 0 && h.Tag == 0 }
