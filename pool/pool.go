package pool

import (
	"fmt"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/status"
)

type slot[T any] struct {
	tag   atomicx.Uint32
	value T
}

// ObjectPool is a fixed-size array of T plus a pool of free indices,
// handed out and reclaimed through tag-versioned Handles (spec §4.1).
//
// Free indices travel over a buffered channel rather than a hand-rolled
// CAS free-list: Go channels are already a safe, well-tested MPMC queue,
// and every queue in this module's teacher lineage
// (_examples/Guti2010-Proyecto-SO/internal/sched.Pool) is itself a
// channel of fixed capacity. A channel is the idiomatic Go stand-in for
// the "wait-free array value pool" the original C++ uses internally.
type ObjectPool[T any] struct {
	slots []slot[T]
	free  chan uint32
}

// New allocates a pool of the given capacity. Capacity is fixed for the
// pool's lifetime.
func New[T any](capacity int) *ObjectPool[T] {
	if capacity <= 0 {
		capacity = 1
	}
	p := &ObjectPool[T]{
		slots: make([]slot[T], capacity),
		free:  make(chan uint32, capacity),
	}
	for i := range p.slots {
		// Tag starts at 1: tag 0 is reserved so the zero Handle never
		// validates against a freshly-constructed, unallocated slot.
		p.slots[i].tag.Store(1)
		p.free <- uint32(i)
	}
	return p
}

// Capacity returns the pool's fixed slot count.
func (p *ObjectPool[T]) Capacity() int { return len(p.slots) }

// Allocate reserves a free slot and returns a Handle addressing it.
// Reports false when every slot is in use; callers map that to their
// component-specific limit error, e.g. ErrTaskLimit, ErrActionLimit.
func (p *ObjectPool[T]) Allocate() (Handle, bool) {
	select {
	case id := <-p.free:
		tag := p.slots[id].tag.Load()
		return Handle{ID: id + 1, Tag: tag}, true
	default:
		return Zero, false
	}
}

// Free clears the slot addressed by h, bumps its tag so any outstanding
// copy of h becomes invalid, and returns the index to the free pool.
// Free is a no-op (returns false) if h does not currently address a live
// slot.
func (p *ObjectPool[T]) Free(h Handle) bool {
	idx, ok := p.index(h)
	if !ok {
		return false
	}
	var zero T
	p.slots[idx].value = zero
	p.slots[idx].tag.Add(1)
	p.free <- idx
	return true
}

// Get returns a pointer to the slot addressed by h, or nil if h is stale
// or out of range (status.ErrXxxInvalid at the caller).
func (p *ObjectPool[T]) Get(h Handle) *T {
	idx, ok := p.index(h)
	if !ok {
		return nil
	}
	return &p.slots[idx].value
}

// Valid reports whether h currently addresses a live slot.
func (p *ObjectPool[T]) Valid(h Handle) bool {
	_, ok := p.index(h)
	return ok
}

func (p *ObjectPool[T]) index(h Handle) (uint32, bool) {
	if h.ID == 0 || int(h.ID) > len(p.slots) {
		return 0, false
	}
	idx := h.ID - 1
	if p.slots[idx].tag.Load() != h.Tag {
		return 0, false
	}
	return idx, true
}

// ErrExhausted wraps one of the component-specific limit sentinels
// (status.ErrTaskLimit, status.ErrActionLimit, ...) with the pool's own
// label, for callers that want a status-shaped error instead of the
// boolean Allocate form.
func ErrExhausted(kind string, limit *status.Status) error {
	return fmt.Errorf("%s: %w", kind, limit)
}
