// Package hazard implements the wait-free hazard-pointer memory
// reclamation primitive of spec §3/§4.2: a matrix of per-accessor guard
// slots plus a per-accessor retired list, for lock-free containers that
// unlink nodes and free them later while other goroutines may still be
// dereferencing them. The scheduler's own queues are mutex-based and do
// not use it.
//
// Reference: Maged M. Michael, "Hazard pointers: Safe memory reclamation
// for lock-free objects", IEEE TPDS 15.6 (2004) — the same citation
// carried in _examples/original_source/containers_cpp/include/embb/
// containers/internal/hazard_pointer.h, which this package ports from
// C++'s HazardPointer<GuardType> template to a generic Go type.
package hazard

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/internal/log"
	"github.com/embb-go/taskrt/internal/metrics"
	"github.com/embb-go/taskrt/status"
)

// ReleaseFunc is the user callback that takes ownership of a retired
// Guard once no accessor holds it in any slot — typically returning it
// to a free list or allocator (spec §1 "container reclaim callback").
type ReleaseFunc[Guard comparable] func(Guard)

// HazardPointer is the shared, fixed-memory reclamation matrix. It is
// safe for concurrent use by every Accessor obtained from it; Close must
// not run concurrently with any Accessor call.
type HazardPointer[Guard comparable] struct {
	release         ReleaseFunc[Guard]
	undefined       Guard
	guardsPerThread int
	maxAccessors    int

	// guards[row*guardsPerThread+slot], one atomic.Value per cell so Guard
	// and Unguard are plain wait-free stores (spec §4.2: "Guard placement
	// ... is a plain store").
	guards []cell[Guard]

	rows    []atomicx.Bool // true while row `i` is claimed
	retired [][]Guard      // retired[i] is owned solely by the accessor holding row i
}

type cell[Guard comparable] struct {
	v atomic.Value
}

func (c *cell[Guard]) store(g Guard) { c.v.Store(boxed[Guard]{g}) }

func (c *cell[Guard]) load() Guard { return c.v.Load().(boxed[Guard]).g }

// boxed indirects through a fixed concrete type so atomic.Value accepts
// any comparable Guard, including interface or zero-sized types whose
// dynamic type could otherwise vary between Store calls.
type boxed[Guard comparable] struct{ g Guard }

// MaxRetiredObjectCount computes the worst-case number of objects a
// HazardPointer of this shape can be holding, not yet released —
// guardsPerThread * accessors² — ported from
// HazardPointer<T>::ComputeMaximumRetiredObjectCount in the original
// (spec §9 "Open questions" does not mention this helper, but it is a
// one-line, testable piece of the original API dropped by the
// distillation; see SPEC_FULL.md §12).
func MaxRetiredObjectCount(guardsPerThread, accessors int) int {
	return guardsPerThread * accessors * accessors
}

// New constructs a HazardPointer supporting up to maxAccessors
// concurrent accessors, each with guardsPerThread guard slots.
// undefined is the Guard value meaning "no guard placed"; release is
// called, possibly from any accessor's goroutine, once a retired Guard
// is provably unobserved.
func New[Guard comparable](release ReleaseFunc[Guard], undefined Guard, guardsPerThread, maxAccessors int) *HazardPointer[Guard] {
	if guardsPerThread <= 0 {
		guardsPerThread = 1
	}
	if maxAccessors <= 0 {
		maxAccessors = 1
	}
	hp := &HazardPointer[Guard]{
		release:         release,
		undefined:       undefined,
		guardsPerThread: guardsPerThread,
		maxAccessors:    maxAccessors,
		guards:          make([]cell[Guard], guardsPerThread*maxAccessors),
		rows:            make([]atomicx.Bool, maxAccessors),
		retired:         make([][]Guard, maxAccessors),
	}
	for i := range hp.guards {
		hp.guards[i].store(undefined)
	}
	return hp
}

// Close frees every entry still sitting in every accessor's retired list
// (spec invariant H3). Not safe to call concurrently with any Guard,
// Unguard or Retire call, mirroring the original's "destructor is not
// thread-safe".
func (hp *HazardPointer[Guard]) Close() {
	for i := range hp.retired {
		for _, g := range hp.retired[i] {
			hp.release(g)
		}
		hp.retired[i] = nil
	}
}

// Accessor is a claimed row of guard slots plus its owned retired list.
// One goroutine at a time may use an Accessor; the zero value is not
// valid — obtain one via HazardPointer.Acquire.
type Accessor[Guard comparable] struct {
	hp  *HazardPointer[Guard]
	row int
}

// Acquire claims the first free accessor row. Fails with
// status.ErrTooManyAccessors if every row is already claimed.
func (hp *HazardPointer[Guard]) Acquire() (*Accessor[Guard], error) {
	for i := range hp.rows {
		if hp.rows[i].CAS(false, true) {
			return &Accessor[Guard]{hp: hp, row: i}, nil
		}
	}
	log.Hazard().Warn("accessor rows exhausted", zap.Int("max_accessors", hp.maxAccessors))
	return nil, status.ErrTooManyAccessors
}

// Release gives the accessor's row back to the pool. The caller must
// not use the Accessor again afterwards.
func (a *Accessor[Guard]) Release() {
	a.hp.rows[a.row].Store(false)
}

// Guard publishes "this accessor is about to dereference g" in the
// given slot (0 <= slot < guardsPerThread). It is a plain store — the
// caller must re-read the source pointer after publishing and retry if
// it changed, the standard guard-and-check loop (spec §4.2) that makes
// usage lock-free even though the primitive itself is wait-free.
func (a *Accessor[Guard]) Guard(slot int, g Guard) {
	a.hp.guards[a.row*a.hp.guardsPerThread+slot].store(g)
}

// Unguard clears the given slot, making its previously-guarded value
// eligible for release by a concurrent Retire.
func (a *Accessor[Guard]) Unguard(slot int) {
	a.Guard(slot, a.hp.undefined)
}

// Retire hands p to the reclamation algorithm. If no accessor currently
// guards p, release(p) is invoked before Retire returns; otherwise p is
// deferred to this accessor's retired list until a later Retire call on
// this same accessor observes it unguarded, or until Close (spec §4.2
// "Retire algorithm").
func (a *Accessor[Guard]) Retire(p Guard) {
	hp := a.hp
	old := hp.retired[a.row]
	temp := make([]Guard, 0, len(old)+1)

	guarded := func(g Guard) bool {
		if g == hp.undefined {
			return false
		}
		for i := range hp.guards {
			if hp.guards[i].load() == g {
				return true
			}
		}
		return false
	}

	candidates := make([]Guard, 0, len(old)+1)
	candidates = append(candidates, old...)
	candidates = append(candidates, p)

	for _, g := range candidates {
		if guarded(g) {
			temp = append(temp, g)
		}
	}

	keep := make(map[int]bool, len(temp))
	for _, g := range temp {
		for i, c := range candidates {
			if c == g && !keep[i] {
				keep[i] = true
				break
			}
		}
	}
	for i, g := range candidates {
		if !keep[i] {
			hp.release(g)
			metrics.HazardRetiredTotal.WithLabelValues("immediate").Inc()
		}
	}
	if guarded(p) {
		metrics.HazardRetiredTotal.WithLabelValues("deferred").Inc()
	}

	hp.retired[a.row] = temp
}
