// Package atomicx is the thin primitives shim every scheduler component
// builds on: atomic loads and stores and CAS (no separate fences), expressed
// over go.uber.org/atomic so call sites read as plain field access instead
// of repeating sync/atomic's pointer-taking boilerplate at every site (the
// pattern _examples/Guti2010-Proyecto-SO/internal/sched and
// internal/server/runtime.go use sync/atomic directly for a handful of
// counters; this module has enough atomic fields, across enough packages,
// that the wrapper earns its keep).
package atomicx

import "go.uber.org/atomic"

// Uint32, Bool, Int64 and Uint64 are re-exported so every package in this
// module imports one atomics package instead of choosing between
// sync/atomic and go.uber.org/atomic per file.
type (
	Uint32 = atomic.Uint32
	Uint64 = atomic.Uint64
	Int64  = atomic.Int64
	Bool   = atomic.Bool
)

// NewUint32, NewUint64, NewInt64 and NewBool construct initialized atomics,
// mirroring the zero-value-unsafe constructors of go.uber.org/atomic.
func NewUint32(v uint32) *Uint32 { return atomic.NewUint32(v) }
func NewUint64(v uint64) *Uint64 { return atomic.NewUint64(v) }
func NewInt64(v int64) *Int64    { return atomic.NewInt64(v) }
func NewBool(v bool) *Bool       { return atomic.NewBool(v) }
