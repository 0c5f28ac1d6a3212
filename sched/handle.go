package sched

import "github.com/embb-go/taskrt/pool"

// Each spec handle kind is a distinct Go type over pool.Handle so the
// compiler rejects passing, say, a GroupHandle where a TaskHandle is
// expected — free type safety the original C typedefs only get by
// convention.
type (
	ActionHandle pool.Handle
	JobHandle    pool.Handle
	TaskHandle   pool.Handle
	QueueHandle  pool.Handle
	GroupHandle  pool.Handle
)

func (h ActionHandle) IsZero() bool { return pool.Handle(h).IsZero() }
func (h JobHandle) IsZero() bool    { return pool.Handle(h).IsZero() }
func (h TaskHandle) IsZero() bool   { return pool.Handle(h).IsZero() }
func (h QueueHandle) IsZero() bool  { return pool.Handle(h).IsZero() }
func (h GroupHandle) IsZero() bool  { return pool.Handle(h).IsZero() }
