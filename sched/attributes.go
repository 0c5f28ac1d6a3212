package sched

import "time"

// NodeOption configures Attributes for Init. Functional options replace
// the C attribute-key/value table of spec §6
// (max_actions, max_actions_per_job, ...) with compile-checked structs —
// the Go-idiomatic equivalent of
// _examples/Guti2010-Proyecto-SO/internal/server's per-key attribute
// validation, adapted from a runtime key switch to typed option functions.
type NodeOption func(*Attributes)

// Attributes configures a Node at Init time (spec §6 attribute keys).
type Attributes struct {
	MaxActions       int
	MaxActionsPerJob int
	MaxGroups        int
	MaxQueues        int
	MaxTasks         int
	MaxPriorities    int
	QueueLimit       int
	CoreAffinity     uint64 // one bit per worker to start
	WorkerPriorities map[int]int // worker index -> OS thread priority hint (best-effort, SPEC_FULL §12)
	PickMode         PickMode
	SpinBudget       int
	SleepTimeout     time.Duration
}

// PickMode selects the worker's pick_next_task discipline (spec §4.4).
type PickMode int

const (
	// ModeVHPF: very-high-priority-first — exhaust every worker at one
	// priority level before falling through to the next.
	ModeVHPF PickMode = iota
	// ModeLF: locality-first — scan all priorities of own private, then
	// own public, before stealing across all priorities of others.
	ModeLF
)

func defaultAttributes() Attributes {
	return Attributes{
		MaxActions:       256,
		MaxActionsPerJob: 8,
		MaxGroups:        256,
		MaxQueues:        64,
		MaxTasks:         4096,
		MaxPriorities:    4,
		QueueLimit:       1024,
		CoreAffinity:     0xFFFFFFFF, // cores 0-31; Init caps the worker count at runtime.NumCPU()
		PickMode:         ModeVHPF,
		SpinBudget:       1024,
		SleepTimeout:     10 * time.Millisecond,
	}
}

func WithMaxActions(n int) NodeOption       { return func(a *Attributes) { a.MaxActions = n } }
func WithMaxActionsPerJob(n int) NodeOption { return func(a *Attributes) { a.MaxActionsPerJob = n } }
func WithMaxGroups(n int) NodeOption        { return func(a *Attributes) { a.MaxGroups = n } }
func WithMaxQueues(n int) NodeOption        { return func(a *Attributes) { a.MaxQueues = n } }
func WithMaxTasks(n int) NodeOption         { return func(a *Attributes) { a.MaxTasks = n } }
func WithMaxPriorities(n int) NodeOption    { return func(a *Attributes) { a.MaxPriorities = n } }
func WithQueueLimit(n int) NodeOption       { return func(a *Attributes) { a.QueueLimit = n } }
func WithCoreAffinity(mask uint64) NodeOption {
	return func(a *Attributes) { a.CoreAffinity = mask }
}
func WithWorkerPriorities(m map[int]int) NodeOption {
	return func(a *Attributes) { a.WorkerPriorities = m }
}
func WithPickMode(mode PickMode) NodeOption { return func(a *Attributes) { a.PickMode = mode } }
func WithSpinBudget(n int) NodeOption       { return func(a *Attributes) { a.SpinBudget = n } }
func WithSleepTimeout(d time.Duration) NodeOption {
	return func(a *Attributes) { a.SleepTimeout = d }
}

// ActionAttributes configures action_create.
type ActionAttributes struct {
	Affinity  uint64 // 0 means "no restriction" (ALL)
	NodeLocal []byte
}

// TaskAttributes configures task_start / task_enqueue.
type TaskAttributes struct {
	Detached     bool
	NumInstances uint
	Priority     uint
	Affinity     uint64
	CompleteFn   func(TaskHandle)
	UserData     any
}

// QueueAttributes configures queue_create.
type QueueAttributes struct {
	Priority        uint
	Ordered         bool
	Retain          bool
	DomainShared    bool
	Limit           uint
	OrderedAffinity uint64
}

// GroupAttributes configures group_create. The spec leaves Group
// attributes unspecified beyond capacity bookkeeping handled by the
// Node's MaxGroups; this struct exists for forward compatibility and is
// presently empty.
type GroupAttributes struct{}
