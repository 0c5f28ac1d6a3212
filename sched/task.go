package sched

import (
	"context"
	"sync"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/internal/util"
	"github.com/embb-go/taskrt/status"
)

// Task is one schedulable unit of work bound to an Action, carrying its
// own argument/result buffers and lifecycle state. Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_task_t.c: the task
// control block's state field, instances-remaining counter, and
// complete-once discipline, reexpressed with an atomic State and a
// close-once done channel instead of a condition variable.
type Task struct {
	handle TaskHandle
	node   *Node
	action *Action
	job    *Job

	args    []byte
	result  []byte
	attrs   TaskAttributes
	traceID string

	state         atomicx.Uint32
	instancesTodo atomicx.Int64

	group *Group
	queue *Queue

	mu         sync.Mutex
	err        error
	done       chan struct{}
	closedOnce sync.Once
}

func newTask(h TaskHandle, node *Node, action *Action, job *Job, args []byte, attrs TaskAttributes) *Task {
	n := attrs.NumInstances
	if n == 0 {
		n = 1
	}
	t := &Task{
		handle:  h,
		node:    node,
		action:  action,
		job:     job,
		args:    args,
		attrs:   attrs,
		traceID: util.NewTraceID(),
		done:    make(chan struct{}),
	}
	t.instancesTodo.Store(int64(n))
	t.state.Store(uint32(Created))
	return t
}

// Handle returns the stable handle for this Task.
func (t *Task) Handle() TaskHandle { return t.handle }

// State returns the task's current lifecycle state.
func (t *Task) State() State { return State(t.state.Load()) }

func (t *Task) transition(to State) bool {
	for {
		from := State(t.state.Load())
		if !canTransition(from, to) {
			return false
		}
		if t.state.CAS(uint32(from), uint32(to)) {
			return true
		}
	}
}

// Attr returns the attributes the task was created with.
func (t *Task) Attr() TaskAttributes { return t.attrs }

// effectiveAffinity intersects every affinity source the spec names
// (spec §4.4's push rule: effective_affinity = action.affinity ∩
// task.affinity ∩ (queue.ordered ? queue.ordered_affinity : ALL)). Each
// source's zero value means "no restriction" (ALL) and drops out of the
// intersection rather than zeroing it.
func (t *Task) effectiveAffinity() uint64 {
	var aff uint64
	restricted := false
	combine := func(v uint64) {
		if v == 0 {
			return
		}
		if !restricted {
			aff = v
			restricted = true
			return
		}
		aff &= v
	}
	if t.action != nil {
		combine(t.action.affinity)
	}
	combine(t.attrs.Affinity)
	if t.queue != nil && t.queue.attrs.Ordered {
		combine(t.queue.attrs.OrderedAffinity)
	}
	if !restricted {
		return 0
	}
	return aff
}

// Start transitions the task Created -> Scheduled and hands it to the
// worker pool directly (spec §4.1 task_start), honoring Affinity and
// Priority from its attributes.
func (t *Task) Start() error {
	if !t.transition(Scheduled) {
		return status.ErrTaskInvalid
	}
	if err := t.action.retain(); err != nil {
		t.fail(status.ErrActionDeleted)
		return err
	}
	t.node.dispatch(t)
	return nil
}

// Enqueue attaches the task to an ordered or retaining Queue instead of
// scheduling it directly (spec §4.2 task_enqueue). The queue itself
// decides whether to run it now or park it.
func (t *Task) Enqueue(q *Queue) error {
	if !t.transition(Scheduled) {
		return status.ErrTaskInvalid
	}
	if err := t.action.retain(); err != nil {
		t.fail(status.ErrActionDeleted)
		return err
	}
	t.queue = q
	return q.submit(t)
}

// Cancel cooperatively requests cancellation. A Scheduled task is
// cancelled immediately (it never runs); a Running task is only marked
// Cancelled — the executing action observes this via
// TaskContext.CancelRequested and must return early for the task to
// actually stop (spec §4.4 "Cancellation" is cooperative, never
// preemptive).
func (t *Task) Cancel() error {
	switch State(t.state.Load()) {
	case Scheduled:
		if t.transition(Cancelled) {
			t.finish(status.ErrActionCancelled)
			return nil
		}
	case Running:
		if t.state.CAS(uint32(Running), uint32(Cancelled)) {
			return nil
		}
	}
	return status.ErrTaskInvalid
}

// Wait blocks until the task reaches a terminal state or ctx is done
// (spec §4.1 task_wait). A task that is never started is waited on until
// ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		t.mu.Lock()
		err := t.err
		t.mu.Unlock()
		return err
	case <-ctx.Done():
		return status.Timeout
	}
}

// Done returns a channel closed when the task reaches a terminal state,
// for callers composing Wait into a select alongside other events (e.g.
// Group.WaitAny).
func (t *Task) Done() <-chan struct{} { return t.done }

// runInstance executes one instance of the task's action body on
// worker w and reports completion bookkeeping. Only the worker pool
// calls this.
func (t *Task) runInstance(w *worker, instance uint32) {
	if !t.state.CAS(uint32(Scheduled), uint32(Running)) && State(t.state.Load()) != Running {
		// Already cancelled (or failed) between dispatch and dequeue.
		t.instanceDone()
		return
	}
	numInstances := uint32(t.attrs.NumInstances)
	if numInstances == 0 {
		numInstances = 1
	}
	ctx := &TaskContext{
		worker:       w,
		task:         t,
		instance:     instance,
		numInstances: numInstances,
		nodeLocal:    t.action.nodeLocal,
		traceID:      t.traceID,
	}
	if t.action.isPlugin() {
		t.action.pluginImp.Start(ctx, t.args, t.result)
		// Async completion: instancesTodo is decremented only when the
		// plug-in calls TaskContext.Complete (pluginTaskComplete), not here.
		return
	}
	t.action.fn(ctx, t.args, t.result)
	t.instanceDone()
}

// instanceDone records that one fan-out instance finished executing and
// finalizes the task once every instance has (spec §4.1 instances_todo
// countdown; invariant: complete_fn fires exactly once).
func (t *Task) instanceDone() {
	if t.instancesTodo.Dec() > 0 {
		return
	}
	if State(t.state.Load()) == Cancelled {
		t.finish(status.ErrActionCancelled)
		return
	}
	if State(t.state.Load()) == Error {
		t.finish(status.ErrActionFailed)
		return
	}
	if t.transition(Completed) {
		t.finish(status.Success)
		return
	}
	// Already Cancelled by a racing Cancel() call.
	t.finish(status.ErrActionCancelled)
}

func (t *Task) fail(st *status.Status) {
	t.transition(Error)
	t.finish(st)
}

// finish records the final status, releases the action reference,
// notifies the owning Group/Queue, invokes CompleteFn, and closes done
// exactly once.
func (t *Task) finish(st *status.Status) {
	t.closedOnce.Do(func() {
		t.mu.Lock()
		if st != status.Success {
			t.err = st
		}
		t.mu.Unlock()

		t.action.release()
		if t.queue != nil {
			t.queue.taskCompleted(t)
		}
		if t.group != nil {
			t.group.taskCompleted(t)
		}
		if t.attrs.CompleteFn != nil {
			t.attrs.CompleteFn(t.handle)
		}
		close(t.done)
	})
}
