package sched

// ExecFunc is the action plug-in interface of spec §1: a user function
// called from a worker with the task's argument and result buffers, a
// view of the action's node-local data, and a TaskContext.
type ExecFunc func(ctx *TaskContext, args, result []byte)

// NotifyFunc receives out-of-band progress events a plug-in action
// reports through ctx.Notify without completing the task (spec §6
// domain-stack note: the transport a network-peer or accelerator plug-in
// uses to surface partial progress).
type NotifyFunc func(kind string, buf []byte)

// TaskContext is passed to an action's ExecFunc. It is immutable for the
// duration of one instance's execution and must not be retained past
// ExecFunc returning (spec §3 "TaskContext").
type TaskContext struct {
	worker       *worker
	task         *Task
	instance     uint32
	numInstances uint32
	nodeLocal    []byte
	notify       NotifyFunc
	traceID      string
}

// TraceID returns the short correlation id generated for this task at
// creation time, for stitching an action's own logs to the worker logs
// around it.
func (c *TaskContext) TraceID() string { return c.traceID }

// CoreNum returns the index of the core the owning worker is pinned to.
func (c *TaskContext) CoreNum() int { return c.worker.coreNum }

// InstanceNum returns this execution's instance index, in [0, NumInstances()).
func (c *TaskContext) InstanceNum() uint32 { return c.instance }

// NumInstances returns the task's total instance (fan-out) count.
func (c *TaskContext) NumInstances() uint32 { return c.numInstances }

// NodeLocal returns the action's node-local data blob, shared read-only
// across every instance and every task routed to this action.
func (c *TaskContext) NodeLocal() []byte { return c.nodeLocal }

// CancelRequested reports whether cancel() has been called on the owning
// task. A cooperative action should poll this between units of work and
// return early; the scheduler itself only observes cancellation between
// instances and at dequeue time (spec §4.4 "Cancellation").
func (c *TaskContext) CancelRequested() bool {
	return c.task.state.Load() == uint32(Cancelled)
}

// Notify reports an out-of-band event, e.g. partial progress from a
// plug-in action's external executor, without completing the task. It is
// a no-op when the context has no NotifyFunc, which is the case for every
// context a worker builds.
func (c *TaskContext) Notify(kind string, buf []byte) {
	if c.notify != nil {
		c.notify(kind, buf)
	}
}

// Complete is called by a Plugin's external executor, from whatever
// goroutine owns it, once the instance this context was handed to via
// Plugin.Start has actually finished. ok false moves the task to Error
// instead of the usual Completed/Cancelled outcome.
func (c *TaskContext) Complete(ok bool) {
	pluginTaskComplete(c, ok)
}
