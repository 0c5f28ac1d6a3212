package sched

// Plugin is the interface an action registers instead of a plain
// ExecFunc when execution happens off a worker goroutine entirely — a
// GPU queue, a network RPC, an FPGA job — the cases spec §11 calls a
// "plug-in action". Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_task_t.c's
// plugin_task_start/plugin_task_cancel/plugin_task_finalize callback
// triplet.
type Plugin interface {
	// Start hands the task to the external executor. It must return
	// quickly; the worker goroutine that called it moves on immediately
	// and does not block waiting for the external work to finish.
	Start(ctx *TaskContext, args, result []byte)

	// Cancel requests the external executor stop the task, best-effort.
	Cancel(ctx *TaskContext)

	// Finalize releases any plug-in-private state associated with the
	// action itself. Called exactly once, at action destruction, after
	// Action.Delete observes num_tasks==0 (spec §4.5 "plugin_finalize(
	// action_handle): called at action destruction after num_tasks==0") —
	// not once per task.
	Finalize(action ActionHandle)
}

// pluginTaskComplete is the callback a Plugin implementation invokes
// (from whatever goroutine owns the external executor) once an
// instance it was handed via Start has actually finished. Until this
// fires, instancesTodo is not decremented — the defining difference
// from an ordinary ExecFunc, whose completion the worker itself
// observes synchronously.
func pluginTaskComplete(ctx *TaskContext, ok bool) {
	t := ctx.task
	if !ok {
		t.transition(Error)
	}
	t.instanceDone()
}
