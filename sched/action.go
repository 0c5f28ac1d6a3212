package sched

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/internal/log"
	"github.com/embb-go/taskrt/status"
)

// Action is a registered unit of executable behavior: either a plain
// ExecFunc run inline on a worker, or a plug-in (spec §11) whose
// start/cancel/finalize callbacks hand execution to an external
// scheduler. Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_action_t.c, which
// pairs a function pointer with an atomically-maintained num_tasks
// counter gating Delete.
type Action struct {
	handle    ActionHandle
	job       *Job
	fn        ExecFunc
	pluginImp Plugin
	nodeLocal []byte
	affinity  uint64

	numTasks atomicx.Int64 // tasks currently referencing this action
	deleted  atomicx.Bool
}

func newAction(h ActionHandle, job *Job, fn ExecFunc, p Plugin, attrs ActionAttributes) *Action {
	return &Action{
		handle:    h,
		job:       job,
		fn:        fn,
		pluginImp: p,
		nodeLocal: attrs.NodeLocal,
		affinity:  attrs.Affinity,
	}
}

// Handle returns the stable handle for this Action.
func (a *Action) Handle() ActionHandle { return a.handle }

func (a *Action) isPlugin() bool { return a.pluginImp != nil }

func (a *Action) retain() error {
	if a.deleted.Load() {
		return status.ErrActionDeleted
	}
	a.numTasks.Inc()
	return nil
}

func (a *Action) release() {
	a.numTasks.Dec()
}

func (a *Action) inflight() int64 { return a.numTasks.Load() }

// Delete marks the action so no new task may reference it, then blocks
// until every inflight task referencing it has left the runtime, or
// until ctx is done (spec: action_delete is a blocking call with an
// implicit "wait for num_tasks==0" loop in the original; ctx.Done lets
// callers bound that wait instead of spinning forever). Once num_tasks
// reaches 0, a plug-in action's Finalize fires exactly once (spec §4.5
// "plugin_finalize(action_handle): called at action destruction after
// num_tasks==0").
func (a *Action) Delete(ctx context.Context) error {
	a.deleted.Store(true)
	const pollInterval = 200 * time.Microsecond
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for a.inflight() > 0 {
		select {
		case <-ctx.Done():
			log.Action(a.handle.ID).Warn("delete timed out waiting for inflight tasks to drain",
				zap.Int64("inflight", a.inflight()))
			return status.Timeout
		case <-t.C:
		}
	}
	if a.isPlugin() {
		a.pluginImp.Finalize(a.handle)
	}
	return nil
}
