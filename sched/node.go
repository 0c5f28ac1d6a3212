package sched

import (
	"context"
	"math/bits"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/internal/log"
	"github.com/embb-go/taskrt/pool"
	"github.com/embb-go/taskrt/status"
)

// Node is the runtime singleton: it owns every object pool (Action,
// Job, Task, Queue, Group) and the worker goroutines that execute
// tasks. Exactly one Node may be initialized at a time, mirroring
// _examples/Guti2010-Proyecto-SO/internal/sched.Manager's single
// package-level registry, generalized from named HTTP worker pools to
// the full job/action/task/queue/group model.
type Node struct {
	attrs   Attributes
	id      string
	log     *zap.Logger
	workers []*worker

	actions *pool.ObjectPool[*Action]
	jobs    *pool.ObjectPool[*Job]
	tasks   *pool.ObjectPool[*Task]
	queues  *pool.ObjectPool[*Queue]
	groups  *pool.ObjectPool[*Group]

	jobKeyMu sync.Mutex
	jobByKey map[jobKey]JobHandle

	dispatchCounter atomicx.Uint64
}

type jobKey struct {
	domain uint32
	id     uint32
}

var (
	globalMu sync.Mutex
	global   *Node
)

// Init constructs and starts the singleton Node. Returns
// status.ErrNodeInitialized if a Node is already running (spec §4 "at
// most one Node may be initialized at a time").
func Init(opts ...NodeOption) (*Node, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return nil, status.ErrNodeInitialized
	}

	attrs := defaultAttributes()
	for _, o := range opts {
		o(&attrs)
	}

	n := &Node{
		attrs:    attrs,
		id:       uuid.NewString(),
		log:      log.Node(),
		actions:  pool.New[*Action](attrs.MaxActions),
		jobs:     pool.New[*Job](attrs.MaxActions),
		tasks:    pool.New[*Task](attrs.MaxTasks),
		queues:   pool.New[*Queue](attrs.MaxQueues),
		groups:   pool.New[*Group](attrs.MaxGroups),
		jobByKey: make(map[jobKey]JobHandle),
	}

	n.startWorkers()

	global = n
	n.log.Info("node initialized",
		zap.String("node_id", n.id),
		zap.Int("workers", len(n.workers)),
		zap.String("pick_mode", pickModeLabel(attrs.PickMode)),
	)
	return n, nil
}

func pickModeLabel(m PickMode) string {
	if m == ModeLF {
		return "locality_first"
	}
	return "very_high_priority_first"
}

func (n *Node) startWorkers() {
	maxCPU := runtime.NumCPU()
	count := bits.OnesCount64(n.attrs.CoreAffinity)
	if count == 0 || count > maxCPU {
		count = maxCPU
	}
	n.workers = make([]*worker, 0, count)
	core := 0
	for len(n.workers) < count && core < 64 {
		if n.attrs.CoreAffinity&(1<<uint(core)) != 0 {
			w := newWorker(n, len(n.workers), core, n.attrs.MaxPriorities, n.attrs.MaxTasks)
			n.workers = append(n.workers, w)
		}
		core++
	}
	for _, w := range n.workers {
		go func(w *worker) {
			defer log.Worker(w.idx).Sync()
			w.run()
		}(w)
	}
}

func (n *Node) eligibleWorkers(affinity uint64) []*worker {
	if affinity == 0 {
		return n.workers
	}
	eligible := make([]*worker, 0, len(n.workers))
	for _, w := range n.workers {
		if affinity&(1<<uint(w.coreNum)) != 0 {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return n.workers
	}
	return eligible
}

// dispatch fans a task's instances out across eligible workers,
// round-robin, honoring its priority and the intersection of its
// action/task/ordered-queue affinity attributes (spec §4.4).
func (n *Node) dispatch(t *Task) {
	affinity := t.effectiveAffinity()
	eligible := n.eligibleWorkers(affinity)
	total := uint32(t.instancesTodo.Load())
	for i := uint32(0); i < total; i++ {
		pick := int(n.dispatchCounter.Inc()-1) % len(eligible)
		w := eligible[pick]
		it := workItem{task: t, instance: i}
		if affinity == 0 {
			w.pushPublic(int(t.attrs.Priority), it)
			continue
		}
		// An affinity-restricted instance goes to the private deque, which
		// no other worker steals from.
		if w.private[w.clampPriority(int(t.attrs.Priority))].PushBack(it) {
			w.signal()
		}
	}
}

// Finalize stops every worker and releases the singleton slot. Pending
// tasks are abandoned mid-flight; callers are expected to have drained
// or cancelled their work first (spec §4 "node_finalize").
//
// All workers share one window of ten SleepTimeouts to exit their run
// loops; each worker still running when that window closes contributes
// one status.Timeout to the aggregate returned, rather than the call
// hanging on a stuck goroutine.
func (n *Node) Finalize() error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != n {
		return status.ErrNodeNotInit
	}
	for _, w := range n.workers {
		close(w.stop)
	}

	var joinErrs *multierror.Error
	deadline := time.NewTimer(n.attrs.SleepTimeout * 10)
	defer deadline.Stop()
	expired := false
	for _, w := range n.workers {
		if !expired {
			select {
			case <-w.done:
				continue
			case <-deadline.C:
				expired = true
			}
		}
		select {
		case <-w.done:
		default:
			joinErrs = multierror.Append(joinErrs, status.Timeout)
		}
	}

	global = nil
	n.log.Info("node finalized", zap.String("node_id", n.id))
	return joinErrs.ErrorOrNil()
}

// Info is a point-in-time snapshot returned by GetInfo.
type Info struct {
	ID         string
	NumWorkers int
	MaxActions int
	MaxTasks   int
	MaxQueues  int
	MaxGroups  int
	PickMode   PickMode
}

// GetInfo reports static and slowly-changing configuration (spec §6
// node_get_attribute, collapsed into one snapshot struct rather than a
// key-by-key accessor).
func (n *Node) GetInfo() Info {
	return Info{
		ID:         n.id,
		NumWorkers: len(n.workers),
		MaxActions: n.attrs.MaxActions,
		MaxTasks:   n.attrs.MaxTasks,
		MaxQueues:  n.attrs.MaxQueues,
		MaxGroups:  n.attrs.MaxGroups,
		PickMode:   n.attrs.PickMode,
	}
}

// CreateAction registers fn as the executable body of a new Action
// under the (domain, jobID) job key, creating that Job if it does not
// yet exist.
func (n *Node) CreateAction(domain, jobID uint32, fn ExecFunc, attrs ActionAttributes) (ActionHandle, error) {
	return n.createAction(domain, jobID, fn, nil, attrs)
}

// CreatePluginAction registers a Plugin-backed action (spec §11).
func (n *Node) CreatePluginAction(domain, jobID uint32, p Plugin, attrs ActionAttributes) (ActionHandle, error) {
	return n.createAction(domain, jobID, nil, p, attrs)
}

func (n *Node) createAction(domain, jobID uint32, fn ExecFunc, p Plugin, attrs ActionAttributes) (ActionHandle, error) {
	h, ok := n.actions.Allocate()
	if !ok {
		return ActionHandle{}, pool.ErrExhausted("action", status.ErrActionLimit)
	}
	ah := ActionHandle(h)

	job, err := n.jobFor(domain, jobID)
	if err != nil {
		n.actions.Free(h)
		return ActionHandle{}, err
	}
	if len(job.actions) >= n.attrs.MaxActionsPerJob {
		n.actions.Free(h)
		return ActionHandle{}, status.ErrActionLimit
	}

	a := newAction(ah, job, fn, p, attrs)
	*n.actions.Get(h) = a
	_ = job.addAction(a)
	return ah, nil
}

func (n *Node) jobFor(domain, jobID uint32) (*Job, error) {
	key := jobKey{domain: domain, id: jobID}

	n.jobKeyMu.Lock()
	defer n.jobKeyMu.Unlock()
	if jh, ok := n.jobByKey[key]; ok {
		return *n.jobs.Get(pool.Handle(jh)), nil
	}
	h, ok := n.jobs.Allocate()
	if !ok {
		return nil, pool.ErrExhausted("job", status.ErrJobInvalid)
	}
	jh := JobHandle(h)
	j := newJob(jh, domain, jobID)
	*n.jobs.Get(h) = j
	n.jobByKey[key] = jh
	return j, nil
}

// GetJob looks up the job registered under (domain, jobID), if any.
func (n *Node) GetJob(domain, jobID uint32) (JobHandle, error) {
	n.jobKeyMu.Lock()
	defer n.jobKeyMu.Unlock()
	jh, ok := n.jobByKey[jobKey{domain: domain, id: jobID}]
	if !ok {
		return JobHandle{}, status.ErrJobInvalid
	}
	return jh, nil
}

// DeleteAction removes a from its job and blocks until it has no
// inflight tasks left, or ctx is done.
func (n *Node) DeleteAction(ctx context.Context, h ActionHandle) error {
	a := n.actions.Get(pool.Handle(h))
	if a == nil || *a == nil {
		return status.ErrActionInvalid
	}
	action := *a
	if err := action.Delete(ctx); err != nil {
		return err
	}
	action.job.removeAction(action)
	n.actions.Free(pool.Handle(h))
	return nil
}

// CreateQueue allocates a new Queue.
func (n *Node) CreateQueue(attrs QueueAttributes) (QueueHandle, error) {
	h, ok := n.queues.Allocate()
	if !ok {
		return QueueHandle{}, pool.ErrExhausted("queue", status.ErrQueueLimit)
	}
	qh := QueueHandle(h)
	*n.queues.Get(h) = newQueue(qh, n, attrs)
	return qh, nil
}

func (n *Node) getQueue(h QueueHandle) (*Queue, error) {
	q := n.queues.Get(pool.Handle(h))
	if q == nil || *q == nil {
		return nil, status.ErrQueueInvalid
	}
	return *q, nil
}

// EnableQueue and DisableQueue toggle a Queue's accept-new-work gate.
func (n *Node) EnableQueue(h QueueHandle) error {
	q, err := n.getQueue(h)
	if err != nil {
		return err
	}
	q.Enable()
	return nil
}

func (n *Node) DisableQueue(h QueueHandle) error {
	q, err := n.getQueue(h)
	if err != nil {
		return err
	}
	q.Disable()
	return nil
}

// DeleteQueue marks a Queue deleted and releases its pool slot.
func (n *Node) DeleteQueue(h QueueHandle) error {
	q, err := n.getQueue(h)
	if err != nil {
		return err
	}
	if err := q.Delete(); err != nil {
		return err
	}
	n.queues.Free(pool.Handle(h))
	return nil
}

// CreateGroup allocates a new Group.
func (n *Node) CreateGroup() (GroupHandle, error) {
	h, ok := n.groups.Allocate()
	if !ok {
		return GroupHandle{}, pool.ErrExhausted("group", status.ErrGroupLimit)
	}
	gh := GroupHandle(h)
	*n.groups.Get(h) = newGroup(gh, n)
	return gh, nil
}

func (n *Node) getGroup(h GroupHandle) (*Group, error) {
	g := n.groups.Get(pool.Handle(h))
	if g == nil || *g == nil {
		return nil, status.ErrGroupInvalid
	}
	return *g, nil
}

func (n *Node) getAction(h ActionHandle) (*Action, error) {
	a := n.actions.Get(pool.Handle(h))
	if a == nil || *a == nil {
		return nil, status.ErrActionInvalid
	}
	return *a, nil
}

// StartTask creates a task bound directly to action and immediately
// schedules it (spec §4.1 task_start).
func (n *Node) StartTask(action ActionHandle, args []byte, attrs TaskAttributes, groups ...GroupHandle) (TaskHandle, error) {
	return n.newTaskOn(action, nil, args, attrs, groups, false, QueueHandle{})
}

// StartTaskOnJob creates a task and lets the job load-balance it to
// whichever registered action currently has the fewest inflight tasks.
func (n *Node) StartTaskOnJob(job JobHandle, args []byte, attrs TaskAttributes, groups ...GroupHandle) (TaskHandle, error) {
	j := n.jobs.Get(pool.Handle(job))
	if j == nil || *j == nil {
		return TaskHandle{}, status.ErrJobInvalid
	}
	action, err := (*j).pickAction()
	if err != nil {
		return TaskHandle{}, err
	}
	return n.newTaskOn(action.handle, *j, args, attrs, groups, false, QueueHandle{})
}

// EnqueueTask creates a task bound to action and submits it to queue
// instead of scheduling it directly (spec §4.2 task_enqueue).
func (n *Node) EnqueueTask(action ActionHandle, queue QueueHandle, args []byte, attrs TaskAttributes, groups ...GroupHandle) (TaskHandle, error) {
	return n.newTaskOn(action, nil, args, attrs, groups, true, queue)
}

func (n *Node) newTaskOn(actionHandle ActionHandle, job *Job, args []byte, attrs TaskAttributes, groups []GroupHandle, enqueue bool, queueHandle QueueHandle) (TaskHandle, error) {
	action, err := n.getAction(actionHandle)
	if err != nil {
		return TaskHandle{}, err
	}

	h, ok := n.tasks.Allocate()
	if !ok {
		return TaskHandle{}, pool.ErrExhausted("task", status.ErrTaskLimit)
	}
	th := TaskHandle(h)
	t := newTask(th, n, action, job, args, attrs)
	*n.tasks.Get(h) = t

	for _, gh := range groups {
		g, err := n.getGroup(gh)
		if err != nil {
			continue
		}
		_ = g.Add(t)
	}

	if enqueue {
		q, err := n.getQueue(queueHandle)
		if err != nil {
			return TaskHandle{}, err
		}
		if err := t.Enqueue(q); err != nil {
			return th, err
		}
		return th, nil
	}
	if err := t.Start(); err != nil {
		return th, err
	}
	return th, nil
}

// GetTask resolves a TaskHandle to its live Task, for Wait/Cancel/State
// access by callers that only hold the handle.
func (n *Node) GetTask(h TaskHandle) (*Task, error) {
	t := n.tasks.Get(pool.Handle(h))
	if t == nil || *t == nil {
		return nil, status.ErrTaskInvalid
	}
	return *t, nil
}

// GetGroup resolves a GroupHandle to its live Group.
func (n *Node) GetGroup(h GroupHandle) (*Group, error) {
	return n.getGroup(h)
}
