package sched

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/internal/log"
	"github.com/embb-go/taskrt/internal/metrics"
	"github.com/embb-go/taskrt/internal/taskqueue"
	"github.com/embb-go/taskrt/status"
)

// Queue serializes and/or parks tasks ahead of dispatch. An ordered
// queue allows at most one in-flight task at a time, releasing the next
// FIFO successor only when the current one completes. A retaining
// queue parks every submission while disabled and replays them, in
// submission order, once re-enabled; a non-retaining queue simply
// rejects submissions while disabled. Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_queue_t.c's
// ordered/retain bitflags and its FIFO of parked task handles, reexpressed
// over internal/taskqueue.Deque instead of the original's fixed-size ring.
type Queue struct {
	handle QueueHandle
	node   *Node
	attrs  QueueAttributes

	enabled atomicx.Bool
	deleted atomicx.Bool

	mu      sync.Mutex
	running bool // true while an ordered queue has a task in flight
	pending *taskqueue.Deque[*Task]

	idLabel string
	logger  *zap.Logger
}

func newQueue(h QueueHandle, node *Node, attrs QueueAttributes) *Queue {
	capacity := int(attrs.Limit)
	if capacity <= 0 {
		capacity = node.attrs.QueueLimit
	}
	idLabel := "queue-" + strconv.FormatUint(uint64(h.ID), 10)
	q := &Queue{
		handle:  h,
		node:    node,
		attrs:   attrs,
		pending: taskqueue.New[*Task](capacity),
		idLabel: idLabel,
		logger:  log.Queue(idLabel),
	}
	q.enabled.Store(true)
	return q
}

// Handle returns the stable handle for this Queue.
func (q *Queue) Handle() QueueHandle { return q.handle }

// submit is called by Task.Enqueue once the task is already Scheduled
// and its action reference already retained.
func (q *Queue) submit(t *Task) error {
	if q.deleted.Load() {
		return status.ErrQueueDeleted
	}
	q.mu.Lock()
	if !q.enabled.Load() {
		if !q.attrs.Retain {
			q.mu.Unlock()
			return status.ErrQueueDisabled
		}
		if !q.pending.PushBack(t) {
			q.mu.Unlock()
			return status.ErrQueueLimit
		}
		metrics.QueueDepth.WithLabelValues(q.idLabel).Inc()
		t.transition(Retained)
		q.mu.Unlock()
		return nil
	}
	if q.attrs.Ordered && q.running {
		if !q.pending.PushBack(t) {
			q.mu.Unlock()
			return status.ErrQueueLimit
		}
		metrics.QueueDepth.WithLabelValues(q.idLabel).Inc()
		q.mu.Unlock()
		return nil
	}
	if q.attrs.Ordered {
		q.running = true
	}
	q.mu.Unlock()
	t.node.dispatch(t)
	return nil
}

// taskCompleted is invoked by Task.finish when a task that went through
// this queue reaches a terminal state; it releases the ordered slot (if
// any) and advances the FIFO.
func (q *Queue) taskCompleted(t *Task) {
	q.mu.Lock()
	if q.attrs.Ordered {
		q.running = false
	}
	q.advanceLocked()
}

// advanceLocked releases queued successors. Called with q.mu held; it
// always unlocks before returning.
//
// Ordered queues release exactly one successor per call (preserving the
// single-in-flight invariant). Non-ordered, retaining queues release
// everything parked, since their only gate was "enabled".
func (q *Queue) advanceLocked() {
	if !q.enabled.Load() || (q.attrs.Ordered && q.running) {
		q.mu.Unlock()
		return
	}
	for {
		next, ok := q.pending.PopFront()
		if !ok {
			q.mu.Unlock()
			return
		}
		metrics.QueueDepth.WithLabelValues(q.idLabel).Dec()

		switch State(next.state.Load()) {
		case Retained:
			next.transition(Scheduled)
		case Scheduled:
			// already the right state, nothing to do
		default:
			// Cancelled (or otherwise terminal) while parked: drop it
			// without claiming an ordered turn or redispatching it.
			continue
		}

		if q.attrs.Ordered {
			q.running = true
		}
		q.mu.Unlock()

		next.node.dispatch(next)

		if q.attrs.Ordered {
			return
		}
		q.mu.Lock()
	}
}

// Enable re-activates the queue, replaying parked tasks in FIFO order
// (spec §4.2 "retaining queue... replays in order on enable").
func (q *Queue) Enable() {
	q.enabled.Store(true)
	q.logger.Info("queue enabled")
	q.mu.Lock()
	q.advanceLocked()
}

// Disable deactivates the queue. Tasks already dispatched continue
// running; new submissions are parked (if Retain) or rejected. A
// non-retaining queue also drains anything already parked in its FIFO
// (e.g. an ordered queue's waiting successors), cancelling each one with
// ErrQueueDisabled rather than leaving it stuck forever with no future
// Enable to replay it (spec §3 invariant (R), §4.4 "Queue disable": "for
// each matching task, either cancels it in-place (non-retaining) or
// moves it to retained_tasks"). A retaining queue instead marks each
// parked task Retained so Enable replays it later.
func (q *Queue) Disable() {
	q.enabled.Store(false)
	q.logger.Info("queue disabled")
	q.mu.Lock()
	var drained []*Task
	for {
		next, ok := q.pending.PopFront()
		if !ok {
			break
		}
		metrics.QueueDepth.WithLabelValues(q.idLabel).Dec()
		drained = append(drained, next)
	}
	q.mu.Unlock()

	for _, t := range drained {
		if q.attrs.Retain {
			t.transition(Retained)
			q.mu.Lock()
			q.pending.PushBack(t)
			metrics.QueueDepth.WithLabelValues(q.idLabel).Inc()
			q.mu.Unlock()
			continue
		}
		if t.transition(Cancelled) {
			t.finish(status.ErrQueueDisabled)
		}
	}
}

// Delete marks the queue deleted; further submissions fail with
// ErrQueueDeleted. Tasks already parked are left untouched by design —
// the caller is expected to have drained or cancelled them first.
func (q *Queue) Delete() error {
	q.deleted.Store(true)
	return nil
}
