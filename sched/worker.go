package sched

import (
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/embb-go/taskrt/internal/log"
	"github.com/embb-go/taskrt/internal/metrics"
	"github.com/embb-go/taskrt/internal/taskqueue"
)

// workItem is one fan-out instance of a Task waiting to run. Tasks with
// NumInstances > 1 are represented as one workItem per instance, spread
// across workers for data parallelism, rather than as a single queue
// entry re-run in a loop.
type workItem struct {
	task     *Task
	instance uint32
}

// worker is one OS-thread-equivalent goroutine owning a private
// (affinity-pinned, never stolen) and public (stealable) deque per priority
// level. Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_scheduler_t.c's
// per-worker private/public queue pair and pick_next_task modes,
// reexpressed over internal/taskqueue.Deque per priority level instead
// of the original's single intrusive list walked with a priority
// comparator.
type worker struct {
	node    *Node
	idx     int
	coreNum int

	private []*taskqueue.Deque[workItem] // indexed by priority, index 0 is highest
	public  []*taskqueue.Deque[workItem] // indexed by priority, stealable

	// spinGate paces the busy-poll-to-sleep transition of spec.md §4.4's
	// "mandatory small timeout": a burst of SpinBudget allowances drains
	// immediately (the fast path, no task found yet but one may arrive any
	// instant), then refills at one allowance per SleepTimeout, so a
	// persistently idle worker settles into sleeping roughly every
	// SleepTimeout instead of hot-spinning indefinitely.
	spinGate *rate.Limiter

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	logger *zap.Logger
}

func newWorker(node *Node, idx, coreNum, priorities, capacity int) *worker {
	w := &worker{
		node:     node,
		idx:      idx,
		coreNum:  coreNum,
		private:  make([]*taskqueue.Deque[workItem], priorities),
		public:   make([]*taskqueue.Deque[workItem], priorities),
		spinGate: rate.NewLimiter(rate.Every(node.attrs.SleepTimeout), node.attrs.SpinBudget),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   log.Worker(idx),
	}
	for p := 0; p < priorities; p++ {
		w.private[p] = taskqueue.New[workItem](capacity)
		w.public[p] = taskqueue.New[workItem](capacity)
	}
	return w
}

func (w *worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// pushPublic enqueues a work item onto this worker's stealable deque at
// the given priority level (clamped into range).
func (w *worker) pushPublic(priority int, it workItem) bool {
	priority = w.clampPriority(priority)
	ok := w.public[priority].PushBack(it)
	if ok {
		w.signal()
	}
	return ok
}

func (w *worker) clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p >= len(w.public) {
		return len(w.public) - 1
	}
	return p
}

func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		it, ok := w.pickNextTask()
		if ok {
			metrics.WorkersBusy.Inc()
			w.logger.Debug("dispatching instance",
				zap.String("trace_id", it.task.traceID),
				zap.Uint32("instance", it.instance),
			)
			it.task.runInstance(w, it.instance)
			metrics.WorkersBusy.Dec()
			continue
		}

		if w.spinGate.Allow() {
			runtime.Gosched()
			continue
		}
		select {
		case <-w.wake:
		case <-w.stop:
			return
		case <-time.After(w.node.attrs.SleepTimeout):
		}
	}
}

// pickNextTask implements both scheduling modes of spec §4.4.
func (w *worker) pickNextTask() (workItem, bool) {
	switch w.node.attrs.PickMode {
	case ModeLF:
		return w.pickLocalityFirst()
	default:
		return w.pickVeryHighPriorityFirst()
	}
}

// pickVeryHighPriorityFirst exhausts every worker's private and public
// deque at one priority level, highest first (index 0), before moving to
// the next-lower level — no worker starves a high-priority task behind a
// lower one elsewhere. Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_scheduler_t.c's
// embb_mtapi_scheduler_get_next_task_vhpf, which walks priority indices
// from 0 upward and only advances after exhausting one everywhere.
func (w *worker) pickVeryHighPriorityFirst() (workItem, bool) {
	levels := len(w.private)
	for p := 0; p < levels; p++ {
		if it, ok := w.private[p].PopFront(); ok {
			return it, true
		}
		if it, ok := w.public[p].PopFront(); ok {
			return it, true
		}
		for _, other := range w.node.workers {
			if other == w {
				continue
			}
			if it, ok := other.public[p].PopBack(); ok {
				metrics.StealTotal.WithLabelValues(w.label()).Inc()
				return it, true
			}
		}
	}
	return workItem{}, false
}

// pickLocalityFirst drains this worker's own deques across all priority
// levels, highest first, before ever looking at another worker's queue,
// trading strict priority ordering for cache locality. Grounded on the
// same source file's embb_mtapi_scheduler_get_next_task_lf.
func (w *worker) pickLocalityFirst() (workItem, bool) {
	levels := len(w.private)
	for p := 0; p < levels; p++ {
		if it, ok := w.private[p].PopFront(); ok {
			return it, true
		}
	}
	for p := 0; p < levels; p++ {
		if it, ok := w.public[p].PopFront(); ok {
			return it, true
		}
	}
	for p := 0; p < levels; p++ {
		for _, other := range w.node.workers {
			if other == w {
				continue
			}
			if it, ok := other.public[p].PopBack(); ok {
				metrics.StealTotal.WithLabelValues(w.label()).Inc()
				return it, true
			}
		}
	}
	return workItem{}, false
}

func (w *worker) label() string {
	return "worker-" + strconv.Itoa(w.idx)
}
