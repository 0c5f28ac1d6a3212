package sched

import (
	"context"
	"sync"

	"github.com/embb-go/taskrt/internal/atomicx"
	"github.com/embb-go/taskrt/status"
)

// Group collects a set of tasks started together so a caller can wait
// for all of them, or for the next one to finish, without holding
// individual task handles. Grounded on
// _examples/original_source/mtapi_c/src/embb_mtapi_group_t.c's inflight
// counter plus completed-task queue, reexpressed over a channel instead
// of a condition variable for WaitAny/WaitAll.
type Group struct {
	handle GroupHandle
	node   *Node

	mu        sync.Mutex
	inflight  int
	completed []*Task

	signal  chan struct{} // closed and replaced each time a task completes
	deleted atomicx.Bool
}

func newGroup(h GroupHandle, node *Node) *Group {
	return &Group{
		handle: h,
		node:   node,
		signal: make(chan struct{}),
	}
}

// Handle returns the stable handle for this Group.
func (g *Group) Handle() GroupHandle { return g.handle }

// Add attaches t to the group; t must not already be running.
func (g *Group) Add(t *Task) error {
	if t.group != nil {
		return status.ErrParameter
	}
	if g.deleted.Load() {
		return status.ErrGroupInvalid
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t.group = g
	g.inflight++
	return nil
}

func (g *Group) taskCompleted(t *Task) {
	g.mu.Lock()
	g.inflight--
	g.completed = append(g.completed, t)
	old := g.signal
	g.signal = make(chan struct{})
	g.mu.Unlock()
	close(old)
}

// WaitAny blocks until at least one previously-unreturned completed task
// is available, or ctx is done, returning that task's handle.
func (g *Group) WaitAny(ctx context.Context) (TaskHandle, error) {
	for {
		g.mu.Lock()
		if len(g.completed) > 0 {
			t := g.completed[0]
			g.completed = g.completed[1:]
			g.mu.Unlock()
			return t.handle, nil
		}
		if g.inflight == 0 {
			g.mu.Unlock()
			return TaskHandle{}, status.ErrGroupInvalid
		}
		wake := g.signal
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return TaskHandle{}, status.Timeout
		}
	}
}

// WaitAll blocks until every task added to the group has completed, or
// ctx is done.
func (g *Group) WaitAll(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.inflight == 0 {
			g.mu.Unlock()
			return nil
		}
		wake := g.signal
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return status.Timeout
		}
	}
}

// Delete marks the group deleted. Existing tasks continue to run to
// completion; the group itself is no longer reusable for Add.
func (g *Group) Delete() error {
	g.deleted.Store(true)
	return nil
}
