package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestConcurrentStartAcrossActionsAndJobs fans many goroutines out across
// several independently-registered actions, each under its own job, starting tasks
// concurrently via errgroup, and checks every task reaches Completed with
// its action body run exactly once. This is the multi-submitter scenario
// spec §8's larger seeds exercise: many concurrent callers hammering the
// same Node rather than one goroutine driving everything serially.
func TestConcurrentStartAcrossActionsAndJobs(t *testing.T) {
	n := newTestNode(t, WithMaxTasks(2048), WithMaxActions(16))

	const numActions = 4
	const tasksPerAction = 50

	var ran int64
	actions := make([]ActionHandle, numActions)
	for i := 0; i < numActions; i++ {
		a, err := n.CreateAction(1, uint32(i), func(ctx *TaskContext, args, result []byte) {
			atomic.AddInt64(&ran, 1)
		}, ActionAttributes{})
		require.NoError(t, err)
		actions[i] = a
	}

	var g errgroup.Group
	handles := make([]TaskHandle, numActions*tasksPerAction)
	for i := 0; i < numActions; i++ {
		i := i
		for j := 0; j < tasksPerAction; j++ {
			idx := i*tasksPerAction + j
			g.Go(func() error {
				th, err := n.StartTask(actions[i], nil, TaskAttributes{})
				if err != nil {
					return err
				}
				handles[idx] = th
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, th := range handles {
		task, err := n.GetTask(th)
		require.NoError(t, err)
		require.NoError(t, task.Wait(ctx))
		require.Equal(t, Completed, task.State())
	}
	require.EqualValues(t, numActions*tasksPerAction, atomic.LoadInt64(&ran))
}

// TestConcurrentJobLoadBalanceUnderContention starts many tasks on a single
// job from concurrent goroutines and checks the load balancer spread them
// across every registered action rather than pinning them all to one.
func TestConcurrentJobLoadBalanceUnderContention(t *testing.T) {
	n := newTestNode(t, WithMaxTasks(2048), WithMaxActions(16))

	const numActions = 3
	const numTasks = 90

	counts := make([]int64, numActions)
	var jobHandle JobHandle
	for i := 0; i < numActions; i++ {
		i := i
		a, err := n.CreateAction(2, 0, func(ctx *TaskContext, args, result []byte) {
			atomic.AddInt64(&counts[i], 1)
		}, ActionAttributes{})
		require.NoError(t, err)
		if i == 0 {
			jobHandle, err = n.GetJob(2, 0)
			require.NoError(t, err)
		}
		_ = a
	}

	var g errgroup.Group
	handles := make([]TaskHandle, numTasks)
	for j := 0; j < numTasks; j++ {
		idx := j
		g.Go(func() error {
			th, err := n.StartTaskOnJob(jobHandle, nil, TaskAttributes{})
			if err != nil {
				return err
			}
			handles[idx] = th
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, th := range handles {
		task, err := n.GetTask(th)
		require.NoError(t, err)
		require.NoError(t, task.Wait(ctx))
	}

	for i, c := range counts {
		require.Greaterf(t, c, int64(0), "action %d never got picked by the load balancer", i)
	}
}
