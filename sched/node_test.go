package sched

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embb-go/taskrt/status"
)

func TestInitRejectsSecondConcurrentNode(t *testing.T) {
	n := newTestNode(t)
	require.NotEmpty(t, n.GetInfo().ID)

	_, err := Init()
	require.ErrorIs(t, err, status.ErrNodeInitialized)
}

func TestFinalizeThenFinalizeAgainFails(t *testing.T) {
	n, err := Init()
	require.NoError(t, err)
	require.NoError(t, n.Finalize())
	require.ErrorIs(t, n.Finalize(), status.ErrNodeNotInit)
}

func TestGetInfoReflectsAttributes(t *testing.T) {
	n := newTestNode(t, WithMaxTasks(128), WithMaxActions(4), WithPickMode(ModeLF))
	info := n.GetInfo()
	require.Equal(t, 128, info.MaxTasks)
	require.Equal(t, 4, info.MaxActions)
	require.Equal(t, ModeLF, info.PickMode)
	require.Positive(t, info.NumWorkers)
}

func TestActionLimitIsEnforced(t *testing.T) {
	n := newTestNode(t, WithMaxActions(1), WithMaxActionsPerJob(1))

	_, err := n.CreateAction(9, 1, func(*TaskContext, []byte, []byte) {}, ActionAttributes{})
	require.NoError(t, err)

	_, err = n.CreateAction(9, 2, func(*TaskContext, []byte, []byte) {}, ActionAttributes{})
	require.ErrorIs(t, err, status.ErrActionLimit)
}

func TestStartTaskOnJobLoadBalances(t *testing.T) {
	n := newTestNode(t)

	slow, err := n.CreateAction(4, 1, func(ctx *TaskContext, args, result []byte) {}, ActionAttributes{})
	require.NoError(t, err)

	fast, err := n.CreateAction(4, 1, func(ctx *TaskContext, args, result []byte) {}, ActionAttributes{})
	require.NoError(t, err)

	// Simulate "slow" already having an inflight task, without actually
	// running one, so pickAction's choice is deterministic.
	slowAction, err := n.getAction(slow)
	require.NoError(t, err)
	require.NoError(t, slowAction.retain())
	defer slowAction.release()

	jobHandle, err := n.GetJob(4, 1)
	require.NoError(t, err)

	th, err := n.StartTaskOnJob(jobHandle, nil, TaskAttributes{})
	require.NoError(t, err)
	task, err := n.GetTask(th)
	require.NoError(t, err)
	require.Equal(t, fast, task.action.handle, "job must route to the less busy action")
}
