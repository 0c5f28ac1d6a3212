package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newWorkerPair(t *testing.T, mode PickMode) (*Node, *worker, *worker) {
	t.Helper()
	n := &Node{attrs: Attributes{
		PickMode:     mode,
		SpinBudget:   4,
		SleepTimeout: 1,
	}}
	w0 := newWorker(n, 0, 0, 2, 8)
	w1 := newWorker(n, 1, 1, 2, 8)
	n.workers = []*worker{w0, w1}
	return n, w0, w1
}

func TestWorkerPrefersOwnPrivateQueue(t *testing.T) {
	_, w0, _ := newWorkerPair(t, ModeVHPF)

	want := &Task{}
	w0.private[0].PushBack(workItem{task: want, instance: 0})
	w0.public[0].PushBack(workItem{task: &Task{}, instance: 0})

	it, ok := w0.pickNextTask()
	require.True(t, ok)
	require.Same(t, want, it.task)
}

func TestWorkerStealsFromAnotherWorkersPublicQueueBack(t *testing.T) {
	_, w0, w1 := newWorkerPair(t, ModeVHPF)

	want := &Task{}
	w1.public[0].PushBack(workItem{task: want, instance: 0})

	it, ok := w0.pickNextTask()
	require.True(t, ok)
	require.Same(t, want, it.task)
	require.Equal(t, 0, w1.public[0].Len(), "stolen item must be removed from the victim's queue")
}

func TestWorkerVHPFExhaustsHighPriorityAcrossWorkersBeforeLow(t *testing.T) {
	_, w0, w1 := newWorkerPair(t, ModeVHPF)

	low := &Task{}
	high := &Task{}
	w0.public[1].PushBack(workItem{task: low, instance: 0})  // low priority, own queue
	w1.public[0].PushBack(workItem{task: high, instance: 0}) // high priority, other worker

	it, ok := w0.pickNextTask()
	require.True(t, ok)
	require.Same(t, high, it.task, "VHPF must drain the high-priority level everywhere before falling to low priority locally")
}

func TestWorkerLocalityFirstPrefersOwnLowPriorityOverStealingHigh(t *testing.T) {
	_, w0, w1 := newWorkerPair(t, ModeLF)

	own := &Task{}
	other := &Task{}
	w0.public[1].PushBack(workItem{task: own, instance: 0})  // own, low priority
	w1.public[0].PushBack(workItem{task: other, instance: 0}) // other worker, high priority

	it, ok := w0.pickNextTask()
	require.True(t, ok)
	require.Same(t, own, it.task, "locality-first must drain all of its own queues before ever stealing")
}

func TestWorkerPickNextTaskEmptyReturnsFalse(t *testing.T) {
	_, w0, _ := newWorkerPair(t, ModeVHPF)
	_, ok := w0.pickNextTask()
	require.False(t, ok)
}
