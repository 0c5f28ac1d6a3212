package taskqueue_test

import (
	"testing"

	"github.com/embb-go/taskrt/internal/taskqueue"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	d := taskqueue.New[int](0)
	require.True(t, d.PushBack(1))
	require.True(t, d.PushBack(2))
	require.True(t, d.PushBack(3))

	v, ok := d.PopFront()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = d.PopFront()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestStealFromBack(t *testing.T) {
	d := taskqueue.New[int](0)
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)

	v, ok := d.PopBack()
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestPushFrontGivesImmediatePriority(t *testing.T) {
	d := taskqueue.New[int](0)
	d.PushBack(1)
	d.PushFront(0)

	v, ok := d.PopFront()
	require.True(t, ok)
	require.Equal(t, 0, v)
}

func TestCapacityBound(t *testing.T) {
	d := taskqueue.New[int](2)
	require.True(t, d.PushBack(1))
	require.True(t, d.PushBack(2))
	require.False(t, d.PushBack(3))
	require.Equal(t, 2, d.Len())
}

func TestEmptyPopReportsFalse(t *testing.T) {
	d := taskqueue.New[int](0)
	_, ok := d.PopFront()
	require.False(t, ok)
	_, ok = d.PopBack()
	require.False(t, ok)
}
