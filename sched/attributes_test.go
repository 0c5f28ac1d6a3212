package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultAttributes(t *testing.T) {
	a := defaultAttributes()
	require.Equal(t, ModeVHPF, a.PickMode)
	require.Positive(t, a.MaxTasks)
	require.Positive(t, a.SpinBudget)
}

func TestNodeOptionsOverrideDefaults(t *testing.T) {
	a := defaultAttributes()
	for _, o := range []NodeOption{
		WithMaxActions(10),
		WithMaxTasks(20),
		WithPickMode(ModeLF),
		WithSpinBudget(7),
		WithSleepTimeout(3 * time.Millisecond),
		WithCoreAffinity(0b11),
	} {
		o(&a)
	}
	require.Equal(t, 10, a.MaxActions)
	require.Equal(t, 20, a.MaxTasks)
	require.Equal(t, ModeLF, a.PickMode)
	require.Equal(t, 7, a.SpinBudget)
	require.Equal(t, 3*time.Millisecond, a.SleepTimeout)
	require.EqualValues(t, 0b11, a.CoreAffinity)
}
