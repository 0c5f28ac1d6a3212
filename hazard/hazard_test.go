package hazard_test

import (
	"sync"
	"testing"
	"time"

	"github.com/embb-go/taskrt/hazard"
	"github.com/stretchr/testify/require"
)

// Seed scenario #3: thread A guards p, thread B retires p, A unguards,
// B's subsequent retire flush frees it exactly once, after the unguard.
func TestRetireDeferredUntilUnguard(t *testing.T) {
	var released []int
	var mu sync.Mutex
	hp := hazard.New[int](func(p int) {
		mu.Lock()
		released = append(released, p)
		mu.Unlock()
	}, 0, 2, 4)
	defer hp.Close()

	a, err := hp.Acquire()
	require.NoError(t, err)
	b, err := hp.Acquire()
	require.NoError(t, err)

	a.Guard(0, 42)

	bDone := make(chan struct{})
	go func() {
		b.Retire(42)
		close(bDone)
	}()
	<-bDone

	mu.Lock()
	require.Empty(t, released, "p must not be released while A guards it")
	mu.Unlock()

	a.Unguard(0)
	b.Retire(999) // a later retire on B flushes B's deferred list

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{42, 999}, released)
}

func TestRetireImmediateWhenUnguarded(t *testing.T) {
	var released []int
	hp := hazard.New[int](func(p int) { released = append(released, p) }, 0, 1, 2)
	defer hp.Close()

	a, err := hp.Acquire()
	require.NoError(t, err)
	a.Retire(7)
	require.Equal(t, []int{7}, released)
}

func TestAcquireExhaustion(t *testing.T) {
	hp := hazard.New[int](func(int) {}, 0, 1, 2)
	defer hp.Close()

	_, err := hp.Acquire()
	require.NoError(t, err)
	_, err = hp.Acquire()
	require.NoError(t, err)
	_, err = hp.Acquire()
	require.Error(t, err)
}

func TestReleaseFreesAccessorRowForReuse(t *testing.T) {
	hp := hazard.New[int](func(int) {}, 0, 1, 1)
	defer hp.Close()

	a, err := hp.Acquire()
	require.NoError(t, err)
	a.Release()

	_, err = hp.Acquire()
	require.NoError(t, err)
}

func TestCloseFreesAllRetiredEntries(t *testing.T) {
	var released []int
	var mu sync.Mutex
	hp := hazard.New[int](func(p int) {
		mu.Lock()
		released = append(released, p)
		mu.Unlock()
	}, 0, 1, 2)

	a, err := hp.Acquire()
	require.NoError(t, err)
	b, err := hp.Acquire()
	require.NoError(t, err)

	a.Guard(0, 1)
	b.Retire(1) // deferred: still guarded by a

	mu.Lock()
	require.Empty(t, released)
	mu.Unlock()

	hp.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1}, released)
}

func TestMaxRetiredObjectCount(t *testing.T) {
	require.Equal(t, 2*3*3, hazard.MaxRetiredObjectCount(2, 3))
}

func TestGuardAndCheckLoopIsRaceFree(t *testing.T) {
	hp := hazard.New[int](func(int) {}, 0, 1, 8)
	defer hp.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		a, err := hp.Acquire()
		if err != nil {
			return
		}
		defer a.Release()
		for i := 0; i < 1000; i++ {
			a.Guard(0, i)
			a.Unguard(0)
		}
	}()

	b, err := hp.Acquire()
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		b.Retire(i)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}
