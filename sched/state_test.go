package sched

import "testing"

func TestValidTransitionsMatchLifecycle(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{Prenatal, Created, true},
		{Created, Scheduled, true},
		{Scheduled, Running, true},
		{Scheduled, Cancelled, true},
		{Scheduled, Retained, true},
		{Running, Completed, true},
		{Running, Error, true},
		{Running, Cancelled, true},
		{Retained, Scheduled, true},
		{Completed, Deleted, true},
		{Cancelled, Deleted, true},
		{Error, Deleted, true},

		{Prenatal, Running, false},
		{Created, Running, false},
		{Completed, Running, false},
		{Deleted, Created, false},
		{Running, Retained, false},
	}
	for _, c := range cases {
		if got := canTransition(c.from, c.to); got != c.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := map[State]bool{Completed: true, Cancelled: true, Error: true}
	for s := Prenatal; s <= Deleted; s++ {
		if s.Terminal() != terminal[s] {
			t.Errorf("State(%d).Terminal() = %v, want %v", s, s.Terminal(), terminal[s])
		}
	}
}

func TestStateString(t *testing.T) {
	if Scheduled.String() != "Scheduled" {
		t.Errorf("String() = %q, want Scheduled", Scheduled.String())
	}
	if State(99).String() != "Unknown" {
		t.Errorf("String() for out-of-range state = %q, want Unknown", State(99).String())
	}
}
