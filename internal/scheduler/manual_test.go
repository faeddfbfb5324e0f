package scheduler

import (
	"testing"
	"time"
)

func TestManualRunsTimersInDueOrder(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.After(2*time.Second, func() { order = append(order, "b") })
	m.After(time.Second, func() { order = append(order, "a") })
	m.After(3*time.Second, func() { order = append(order, "c") })

	m.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order after 2s: %v", order)
	}
	if got := m.Now(); !got.Equal(time.Unix(2, 0)) {
		t.Fatalf("expected virtual time 2s, got %v", got)
	}
	m.Advance(time.Second)
	if len(order) != 3 {
		t.Fatalf("expected c to run, got %v", order)
	}
}

func TestManualPostInsideContinuationRunsAfterIt(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.Post(func() {
		m.Post(func() { order = append(order, "inner") })
		order = append(order, "outer")
	})
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestManualChainedTimersFireWithinOneAdvance(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		m.After(time.Second, tick)
	}
	m.After(time.Second, tick)

	m.Advance(5 * time.Second)
	if ticks != 5 {
		t.Fatalf("expected 5 ticks, got %d", ticks)
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ran := false
	timer := m.After(time.Second, func() { ran = true })
	if !timer.Stop() {
		t.Fatalf("expected Stop to report true")
	}
	if timer.Stop() {
		t.Fatalf("expected second Stop to report false")
	}
	m.Advance(time.Minute)
	if ran {
		t.Fatalf("stopped continuation ran")
	}
	if m.Pending() != 0 {
		t.Fatalf("expected no pending continuations, got %d", m.Pending())
	}
}
