package scheduler

import (
	"sort"
	"time"
)

// Manual is a virtual-time Scheduler. Nothing runs until the caller posts or
// advances time, and everything runs on the caller's goroutine, so a test can
// step a duel deterministically. Manual is not safe for concurrent use.
//
// Post runs to completion: a continuation posted from outside runs
// immediately, one posted from inside a running continuation runs right after
// it.
type Manual struct {
	now      time.Time
	seq      int
	tasks    []*manualTask
	draining bool
}

// NewManual returns a scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTask struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (m *Manual) Post(fn func()) {
	m.push(m.now, fn)
	m.drain(m.now)
}

func (m *Manual) After(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	return m.push(m.now.Add(d), fn)
}

func (m *Manual) Now() time.Time {
	return m.now
}

// Advance moves virtual time forward by d, running every continuation that
// falls due, in time order, at its due time.
func (m *Manual) Advance(d time.Duration) {
	m.drain(m.now.Add(d))
}

// Pending reports how many continuations are scheduled and not stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) push(at time.Time, fn func()) *manualTask {
	m.seq++
	t := &manualTask{at: at, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if !m.tasks[i].at.Equal(m.tasks[j].at) {
			return m.tasks[i].at.Before(m.tasks[j].at)
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	return t
}

func (m *Manual) drain(until time.Time) {
	if m.draining {
		return
	}
	m.draining = true
	defer func() { m.draining = false }()

	for len(m.tasks) > 0 && !m.tasks[0].at.After(until) {
		t := m.tasks[0]
		m.tasks = m.tasks[1:]
		if t.stopped {
			continue
		}
		t.stopped = true
		if t.at.After(m.now) {
			m.now = t.at
		}
		t.fn()
	}
	if until.After(m.now) {
		m.now = until
	}
}
