package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/duel"
	"chase-duel-service/internal/scheduler"
)

// Duel is a running duel: its session, the loop it runs on and the
// subscribers watching it.
type Duel struct {
	id      string
	mode    domain.Mode
	loop    *scheduler.Loop
	session *duel.Session

	mu          sync.Mutex
	closed      bool
	subscribers map[chan domain.Snapshot]struct{}
	// idle exits the duel when nothing happens for the idle timeout.
	idle      clockwork.Timer
	refreshed time.Time
}

func newDuel(id string, mode domain.Mode, loop *scheduler.Loop) *Duel {
	return &Duel{
		id:          id,
		mode:        mode,
		loop:        loop,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
}

// NewDuel is exported for infrastructure layers that need to register a duel
// without running it, such as repository tests.
func NewDuel(id string, mode domain.Mode) *Duel {
	return newDuel(id, mode, nil)
}

// ID returns the duel ID.
func (d *Duel) ID() string { return d.id }

// Mode returns the duel mode.
func (d *Duel) Mode() domain.Mode { return d.mode }

// Snapshot returns the latest broadcast state.
func (d *Duel) Snapshot() domain.Snapshot {
	return d.session.Snapshot()
}

func (d *Duel) subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	d.mu.Lock()
	ch <- d.session.Snapshot()
	if d.closed {
		close(ch)
		d.mu.Unlock()
		return ch, func() {}
	}
	d.subscribers[ch] = struct{}{}
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		if _, ok := d.subscribers[ch]; ok {
			delete(d.subscribers, ch)
			close(ch)
		}
		d.mu.Unlock()
	}
	return ch, cancel
}

// publish fans a snapshot out to subscribers. Slow subscribers lose stale
// snapshots, never the latest one. The ended snapshot closes every
// subscription.
func (d *Duel) publish(snap domain.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for ch := range d.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	if snap.Ended {
		d.closeLocked()
	}
}

func (d *Duel) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

// touch restarts the idle deadline. It reports whether the registry marker
// is due for a refresh, which happens at most once per refreshEvery.
func (d *Duel) touch(now time.Time, timeout, refreshEvery time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.idle == nil {
		return false
	}
	d.idle.Reset(timeout)
	if now.Sub(d.refreshed) < refreshEvery {
		return false
	}
	d.refreshed = now
	return true
}

func (d *Duel) stopIdle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idle != nil {
		d.idle.Stop()
	}
}

func (d *Duel) closeLocked() {
	if d.closed {
		return
	}
	d.closed = true
	if d.idle != nil {
		d.idle.Stop()
	}
	for ch := range d.subscribers {
		delete(d.subscribers, ch)
		close(ch)
	}
}
