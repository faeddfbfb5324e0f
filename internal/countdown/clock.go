// Package countdown implements the per-side duel clock.
package countdown

import (
	"time"

	"chase-duel-service/internal/scheduler"
)

// Clock counts whole seconds down to zero. Ticks are continuations on the
// owning duel's scheduler, so a Clock must only be used from that scheduler.
type Clock struct {
	sched     scheduler.Scheduler
	initial   int
	remaining int
	running   bool
	completed bool
	pending   scheduler.Timer

	onTick     func(remaining int)
	onComplete func()
}

// Option configures a Clock.
type Option func(*Clock)

// WithTickObserver is called with the new remaining value after every tick.
func WithTickObserver(fn func(remaining int)) Option {
	return func(c *Clock) { c.onTick = fn }
}

// WithCompletion is called once when the clock reaches zero.
func WithCompletion(fn func()) Option {
	return func(c *Clock) { c.onComplete = fn }
}

// New returns a stopped clock holding seconds.
func New(sched scheduler.Scheduler, seconds int, opts ...Option) *Clock {
	if seconds < 0 {
		seconds = 0
	}
	c := &Clock{sched: sched, initial: seconds, remaining: seconds}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remaining returns the seconds left.
func (c *Clock) Remaining() int { return c.remaining }

// Running reports whether the clock is counting down.
func (c *Clock) Running() bool { return c.running }

// Start resumes the countdown. It is a no-op when already running or at zero.
func (c *Clock) Start() {
	if c.running || c.remaining == 0 {
		return
	}
	c.running = true
	c.arm()
}

// Pause stops the countdown and keeps the remaining seconds.
func (c *Clock) Pause() {
	c.running = false
	c.disarm()
}

// Reset stops the clock and restores its initial value.
func (c *Clock) Reset() {
	c.ResetTo(c.initial)
}

// ResetTo stops the clock and sets the remaining seconds.
func (c *Clock) ResetTo(seconds int) {
	c.Pause()
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
	c.completed = false
}

// Tick applies one elapsed second. The scheduled tick loop calls it; calls
// while paused or at zero change nothing.
func (c *Clock) Tick() {
	if !c.running || c.remaining == 0 {
		return
	}
	c.remaining--
	if c.onTick != nil {
		c.onTick(c.remaining)
	}
	if c.remaining > 0 {
		return
	}
	c.running = false
	c.disarm()
	if c.completed {
		return
	}
	c.completed = true
	if c.onComplete != nil {
		c.onComplete()
	}
}

func (c *Clock) arm() {
	c.disarm()
	c.pending = c.sched.After(time.Second, c.fire)
}

func (c *Clock) disarm() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Clock) fire() {
	c.pending = nil
	if !c.running {
		return
	}
	c.Tick()
	// The observers may have paused, reset or restarted the clock.
	if c.running && c.pending == nil {
		c.arm()
	}
}
