// Package scheduler provides the single logical thread of control a duel runs
// on. Every state mutation of a duel happens inside a continuation executed by
// a Scheduler; continuations never overlap.
package scheduler

import "time"

// Scheduler runs continuations one at a time.
type Scheduler interface {
	// Post runs fn as soon as possible on the scheduler.
	Post(fn func())
	// After runs fn on the scheduler once d has elapsed.
	After(d time.Duration, fn func()) Timer
	// Now reports the scheduler's notion of the current time.
	Now() time.Time
}

// Timer is a pending continuation created by After.
type Timer interface {
	// Stop prevents the continuation from running. It reports whether the
	// call stopped it; false means it already ran or was stopped before.
	// Stop must be called from a continuation on the same scheduler.
	Stop() bool
}
