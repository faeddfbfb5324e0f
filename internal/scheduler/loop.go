package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Loop is a Scheduler backed by one goroutine. Timers come from a
// clockwork.Clock so tests can drive it with a fake clock.
type Loop struct {
	clock  clockwork.Clock
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	onPanic func(recovered any)

	mu     sync.Mutex
	queue  []func()
	timers map[*loopTimer]struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithPanicHandler registers fn to run on the loop goroutine after a
// continuation panicked. The loop is already closed when fn runs.
func WithPanicHandler(fn func(recovered any)) LoopOption {
	return func(l *Loop) { l.onPanic = fn }
}

// NewLoop starts a loop goroutine. Call Close to stop it.
func NewLoop(clock clockwork.Clock, opts ...LoopOption) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		wake:   make(chan struct{}, 1),
		timers: make(map[*loopTimer]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.wake:
		}
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.exec(fn)
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			// State touched by fn may be half updated; nothing else runs.
			log.Error().Interface("panic", r).Msg("scheduler continuation panicked, closing loop")
			l.Close()
			if l.onPanic != nil {
				l.onPanic(r)
			}
		}
	}()
	fn()
}

// Post queues fn. Posting to a closed loop is a no-op.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// After schedules fn on the loop once d has elapsed on the loop's clock.
func (l *Loop) After(d time.Duration, fn func()) Timer {
	t := &loopTimer{loop: l}
	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		t.stopped = true
		return t
	}
	l.timers[t] = struct{}{}
	l.mu.Unlock()

	timer := l.clock.AfterFunc(d, func() {
		l.Post(func() {
			l.forget(t)
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	l.mu.Lock()
	t.timer = timer
	l.mu.Unlock()
	return t
}

// Now returns the loop clock's time.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Close cancels every pending timer and drops queued continuations. A
// continuation that is already running finishes. Close does not wait, so it
// is safe to call from inside a continuation.
func (l *Loop) Close() {
	l.mu.Lock()
	l.cancel()
	l.queue = nil
	pending := make([]clockwork.Timer, 0, len(l.timers))
	for t := range l.timers {
		if t.timer != nil {
			pending = append(pending, t.timer)
		}
	}
	l.timers = make(map[*loopTimer]struct{})
	l.mu.Unlock()

	for _, timer := range pending {
		timer.Stop()
	}
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) forget(t *loopTimer) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}

type loopTimer struct {
	loop  *Loop
	timer clockwork.Timer
	// stopped is only touched on the loop goroutine, except before the
	// timer is armed.
	stopped bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.loop.mu.Lock()
	timer := t.timer
	delete(t.loop.timers, t)
	t.loop.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return true
}
