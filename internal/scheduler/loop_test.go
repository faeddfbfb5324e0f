package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestLoopRunsPostedInOrder(t *testing.T) {
	loop := NewLoop(clockwork.NewFakeClock())
	defer loop.Close()

	got := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		loop.Post(func() { got <- i })
	}
	for want := 1; want <= 3; want++ {
		select {
		case v := <-got:
			if v != want {
				t.Fatalf("expected %d, got %d", want, v)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("continuation %d never ran", want)
		}
	}
}

func TestLoopAfterFiresOnClockAdvance(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)
	defer loop.Close()

	fired := make(chan struct{}, 1)
	armed := make(chan struct{})
	loop.Post(func() {
		loop.After(time.Second, func() { fired <- struct{}{} })
		close(armed)
	})
	<-armed

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("timer never armed: %v", err)
	}
	clock.Advance(time.Second)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected timer to fire after advance")
	}
}

func TestLoopStoppedTimerNeverRuns(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)
	defer loop.Close()

	fired := make(chan struct{}, 1)
	stopped := make(chan bool, 1)
	loop.Post(func() {
		timer := loop.After(time.Second, func() { fired <- struct{}{} })
		stopped <- timer.Stop()
	})
	if ok := <-stopped; !ok {
		t.Fatalf("expected first Stop to report true")
	}
	clock.Advance(2 * time.Second)

	done := make(chan struct{})
	loop.Post(func() { close(done) })
	<-done
	select {
	case <-fired:
		t.Fatalf("stopped timer fired")
	default:
	}
}

func TestLoopCloseDropsPendingWork(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := NewLoop(clock)

	fired := make(chan struct{}, 1)
	armed := make(chan struct{})
	loop.Post(func() {
		loop.After(time.Second, func() { fired <- struct{}{} })
		close(armed)
	})
	<-armed

	loop.Close()
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop goroutine did not exit")
	}

	clock.Advance(time.Minute)
	loop.Post(func() { fired <- struct{}{} })
	select {
	case <-fired:
		t.Fatalf("closed loop ran a continuation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoopPanicClosesLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	recovered := make(chan any, 1)
	loop := NewLoop(clock, WithPanicHandler(func(r any) { recovered <- r }))

	ran := make(chan struct{}, 1)
	loop.Post(func() { panic("boom") })
	loop.Post(func() { ran <- struct{}{} })

	select {
	case r := <-recovered:
		if r != "boom" {
			t.Fatalf("unexpected recovered value %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("panic handler not called")
	}
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop goroutine did not exit after a panic")
	}
	select {
	case <-ran:
		t.Fatalf("continuation queued behind the panic ran")
	default:
	}
}
