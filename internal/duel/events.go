package duel

import (
	"time"

	"chase-duel-service/internal/domain"
)

// Event is an input to a state machine transition.
type Event interface{ isEvent() }

// Begin starts the duel.
type Begin struct{}

// HostAnswer is an answer submitted by the host for whichever human side may
// currently answer.
type HostAnswer struct{ Answer int }

// ChaserDecided carries the simulated chaser's answer once thinking ends.
type ChaserDecided struct{ Answer int }

// FeedbackElapsed fires when the answer feedback display time is over.
type FeedbackElapsed struct{}

// ClockExpired fires when a side's clock reaches zero.
type ClockExpired struct{ Side domain.Side }

// Continue moves a catch-up duel out of its transition phase.
type Continue struct{}

func (Begin) isEvent()           {}
func (HostAnswer) isEvent()      {}
func (ChaserDecided) isEvent()   {}
func (FeedbackElapsed) isEvent() {}
func (ClockExpired) isEvent()    {}
func (Continue) isEvent()        {}

// Effect is a side effect a transition asks the runtime to perform.
type Effect interface{ isEffect() }

// StartClock resumes a side's clock.
type StartClock struct{ Side domain.Side }

// PauseClock pauses a side's clock.
type PauseClock struct{ Side domain.Side }

// ScheduleFeedback delivers FeedbackElapsed after Delay.
type ScheduleFeedback struct{ Delay time.Duration }

// CancelFeedback drops a pending FeedbackElapsed.
type CancelFeedback struct{}

// RequestAnswer asks the simulated chaser to think about Question and
// deliver ChaserDecided.
type RequestAnswer struct{ Question domain.Question }

// CancelThinking drops a pending ChaserDecided.
type CancelThinking struct{}

// Broadcast publishes a fresh snapshot.
type Broadcast struct{}

// Finish reports the terminal outcome.
type Finish struct {
	Winner domain.Side
	Reason domain.EndReason
}

func (StartClock) isEffect()       {}
func (PauseClock) isEffect()       {}
func (ScheduleFeedback) isEffect() {}
func (CancelFeedback) isEffect()   {}
func (RequestAnswer) isEffect()    {}
func (CancelThinking) isEffect()   {}
func (Broadcast) isEffect()        {}
func (Finish) isEffect()           {}

func validAnswer(i int) bool {
	return i >= 0 && i < domain.OptionCount
}

// finish is the shared terminal effect list: everything stops before the
// outcome is reported.
func finish(winner domain.Side, reason domain.EndReason) []Effect {
	return []Effect{
		PauseClock{Side: domain.Contestant},
		PauseClock{Side: domain.Chaser},
		CancelFeedback{},
		CancelThinking{},
		Finish{Winner: winner, Reason: reason},
		Broadcast{},
	}
}
