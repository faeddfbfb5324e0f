package duel

import (
	"time"

	"chase-duel-service/internal/domain"
)

// CatchUpPhase is the phase of a two-phase catch-up duel.
type CatchUpPhase string

const (
	PhaseIntro           CatchUpPhase = "intro"
	PhaseContestantRound CatchUpPhase = "contestant-round"
	PhaseTransition      CatchUpPhase = "transition"
	PhaseChaserRound     CatchUpPhase = "chaser-round"
	PhasePushback        CatchUpPhase = "pushback-opportunity"
	PhaseComplete        CatchUpPhase = "complete"
)

// CatchUpRules are the fixed inputs of a catch-up duel. Queues[Contestant]
// feeds the solo round, Queues[Chaser] the chase.
type CatchUpRules struct {
	Queues          [2][]domain.Question
	SimulatedChaser bool
	FeedbackDelay   time.Duration
}

// CatchUpState is the mutable state of a catch-up duel. Index is the shared
// question index of the current round.
type CatchUpState struct {
	Phase            CatchUpPhase
	ContestantScore  int
	ChaserScore      int
	Pushbacks        int
	Index            int
	Pending          *domain.Question
	AwaitingFeedback bool
	Thinking         bool
	Selected         int
	Ended            bool
	Winner           domain.Side
	Reason           domain.EndReason
}

// Target is the score the chaser has to exceed. It is derived on every call.
func (s CatchUpState) Target() int {
	return s.ContestantScore + s.Pushbacks
}

// Active is the side expected to answer next.
func (s CatchUpState) Active() domain.Side {
	if s.Phase == PhaseChaserRound {
		return domain.Chaser
	}
	return domain.Contestant
}

// Initial returns the intro state.
func (r CatchUpRules) Initial() CatchUpState {
	return CatchUpState{Phase: PhaseIntro, Selected: -1}
}

// Current returns the question on screen, if any.
func (r CatchUpRules) Current(s CatchUpState) (domain.Question, bool) {
	switch s.Phase {
	case PhasePushback:
		if s.Pending != nil {
			return *s.Pending, true
		}
	case PhaseContestantRound:
		if s.Index < len(r.Queues[domain.Contestant]) {
			return r.Queues[domain.Contestant][s.Index], true
		}
	case PhaseChaserRound:
		if s.Index < len(r.Queues[domain.Chaser]) {
			return r.Queues[domain.Chaser][s.Index], true
		}
	}
	return domain.Question{}, false
}

// Step applies ev to s. Events that are not valid in s are ignored.
func (r CatchUpRules) Step(s CatchUpState, ev Event) (CatchUpState, []Effect) {
	if s.Ended {
		return s, nil
	}
	switch ev := ev.(type) {
	case Begin:
		if s.Phase != PhaseIntro {
			return s, nil
		}
		s.Phase = PhaseContestantRound
		s.Index = 0
		return s, []Effect{StartClock{Side: domain.Contestant}, Broadcast{}}

	case HostAnswer:
		if s.AwaitingFeedback || !validAnswer(ev.Answer) {
			return s, nil
		}
		switch s.Phase {
		case PhaseContestantRound:
			q, ok := r.Current(s)
			if !ok {
				return s, nil
			}
			s.Selected = ev.Answer
			if ev.Answer == q.Correct {
				s.ContestantScore++
			}
			s.AwaitingFeedback = true
			return s, []Effect{ScheduleFeedback{Delay: r.FeedbackDelay}, Broadcast{}}
		case PhasePushback:
			if s.Pending == nil {
				return s, nil
			}
			s.Selected = ev.Answer
			if ev.Answer == s.Pending.Correct {
				s.Pushbacks++
			}
			s.AwaitingFeedback = true
			return s, []Effect{ScheduleFeedback{Delay: r.FeedbackDelay}, Broadcast{}}
		case PhaseChaserRound:
			if r.SimulatedChaser {
				return s, nil
			}
			return r.chaserAnswer(s, ev.Answer)
		}
		return s, nil

	case ChaserDecided:
		if s.Phase != PhaseChaserRound || !s.Thinking || s.AwaitingFeedback {
			return s, nil
		}
		s.Thinking = false
		return r.chaserAnswer(s, ev.Answer)

	case FeedbackElapsed:
		if !s.AwaitingFeedback {
			return s, nil
		}
		s.AwaitingFeedback = false
		s.Selected = -1
		switch s.Phase {
		case PhaseContestantRound:
			s.Index++
			if s.Index >= len(r.Queues[domain.Contestant]) {
				return r.toTransition(s, nil)
			}
			return s, []Effect{Broadcast{}}
		case PhaseChaserRound:
			s.Index++
			return r.nextChaserQuestion(s, nil)
		case PhasePushback:
			s.Pending = nil
			s.Index++
			s.Phase = PhaseChaserRound
			return r.nextChaserQuestion(s, []Effect{StartClock{Side: domain.Chaser}})
		}
		return s, nil

	case ClockExpired:
		switch {
		case ev.Side == domain.Contestant && s.Phase == PhaseContestantRound:
			s.AwaitingFeedback = false
			s.Selected = -1
			return r.toTransition(s, []Effect{CancelFeedback{}})
		case ev.Side == domain.Chaser && s.Phase == PhaseChaserRound:
			return r.end(s, domain.Contestant, domain.ReasonTimeout)
		}
		return s, nil

	case Continue:
		if s.Phase != PhaseTransition {
			return s, nil
		}
		s.Phase = PhaseChaserRound
		s.Index = 0
		return r.nextChaserQuestion(s, []Effect{StartClock{Side: domain.Chaser}})
	}
	return s, nil
}

func (r CatchUpRules) chaserAnswer(s CatchUpState, answer int) (CatchUpState, []Effect) {
	q, ok := r.Current(s)
	if !ok {
		return s, nil
	}
	if answer != q.Correct {
		s.Phase = PhasePushback
		s.Pending = &q
		s.Selected = -1
		return s, []Effect{PauseClock{Side: domain.Chaser}, Broadcast{}}
	}
	s.ChaserScore++
	if s.ChaserScore > s.Target() {
		return r.end(s, domain.Chaser, domain.ReasonCaught)
	}
	s.Selected = answer
	s.AwaitingFeedback = true
	return s, []Effect{ScheduleFeedback{Delay: r.FeedbackDelay}, Broadcast{}}
}

// nextChaserQuestion continues the chase on s.Index, or ends the duel when
// the chaser has run out of questions.
func (r CatchUpRules) nextChaserQuestion(s CatchUpState, effects []Effect) (CatchUpState, []Effect) {
	q, ok := r.Current(s)
	if !ok {
		return r.end(s, domain.Contestant, domain.ReasonExhausted)
	}
	if r.SimulatedChaser {
		s.Thinking = true
		effects = append(effects, RequestAnswer{Question: q})
	}
	return s, append(effects, Broadcast{})
}

func (r CatchUpRules) toTransition(s CatchUpState, effects []Effect) (CatchUpState, []Effect) {
	s.Phase = PhaseTransition
	return s, append(effects, PauseClock{Side: domain.Contestant}, Broadcast{})
}

func (r CatchUpRules) end(s CatchUpState, winner domain.Side, reason domain.EndReason) (CatchUpState, []Effect) {
	s.Ended = true
	s.Phase = PhaseComplete
	s.Thinking = false
	s.AwaitingFeedback = false
	s.Winner = winner
	s.Reason = reason
	return s, finish(winner, reason)
}
