package duel

import (
	"time"

	"chase-duel-service/internal/domain"
)

// TurnPhase is the sub-state of the active turn in an alternating duel.
type TurnPhase string

const (
	PhaseReady           TurnPhase = "ready"
	PhaseAnswering       TurnPhase = "answering"
	PhaseFeedbackCorrect TurnPhase = "feedback-correct"
	PhaseFeedbackWrong   TurnPhase = "feedback-wrong"
	PhaseThinking        TurnPhase = "thinking"
	PhaseOver            TurnPhase = "over"
)

// AlternatingRules are the fixed inputs of an alternating duel. Queues are
// indexed by domain.Side.
type AlternatingRules struct {
	Queues          [2][]domain.Question
	SimulatedChaser bool
	FeedbackDelay   time.Duration
}

// TurnState is the mutable state of an alternating duel. The active side's
// clock runs while answering or thinking; both clocks are paused during
// feedback.
type TurnState struct {
	Active   domain.Side
	Phase    TurnPhase
	Index    [2]int
	Correct  [2]int
	Selected int
	Ended    bool
	Winner   domain.Side
	Reason   domain.EndReason
}

// Initial returns the state before Begin.
func (r AlternatingRules) Initial() TurnState {
	return TurnState{Active: domain.Contestant, Phase: PhaseReady, Selected: -1}
}

// Current returns the question the given side is on, if it has one.
func (r AlternatingRules) Current(s TurnState, side domain.Side) (domain.Question, bool) {
	i := s.Index[side]
	if i >= len(r.Queues[side]) {
		return domain.Question{}, false
	}
	return r.Queues[side][i], true
}

// Step applies ev to s. Events that are not valid in s are ignored: the
// returned state equals s and there are no effects.
func (r AlternatingRules) Step(s TurnState, ev Event) (TurnState, []Effect) {
	if s.Ended {
		return s, nil
	}
	switch ev := ev.(type) {
	case Begin:
		if s.Phase != PhaseReady {
			return s, nil
		}
		return r.takeTurn(s, domain.Contestant)

	case HostAnswer:
		if s.Phase != PhaseAnswering || !validAnswer(ev.Answer) {
			return s, nil
		}
		if s.Active == domain.Chaser && r.SimulatedChaser {
			return s, nil
		}
		return r.answer(s, ev.Answer)

	case ChaserDecided:
		if s.Phase != PhaseThinking || s.Active != domain.Chaser {
			return s, nil
		}
		return r.answer(s, ev.Answer)

	case FeedbackElapsed:
		switch s.Phase {
		case PhaseFeedbackCorrect:
			cur := s.Active
			s.Index[cur]++
			if s.Index[cur.Other()] >= len(r.Queues[cur.Other()]) {
				return r.end(s, cur, domain.ReasonExhausted)
			}
			return r.takeTurn(s, cur.Other())
		case PhaseFeedbackWrong:
			cur := s.Active
			s.Index[cur]++
			if s.Index[cur] >= len(r.Queues[cur]) {
				return r.end(s, cur.Other(), domain.ReasonExhausted)
			}
			return r.takeTurn(s, cur)
		}
		return s, nil

	case ClockExpired:
		if ev.Side != s.Active {
			return s, nil
		}
		switch s.Phase {
		case PhaseAnswering, PhaseThinking:
			return r.end(s, ev.Side.Other(), domain.ReasonTimeout)
		}
		return s, nil
	}
	return s, nil
}

// takeTurn hands the turn to side on its current question and starts its
// clock. A simulated chaser thinks before answering.
func (r AlternatingRules) takeTurn(s TurnState, side domain.Side) (TurnState, []Effect) {
	s.Active = side
	s.Selected = -1
	effects := []Effect{StartClock{Side: side}}
	if side == domain.Chaser && r.SimulatedChaser {
		q, _ := r.Current(s, side)
		s.Phase = PhaseThinking
		effects = append(effects, RequestAnswer{Question: q})
	} else {
		s.Phase = PhaseAnswering
	}
	return s, append(effects, Broadcast{})
}

func (r AlternatingRules) answer(s TurnState, answer int) (TurnState, []Effect) {
	q, ok := r.Current(s, s.Active)
	if !ok {
		return s, nil
	}
	s.Selected = answer
	if answer == q.Correct {
		s.Phase = PhaseFeedbackCorrect
		s.Correct[s.Active]++
	} else {
		s.Phase = PhaseFeedbackWrong
	}
	return s, []Effect{
		PauseClock{Side: s.Active},
		ScheduleFeedback{Delay: r.FeedbackDelay},
		Broadcast{},
	}
}

func (r AlternatingRules) end(s TurnState, winner domain.Side, reason domain.EndReason) (TurnState, []Effect) {
	s.Ended = true
	s.Phase = PhaseOver
	s.Winner = winner
	s.Reason = reason
	return s, finish(winner, reason)
}
