package duel

import (
	"fmt"
	"testing"
	"time"

	"chase-duel-service/internal/domain"
)

func makeQuestions(prefix string, n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		qs[i] = domain.Question{
			ID:      fmt.Sprintf("%s%d", prefix, i+1),
			Prompt:  fmt.Sprintf("question %s%d", prefix, i+1),
			Options: [4]string{"a", "b", "c", "d"},
			Correct: i % domain.OptionCount,
		}
	}
	return qs
}

func wrongOf(q domain.Question) int {
	return (q.Correct + 1) % domain.OptionCount
}

func hasEffect[T Effect](effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(T); ok {
			return true
		}
	}
	return false
}

func newAlternating(contestant, chaser int, simulated bool) AlternatingRules {
	return AlternatingRules{
		Queues:          [2][]domain.Question{makeQuestions("c", contestant), makeQuestions("x", chaser)},
		SimulatedChaser: simulated,
		FeedbackDelay:   time.Second,
	}
}

func TestAlternatingWrongAnswerOnLastQuestionLoses(t *testing.T) {
	r := newAlternating(3, 3, false)
	s, _ := r.Step(r.Initial(), Begin{})

	correct := func(side domain.Side) {
		t.Helper()
		if s.Active != side || s.Phase != PhaseAnswering {
			t.Fatalf("expected %s answering, got %s %s", side, s.Active, s.Phase)
		}
		q, _ := r.Current(s, side)
		s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
		s, _ = r.Step(s, FeedbackElapsed{})
	}

	correct(domain.Contestant)
	correct(domain.Chaser)
	correct(domain.Contestant)
	correct(domain.Chaser)

	q, _ := r.Current(s, domain.Contestant)
	if q.ID != "c3" {
		t.Fatalf("expected contestant on c3, got %s", q.ID)
	}
	s, _ = r.Step(s, HostAnswer{Answer: wrongOf(q)})
	if s.Phase != PhaseFeedbackWrong {
		t.Fatalf("expected feedback-wrong, got %s", s.Phase)
	}
	s, effects := r.Step(s, FeedbackElapsed{})
	if !s.Ended || s.Winner != domain.Chaser || s.Reason != domain.ReasonExhausted {
		t.Fatalf("expected chaser win by exhaustion, got ended=%v winner=%s reason=%s", s.Ended, s.Winner, s.Reason)
	}
	if !hasEffect[Finish](effects) {
		t.Fatalf("expected Finish effect, got %#v", effects)
	}
}

func TestAlternatingAnswerPausesClockBeforeFeedback(t *testing.T) {
	r := newAlternating(2, 2, false)
	s, effects := r.Step(r.Initial(), Begin{})
	if len(effects) == 0 || effects[0] != (StartClock{Side: domain.Contestant}) {
		t.Fatalf("expected contestant clock to start first, got %#v", effects)
	}

	q, _ := r.Current(s, domain.Contestant)
	s, effects = r.Step(s, HostAnswer{Answer: q.Correct})
	if effects[0] != (PauseClock{Side: domain.Contestant}) {
		t.Fatalf("expected pause before anything else, got %#v", effects)
	}
	if _, ok := effects[1].(ScheduleFeedback); !ok {
		t.Fatalf("expected feedback scheduled, got %#v", effects)
	}

	// A clock expiry during feedback cannot end the duel.
	s2, effects := r.Step(s, ClockExpired{Side: domain.Contestant})
	if s2.Ended || len(effects) != 0 {
		t.Fatalf("clock expiry during feedback must be ignored")
	}
}

func TestAlternatingCorrectAnswerPassesTurn(t *testing.T) {
	r := newAlternating(2, 2, true)
	s, _ := r.Step(r.Initial(), Begin{})
	q, _ := r.Current(s, domain.Contestant)
	s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
	s, effects := r.Step(s, FeedbackElapsed{})

	if s.Active != domain.Chaser || s.Phase != PhaseThinking {
		t.Fatalf("expected simulated chaser thinking, got %s %s", s.Active, s.Phase)
	}
	if effects[0] != (StartClock{Side: domain.Chaser}) {
		t.Fatalf("expected chaser clock start, got %#v", effects)
	}
	var asked *RequestAnswer
	for _, e := range effects {
		if ra, ok := e.(RequestAnswer); ok {
			asked = &ra
		}
	}
	if asked == nil || asked.Question.ID != "x1" {
		t.Fatalf("expected chaser asked x1, got %#v", effects)
	}
	if s.Index[domain.Contestant] != 1 || s.Correct[domain.Contestant] != 1 {
		t.Fatalf("expected contestant index 1 and one correct, got %+v", s)
	}
}

func TestAlternatingWrongAnswerKeepsTurn(t *testing.T) {
	r := newAlternating(3, 3, false)
	s, _ := r.Step(r.Initial(), Begin{})
	q, _ := r.Current(s, domain.Contestant)
	s, _ = r.Step(s, HostAnswer{Answer: wrongOf(q)})
	s, effects := r.Step(s, FeedbackElapsed{})

	if s.Active != domain.Contestant || s.Phase != PhaseAnswering {
		t.Fatalf("expected contestant to keep the turn, got %s %s", s.Active, s.Phase)
	}
	if s.Index[domain.Contestant] != 1 {
		t.Fatalf("expected next question, got index %d", s.Index[domain.Contestant])
	}
	if effects[0] != (StartClock{Side: domain.Contestant}) {
		t.Fatalf("expected contestant clock to resume, got %#v", effects)
	}
}

func TestAlternatingOtherSideExhaustedAfterCorrect(t *testing.T) {
	r := newAlternating(3, 1, false)
	s, _ := r.Step(r.Initial(), Begin{})
	q, _ := r.Current(s, domain.Contestant)
	s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
	s, _ = r.Step(s, FeedbackElapsed{})

	// Chaser answers its only question correctly; turn would pass back.
	q, _ = r.Current(s, domain.Chaser)
	s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
	s, _ = r.Step(s, FeedbackElapsed{})
	if s.Ended {
		t.Fatalf("contestant still has questions, duel should continue")
	}

	// Contestant answers correctly; chaser has nothing left.
	q, _ = r.Current(s, domain.Contestant)
	s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
	s, _ = r.Step(s, FeedbackElapsed{})
	if !s.Ended || s.Winner != domain.Contestant || s.Reason != domain.ReasonExhausted {
		t.Fatalf("expected contestant win by exhaustion, got %+v", s)
	}
}

func TestAlternatingClockExpiry(t *testing.T) {
	r := newAlternating(2, 2, true)
	s, _ := r.Step(r.Initial(), Begin{})

	if s2, effects := r.Step(s, ClockExpired{Side: domain.Chaser}); s2.Ended || len(effects) != 0 {
		t.Fatalf("inactive side's clock must not end the duel")
	}

	s, effects := r.Step(s, ClockExpired{Side: domain.Contestant})
	if !s.Ended || s.Winner != domain.Chaser || s.Reason != domain.ReasonTimeout {
		t.Fatalf("expected chaser win on contestant timeout, got %+v", s)
	}
	if !hasEffect[CancelThinking](effects) || !hasEffect[CancelFeedback](effects) {
		t.Fatalf("terminal transition must cancel pending work, got %#v", effects)
	}

	// Sticky: nothing can end it again.
	if _, effects := r.Step(s, ClockExpired{Side: domain.Contestant}); len(effects) != 0 {
		t.Fatalf("ended duel produced effects %#v", effects)
	}
}

func TestAlternatingChaserTimesOutWhileThinking(t *testing.T) {
	r := newAlternating(2, 2, true)
	s, _ := r.Step(r.Initial(), Begin{})
	q, _ := r.Current(s, domain.Contestant)
	s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
	s, _ = r.Step(s, FeedbackElapsed{})

	s, _ = r.Step(s, ClockExpired{Side: domain.Chaser})
	if !s.Ended || s.Winner != domain.Contestant {
		t.Fatalf("expected contestant win, got %+v", s)
	}
	if _, effects := r.Step(s, ChaserDecided{Answer: 0}); len(effects) != 0 {
		t.Fatalf("late chaser decision must be ignored")
	}
}

func TestAlternatingIgnoresInvalidCalls(t *testing.T) {
	r := newAlternating(2, 2, true)
	ready := r.Initial()

	if _, effects := r.Step(ready, HostAnswer{Answer: 0}); len(effects) != 0 {
		t.Fatalf("answer before Begin must be ignored")
	}

	s, _ := r.Step(ready, Begin{})
	if _, effects := r.Step(s, Begin{}); len(effects) != 0 {
		t.Fatalf("second Begin must be ignored")
	}
	if _, effects := r.Step(s, HostAnswer{Answer: 9}); len(effects) != 0 {
		t.Fatalf("out of range answer must be ignored")
	}
	if _, effects := r.Step(s, ChaserDecided{Answer: 0}); len(effects) != 0 {
		t.Fatalf("chaser decision on contestant turn must be ignored")
	}

	q, _ := r.Current(s, domain.Contestant)
	s, _ = r.Step(s, HostAnswer{Answer: q.Correct})
	if _, effects := r.Step(s, HostAnswer{Answer: q.Correct}); len(effects) != 0 {
		t.Fatalf("answer during feedback must be ignored")
	}
	s, _ = r.Step(s, FeedbackElapsed{})

	// Simulated chaser: the host cannot answer for it.
	if _, effects := r.Step(s, HostAnswer{Answer: 0}); len(effects) != 0 {
		t.Fatalf("host answer for simulated chaser must be ignored")
	}
	if _, effects := r.Step(s, FeedbackElapsed{}); len(effects) != 0 {
		t.Fatalf("stray feedback event must be ignored")
	}
}
