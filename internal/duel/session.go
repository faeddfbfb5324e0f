// Package duel holds the two duel state machines and the runtime that drives
// them on a scheduler.
package duel

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/countdown"
	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/opponent"
	"chase-duel-service/internal/scheduler"
)

// Hooks are the outward callbacks of a session. Both run on the session's
// scheduler.
type Hooks struct {
	// OnState receives a snapshot on every clock tick and every transition.
	OnState func(domain.Snapshot)
	// OnComplete receives the outcome exactly once. It is never called for a
	// duel torn down with Exit.
	OnComplete func(domain.Outcome)
}

// machine adapts a rules/state pair to the runtime.
type machine interface {
	step(ev Event) []Effect
	fill(snap *domain.Snapshot)
	scores() (contestant, chaser, pushbacks int)
}

// Session runs one duel. Its exported methods may be called from any
// goroutine; the work is posted onto the scheduler.
type Session struct {
	id     string
	mode   domain.Mode
	tier   domain.Tier
	sched  scheduler.Scheduler
	chaser *opponent.Service
	hooks  Hooks
	logger zerolog.Logger

	machine  machine
	clocks   [2]*countdown.Clock
	feedback scheduler.Timer
	thought  *opponent.Thought

	started  bool
	finished bool
	closed   bool
	outcome  *domain.Outcome

	mu   sync.RWMutex
	last domain.Snapshot
}

// NewSession validates cfg and prepares a duel on sched. Nothing runs until
// Start. A nil chaser service is replaced by a time-seeded one when the chaser
// is simulated.
func NewSession(cfg Config, sched scheduler.Scheduler, chaser *opponent.Service, hooks Hooks) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	simulated := cfg.Control == domain.Simulated
	if simulated && chaser == nil {
		chaser = opponent.NewService(nil)
	}
	feedback := cfg.FeedbackDelay
	queues := [2][]domain.Question{cfg.ContestantQuestions, cfg.ChaserQuestions}

	s := &Session{
		id:     cfg.ID,
		mode:   cfg.Mode,
		tier:   cfg.Tier,
		sched:  sched,
		chaser: chaser,
		hooks:  hooks,
		logger: log.With().Str("duel_id", cfg.ID).Str("mode", string(cfg.Mode)).Logger(),
	}

	switch cfg.Mode {
	case domain.CatchUp:
		rules := CatchUpRules{Queues: queues, SimulatedChaser: simulated, FeedbackDelay: feedback}
		s.machine = &catchUpMachine{rules: rules, state: rules.Initial()}
	default:
		rules := AlternatingRules{Queues: queues, SimulatedChaser: simulated, FeedbackDelay: feedback}
		s.machine = &alternatingMachine{rules: rules, state: rules.Initial()}
	}

	seconds := [2]int{cfg.ContestantSeconds, cfg.ChaserSeconds}
	for _, side := range []domain.Side{domain.Contestant, domain.Chaser} {
		s.clocks[side] = countdown.New(sched, seconds[side],
			countdown.WithTickObserver(func(int) { s.broadcast() }),
			countdown.WithCompletion(func() { s.dispatch(ClockExpired{Side: side}) }),
		)
	}
	s.last = s.snapshot()
	return s, nil
}

// ID returns the duel ID.
func (s *Session) ID() string { return s.id }

// Start begins the duel. Repeated calls are ignored.
func (s *Session) Start() {
	s.sched.Post(func() {
		if s.started || s.closed {
			return
		}
		s.started = true
		s.logger.Info().Str("tier", string(s.tier)).Msg("duel started")
		s.dispatch(Begin{})
	})
}

// SubmitAnswer submits an answer index for the side currently allowed to
// answer. Submissions that are not valid right now are ignored.
func (s *Session) SubmitAnswer(index int) {
	s.sched.Post(func() { s.dispatch(HostAnswer{Answer: index}) })
}

// Continue leaves the transition phase of a catch-up duel.
func (s *Session) Continue() {
	s.sched.Post(func() { s.dispatch(Continue{}) })
}

// Exit tears the duel down: clocks, feedback and thinking are cancelled and
// no further callback fires.
func (s *Session) Exit() {
	s.sched.Post(func() {
		if s.closed {
			return
		}
		s.teardown()
		s.logger.Info().Bool("finished", s.finished).Msg("duel exited")
	})
}

// Snapshot returns the most recently broadcast state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Session) dispatch(ev Event) {
	if s.closed {
		return
	}
	effects := s.machine.step(ev)
	if len(effects) == 0 {
		s.logger.Debug().Type("event", ev).Msg("event ignored")
		return
	}
	for _, eff := range effects {
		s.apply(eff)
	}
	if s.finished {
		s.teardown()
	}
}

func (s *Session) apply(eff Effect) {
	switch e := eff.(type) {
	case StartClock:
		s.clocks[e.Side].Start()
	case PauseClock:
		s.clocks[e.Side].Pause()
	case ScheduleFeedback:
		s.stopFeedback()
		s.feedback = s.sched.After(e.Delay, func() {
			s.feedback = nil
			s.dispatch(FeedbackElapsed{})
		})
	case CancelFeedback:
		s.stopFeedback()
	case RequestAnswer:
		s.think(e.Question)
	case CancelThinking:
		s.thought.Cancel()
		s.thought = nil
	case Broadcast:
		s.broadcast()
	case Finish:
		s.complete(e)
	}
}

func (s *Session) think(q domain.Question) {
	if s.chaser == nil {
		s.logger.Warn().Msg("answer requested from an externally controlled chaser")
		return
	}
	s.thought.Cancel()
	s.thought = s.chaser.Think(s.sched, s.tier, q, func(answer int) {
		s.thought = nil
		s.logger.Debug().Str("question_id", q.ID).Int("answer", answer).Bool("correct", answer == q.Correct).Msg("chaser answered")
		s.dispatch(ChaserDecided{Answer: answer})
	})
}

func (s *Session) stopFeedback() {
	if s.feedback != nil {
		s.feedback.Stop()
		s.feedback = nil
	}
}

func (s *Session) complete(f Finish) {
	if s.finished {
		return
	}
	s.finished = true

	contestant, chaser, pushbacks := s.machine.scores()
	result := domain.Loss
	if f.Winner == domain.Contestant {
		result = domain.Win
	}
	o := domain.Outcome{
		DuelID:              s.id,
		Mode:                s.mode,
		Winner:              f.Winner,
		Result:              result,
		Reason:              f.Reason,
		ContestantScore:     contestant,
		ChaserScore:         chaser,
		Pushbacks:           pushbacks,
		ContestantRemaining: s.clocks[domain.Contestant].Remaining(),
		ChaserRemaining:     s.clocks[domain.Chaser].Remaining(),
		FinishedAt:          s.sched.Now(),
	}
	s.outcome = &o

	s.logger.Info().
		Str("winner", f.Winner.String()).
		Str("reason", string(f.Reason)).
		Int("contestant_score", contestant).
		Int("chaser_score", chaser).
		Int("pushbacks", pushbacks).
		Msg("duel finished")

	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(o)
	}
}

func (s *Session) teardown() {
	s.closed = true
	s.clocks[domain.Contestant].Pause()
	s.clocks[domain.Chaser].Pause()
	s.stopFeedback()
	s.thought.Cancel()
	s.thought = nil
}

func (s *Session) broadcast() {
	snap := s.snapshot()
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	if s.hooks.OnState != nil {
		s.hooks.OnState(snap)
	}
}

func (s *Session) snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		DuelID:                  s.id,
		Mode:                    s.mode,
		ContestantTimeRemaining: s.clocks[domain.Contestant].Remaining(),
		ChaserTimeRemaining:     s.clocks[domain.Chaser].Remaining(),
		Thinking:                s.thought.Thinking(),
		Outcome:                 s.outcome,
	}
	s.machine.fill(&snap)
	return snap
}

type alternatingMachine struct {
	rules AlternatingRules
	state TurnState
}

func (m *alternatingMachine) step(ev Event) []Effect {
	var effects []Effect
	m.state, effects = m.rules.Step(m.state, ev)
	return effects
}

func (m *alternatingMachine) fill(snap *domain.Snapshot) {
	st := m.state
	snap.ActiveSide = st.Active
	snap.Phase = string(st.Phase)
	snap.ContestantScore = st.Correct[domain.Contestant]
	snap.ChaserScore = st.Correct[domain.Chaser]
	snap.Ended = st.Ended
	if st.Phase == PhaseReady || st.Ended {
		return
	}
	if q, ok := m.rules.Current(st, st.Active); ok {
		snap.Question = q.View()
		if st.Phase == PhaseFeedbackCorrect || st.Phase == PhaseFeedbackWrong {
			correct := q.Correct
			snap.Revealed = &correct
		}
	}
	if st.Selected >= 0 {
		selected := st.Selected
		snap.Selected = &selected
	}
}

func (m *alternatingMachine) scores() (int, int, int) {
	return m.state.Correct[domain.Contestant], m.state.Correct[domain.Chaser], 0
}

type catchUpMachine struct {
	rules CatchUpRules
	state CatchUpState
}

func (m *catchUpMachine) step(ev Event) []Effect {
	var effects []Effect
	m.state, effects = m.rules.Step(m.state, ev)
	return effects
}

func (m *catchUpMachine) fill(snap *domain.Snapshot) {
	st := m.state
	snap.ActiveSide = st.Active()
	snap.Phase = string(st.Phase)
	snap.ContestantScore = st.ContestantScore
	snap.ChaserScore = st.ChaserScore
	snap.Pushbacks = st.Pushbacks
	target := st.Target()
	snap.Target = &target
	snap.Ended = st.Ended
	if q, ok := m.rules.Current(st); ok {
		snap.Question = q.View()
		if st.AwaitingFeedback {
			correct := q.Correct
			snap.Revealed = &correct
		}
	}
	if st.Selected >= 0 {
		selected := st.Selected
		snap.Selected = &selected
	}
}

func (m *catchUpMachine) scores() (int, int, int) {
	return m.state.ContestantScore, m.state.ChaserScore, m.state.Pushbacks
}
