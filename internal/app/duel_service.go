package app

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/duel"
	"chase-duel-service/internal/opponent"
	"chase-duel-service/internal/scheduler"
)

// SessionRepository abstracts where running duels are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Add(d *Duel)
	Get(duelID string) (*Duel, bool)
	Delete(duelID string)
	// Touch marks a registered duel as still alive.
	Touch(duelID string)
	// Live lists the IDs of running duels.
	Live(ctx context.Context) ([]string, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// OutcomePublisher announces finished duels.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome domain.Outcome) error
}

// ClockSeconds is the starting time of each side.
type ClockSeconds struct {
	Contestant int
	Chaser     int
}

// Defaults fill in what a StartRequest leaves out.
type Defaults struct {
	Alternating   ClockSeconds
	CatchUp       ClockSeconds
	FeedbackDelay time.Duration
	// ThinkDelay fixes the chaser's thinking time when positive.
	ThinkDelay time.Duration
	Profiles   map[domain.Tier]opponent.Profile
	// IdleTimeout exits a duel after this long without a state change or a
	// host call, e.g. one left waiting for Continue.
	IdleTimeout time.Duration
}

// DefaultIdleTimeout is the idle timeout of BuiltinDefaults.
const DefaultIdleTimeout = 10 * time.Minute

// BuiltinDefaults are used when the service is built without WithDefaults.
var BuiltinDefaults = Defaults{
	Alternating:   ClockSeconds{Contestant: 60, Chaser: 60},
	CatchUp:       ClockSeconds{Contestant: 60, Chaser: 90},
	FeedbackDelay: duel.DefaultFeedbackDelay,
	IdleTimeout:   DefaultIdleTimeout,
}

// StartRequest describes a duel to start. Either QuizID or both question
// queues must be set; a quiz is split into queues according to the mode.
type StartRequest struct {
	Mode                domain.Mode
	QuizID              string
	ContestantQuestions []domain.Question
	ChaserQuestions     []domain.Question
	Tier                domain.Tier
	Control             domain.ControlMode
	ContestantSeconds   int
	ChaserSeconds       int
	// Seed makes the simulated chaser reproducible. Zero seeds from the clock.
	Seed int64
}

// DuelView is what Start returns to the host.
type DuelView struct {
	ID       string          `json:"duelId"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// DuelService contains the duel use cases.
type DuelService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	publisher OutcomePublisher
	clock     clockwork.Clock
	defaults  Defaults
}

// Option configures a DuelService.
type Option func(*DuelService)

// WithPublisher announces every outcome through p.
func WithPublisher(p OutcomePublisher) Option {
	return func(s *DuelService) { s.publisher = p }
}

// WithClock drives duel loops from clock instead of the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(s *DuelService) { s.clock = clock }
}

// WithDefaults overrides the start defaults. Zero fields keep BuiltinDefaults.
func WithDefaults(d Defaults) Option {
	return func(s *DuelService) {
		if d.Alternating.Contestant > 0 {
			s.defaults.Alternating.Contestant = d.Alternating.Contestant
		}
		if d.Alternating.Chaser > 0 {
			s.defaults.Alternating.Chaser = d.Alternating.Chaser
		}
		if d.CatchUp.Contestant > 0 {
			s.defaults.CatchUp.Contestant = d.CatchUp.Contestant
		}
		if d.CatchUp.Chaser > 0 {
			s.defaults.CatchUp.Chaser = d.CatchUp.Chaser
		}
		if d.FeedbackDelay > 0 {
			s.defaults.FeedbackDelay = d.FeedbackDelay
		}
		if d.IdleTimeout > 0 {
			s.defaults.IdleTimeout = d.IdleTimeout
		}
		s.defaults.ThinkDelay = d.ThinkDelay
		s.defaults.Profiles = d.Profiles
	}
}

func NewDuelService(store SessionRepository, quizzes QuizRepository, opts ...Option) *DuelService {
	s := &DuelService{
		sessions: store,
		quizzes:  quizzes,
		clock:    clockwork.NewRealClock(),
		defaults: BuiltinDefaults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds a duel, registers it and starts it.
func (s *DuelService) Start(ctx context.Context, req StartRequest) (DuelView, error) {
	mode, err := domain.ParseMode(string(req.Mode))
	if err != nil {
		return DuelView{}, err
	}

	contestantQs, chaserQs := req.ContestantQuestions, req.ChaserQuestions
	if req.QuizID != "" {
		quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
		if err != nil {
			return DuelView{}, fmt.Errorf("load quiz %s: %w", req.QuizID, err)
		}
		contestantQs, chaserQs = duel.SplitQuestions(mode, quiz.Questions)
	}

	clocks := s.defaults.Alternating
	if mode == domain.CatchUp {
		clocks = s.defaults.CatchUp
	}
	if req.ContestantSeconds > 0 {
		clocks.Contestant = req.ContestantSeconds
	}
	if req.ChaserSeconds > 0 {
		clocks.Chaser = req.ChaserSeconds
	}

	cfg := duel.Config{
		ID:                  uuid.NewString(),
		Mode:                mode,
		ContestantSeconds:   clocks.Contestant,
		ChaserSeconds:       clocks.Chaser,
		Tier:                req.Tier,
		Control:             req.Control,
		ContestantQuestions: contestantQs,
		ChaserQuestions:     chaserQs,
		FeedbackDelay:       s.defaults.FeedbackDelay,
	}
	if err := cfg.Validate(); err != nil {
		return DuelView{}, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	chaser := opponent.NewService(rand.New(rand.NewSource(seed)),
		opponent.WithProfiles(s.defaults.Profiles),
		opponent.WithFixedDelay(s.defaults.ThinkDelay),
	)

	var d *Duel
	loop := scheduler.NewLoop(s.clock, scheduler.WithPanicHandler(func(r any) { s.crashed(d, r) }))
	d = newDuel(cfg.ID, mode, loop)
	session, err := duel.NewSession(cfg, loop, chaser, duel.Hooks{
		OnState: func(snap domain.Snapshot) {
			s.touch(d)
			d.publish(snap)
		},
		OnComplete: func(o domain.Outcome) { s.finish(d, o) },
	})
	if err != nil {
		loop.Close()
		return DuelView{}, err
	}
	d.session = session
	d.refreshed = s.clock.Now()
	d.idle = s.clock.AfterFunc(s.defaults.IdleTimeout, func() { s.expire(d) })

	s.sessions.Add(d)
	session.Start()
	log.Info().Str("duel_id", d.id).Str("mode", string(mode)).Str("quiz_id", req.QuizID).Int64("seed", seed).Msg("duel registered")
	return DuelView{ID: d.id, Snapshot: session.Snapshot()}, nil
}

// SubmitAnswer forwards an answer index to a running duel. Whether it is
// accepted is decided by the duel; invalid submissions are ignored there.
func (s *DuelService) SubmitAnswer(_ context.Context, duelID string, index int) error {
	d, ok := s.sessions.Get(duelID)
	if !ok {
		return domain.ErrDuelNotFound
	}
	s.touch(d)
	d.session.SubmitAnswer(index)
	return nil
}

// Continue moves a catch-up duel from its transition to the chase.
func (s *DuelService) Continue(_ context.Context, duelID string) error {
	d, ok := s.sessions.Get(duelID)
	if !ok {
		return domain.ErrDuelNotFound
	}
	s.touch(d)
	d.session.Continue()
	return nil
}

// Exit tears a duel down without reporting an outcome.
func (s *DuelService) Exit(_ context.Context, duelID string) error {
	d, ok := s.sessions.Get(duelID)
	if !ok {
		return domain.ErrDuelNotFound
	}
	s.sessions.Delete(duelID)
	d.stopIdle()
	d.session.Exit()
	d.loop.Post(func() {
		d.close()
		d.loop.Close()
	})
	return nil
}

// Snapshot returns the latest state of a running duel.
func (s *DuelService) Snapshot(_ context.Context, duelID string) (domain.Snapshot, error) {
	d, ok := s.sessions.Get(duelID)
	if !ok {
		return domain.Snapshot{}, domain.ErrDuelNotFound
	}
	s.touch(d)
	return d.Snapshot(), nil
}

// Subscribe returns a channel of snapshots for a duel, starting with the
// current one. The channel is closed after the final snapshot or when the
// duel exits. The caller must invoke the returned cancel function to avoid
// leaks.
func (s *DuelService) Subscribe(_ context.Context, duelID string) (<-chan domain.Snapshot, func(), error) {
	d, ok := s.sessions.Get(duelID)
	if !ok {
		return nil, nil, domain.ErrDuelNotFound
	}
	s.touch(d)
	ch, cancel := d.subscribe()
	return ch, cancel, nil
}

// finish runs on the duel's loop when the outcome is known.
func (s *DuelService) finish(d *Duel, o domain.Outcome) {
	if s.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.publisher.PublishOutcome(ctx, o); err != nil {
			log.Warn().Err(err).Str("duel_id", d.id).Msg("publish outcome failed")
		}
		cancel()
	}
	s.sessions.Delete(d.id)
	d.stopIdle()
	d.loop.Close()
}

// Live lists the IDs of running duels, as far as the registry knows them.
func (s *DuelService) Live(ctx context.Context) ([]string, error) {
	ids, err := s.sessions.Live(ctx)
	if err != nil {
		return nil, fmt.Errorf("list live duels: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *DuelService) touch(d *Duel) {
	if d.touch(s.clock.Now(), s.defaults.IdleTimeout, s.defaults.IdleTimeout/2) {
		s.sessions.Touch(d.id)
	}
}

// expire exits a duel nobody has driven for the idle timeout.
func (s *DuelService) expire(d *Duel) {
	if err := s.Exit(context.Background(), d.id); err != nil {
		return
	}
	log.Info().Str("duel_id", d.id).Dur("idle", s.defaults.IdleTimeout).Msg("idle duel exited")
}

// crashed runs on the duel's loop after a continuation panicked. The loop is
// already closed; the duel is dropped without an outcome.
func (s *DuelService) crashed(d *Duel, r any) {
	log.Error().Str("duel_id", d.id).Interface("panic", r).Msg("duel aborted")
	s.sessions.Delete(d.id)
	d.close()
}
