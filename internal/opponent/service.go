// Package opponent simulates the chaser: it thinks for a tier-dependent delay
// and then answers with tier-calibrated accuracy.
package opponent

import (
	"math/rand"
	"time"

	"chase-duel-service/internal/domain"
	"chase-duel-service/internal/scheduler"
)

// Profile is the behaviour of one difficulty tier.
type Profile struct {
	Accuracy float64
	MinThink time.Duration
	MaxThink time.Duration
}

// DefaultProfiles are used for tiers missing from the configured profiles.
var DefaultProfiles = map[domain.Tier]Profile{
	domain.Easy:   {Accuracy: 0.60, MinThink: 3 * time.Second, MaxThink: 6 * time.Second},
	domain.Medium: {Accuracy: 0.75, MinThink: 2 * time.Second, MaxThink: 4 * time.Second},
	domain.Hard:   {Accuracy: 0.90, MinThink: 1 * time.Second, MaxThink: 3 * time.Second},
}

// Service draws chaser answers. It holds a *rand.Rand and is therefore not
// safe for concurrent use; each duel owns its own Service.
type Service struct {
	rnd        *rand.Rand
	profiles   map[domain.Tier]Profile
	fixedDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithProfiles overrides tier profiles. Tiers not present keep their default.
func WithProfiles(profiles map[domain.Tier]Profile) Option {
	return func(s *Service) {
		for tier, p := range profiles {
			s.profiles[tier] = p
		}
	}
}

// WithFixedDelay replaces the drawn thinking delay with d when d > 0.
func WithFixedDelay(d time.Duration) Option {
	return func(s *Service) { s.fixedDelay = d }
}

// NewService builds a Service drawing from rnd. A nil rnd is seeded from the
// current time.
func NewService(rnd *rand.Rand, opts ...Option) *Service {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		rnd:      rnd,
		profiles: make(map[domain.Tier]Profile, len(DefaultProfiles)),
	}
	for tier, p := range DefaultProfiles {
		s.profiles[tier] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the profile for tier, falling back to medium.
func (s *Service) Profile(tier domain.Tier) Profile {
	if p, ok := s.profiles[tier]; ok {
		return p
	}
	return s.profiles[domain.Medium]
}

// Choose draws an answer index for q.
func (s *Service) Choose(tier domain.Tier, q domain.Question) int {
	if s.rnd.Float64() < s.Profile(tier).Accuracy {
		return q.Correct
	}
	wrong := s.rnd.Intn(domain.OptionCount - 1)
	if wrong >= q.Correct {
		wrong++
	}
	return wrong
}

// ThinkingDelay draws how long the chaser deliberates.
func (s *Service) ThinkingDelay(tier domain.Tier) time.Duration {
	if s.fixedDelay > 0 {
		return s.fixedDelay
	}
	p := s.Profile(tier)
	if p.MaxThink <= p.MinThink {
		return p.MinThink
	}
	return p.MinThink + time.Duration(s.rnd.Int63n(int64(p.MaxThink-p.MinThink)+1))
}

// Thought is a pending answer scheduled by Think.
type Thought struct {
	timer    scheduler.Timer
	thinking bool
}

// Thinking reports whether the answer is still pending.
func (t *Thought) Thinking() bool {
	return t != nil && t.thinking
}

// Cancel drops the pending answer. done will not be called.
func (t *Thought) Cancel() {
	if t == nil || !t.thinking {
		return
	}
	t.thinking = false
	t.timer.Stop()
}

// Think schedules done on sched with the drawn answer once the thinking delay
// has elapsed. The answer is drawn when the delay ends.
func (s *Service) Think(sched scheduler.Scheduler, tier domain.Tier, q domain.Question, done func(answer int)) *Thought {
	t := &Thought{thinking: true}
	t.timer = sched.After(s.ThinkingDelay(tier), func() {
		if !t.thinking {
			return
		}
		t.thinking = false
		done(s.Choose(tier, q))
	})
	return t
}
