package duel

import (
	"fmt"
	"time"

	"chase-duel-service/internal/domain"
)

// DefaultFeedbackDelay is how long an answer's feedback stays on screen.
const DefaultFeedbackDelay = 1500 * time.Millisecond

// Config is everything needed to start one duel.
type Config struct {
	ID                  string
	Mode                domain.Mode
	ContestantSeconds   int
	ChaserSeconds       int
	Tier                domain.Tier
	Control             domain.ControlMode
	ContestantQuestions []domain.Question
	ChaserQuestions     []domain.Question
	FeedbackDelay       time.Duration
}

// Validate reports why the configuration cannot be played.
func (c Config) Validate() error {
	if _, err := domain.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if _, err := domain.ParseTier(string(c.Tier)); err != nil {
		return err
	}
	switch c.Control {
	case "", domain.Simulated, domain.External:
	default:
		return fmt.Errorf("%w: control mode %q", domain.ErrInvalidConfig, c.Control)
	}
	if c.ContestantSeconds <= 0 || c.ChaserSeconds <= 0 {
		return fmt.Errorf("%w: clock seconds must be positive (contestant=%d chaser=%d)",
			domain.ErrInvalidConfig, c.ContestantSeconds, c.ChaserSeconds)
	}
	if c.FeedbackDelay < 0 {
		return fmt.Errorf("%w: negative feedback delay", domain.ErrInvalidConfig)
	}
	if len(c.ContestantQuestions) == 0 {
		return fmt.Errorf("%w: contestant queue is empty", domain.ErrNotEnoughQuestions)
	}
	if len(c.ChaserQuestions) == 0 {
		return fmt.Errorf("%w: chaser queue is empty", domain.ErrNotEnoughQuestions)
	}
	for _, q := range c.ContestantQuestions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	for _, q := range c.ChaserQuestions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// normalized fills defaults. It assumes Validate passed.
func (c Config) normalized() Config {
	c.Mode, _ = domain.ParseMode(string(c.Mode))
	c.Tier, _ = domain.ParseTier(string(c.Tier))
	if c.Control == "" {
		c.Control = domain.Simulated
	}
	return c
}

// SplitQuestions deals one question set into per-side queues. Alternating
// duels deal alternately starting with the contestant; catch-up duels give
// the first half to the solo round and the rest to the chase.
func SplitQuestions(mode domain.Mode, questions []domain.Question) (contestant, chaser []domain.Question) {
	if mode == domain.CatchUp {
		half := (len(questions) + 1) / 2
		contestant = append(contestant, questions[:half]...)
		chaser = append(chaser, questions[half:]...)
		return contestant, chaser
	}
	for i, q := range questions {
		if i%2 == 0 {
			contestant = append(contestant, q)
		} else {
			chaser = append(chaser, q)
		}
	}
	return contestant, chaser
}
