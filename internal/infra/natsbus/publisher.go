package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/domain"
)

// DefaultSubject is the subject prefix outcomes are published under.
const DefaultSubject = "duel.outcomes"

// Config describes the NATS connection.
type Config struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       DefaultSubject,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// OutcomePublisher publishes finished duels as JSON on {subject}.{mode}.
type OutcomePublisher struct {
	nc      conn
	subject string
}

// Connect dials NATS with reconnect handling and returns a publisher.
func Connect(cfg Config) (*OutcomePublisher, error) {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	opts := []nats.Option{
		nats.Name("chase-duel-service"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newOutcomePublisher(nc, cfg.Subject), nil
}

func newOutcomePublisher(nc conn, subject string) *OutcomePublisher {
	return &OutcomePublisher{nc: nc, subject: subject}
}

type envelope struct {
	EventID   string         `json:"eventId"`
	EventType string         `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   domain.Outcome `json:"payload"`
}

// PublishOutcome sends the outcome and waits for the server to acknowledge
// the flush or ctx to end.
func (p *OutcomePublisher) PublishOutcome(ctx context.Context, outcome domain.Outcome) error {
	subject := fmt.Sprintf("%s.%s", p.subject, outcome.Mode)
	eventID := uuid.NewString()

	data, err := json.Marshal(envelope{
		EventID:   eventID,
		EventType: "duel.completed",
		Timestamp: time.Now().UTC(),
		Payload:   outcome,
	})
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	err = p.nc.PublishMsg(&nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{"duel.completed"},
			"Duel-ID":    []string{outcome.DuelID},
			"Event-ID":   []string{eventID},
		},
	})
	if err != nil {
		return fmt.Errorf("publish outcome: %w", err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush outcome: %w", err)
	}

	log.Info().
		Str("subject", subject).
		Str("event_id", eventID).
		Str("duel_id", outcome.DuelID).
		Msg("published duel outcome")
	return nil
}

func (p *OutcomePublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
