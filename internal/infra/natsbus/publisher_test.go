package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"chase-duel-service/internal/domain"
)

type fakeConn struct {
	msgs     []*nats.Msg
	flushErr error
	closed   bool
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }

func (f *fakeConn) Close() { f.closed = true }

func TestPublishOutcome(t *testing.T) {
	fc := &fakeConn{}
	p := newOutcomePublisher(fc, DefaultSubject)

	outcome := domain.Outcome{
		DuelID:          "duel-1",
		Mode:            domain.CatchUp,
		Winner:          domain.Chaser,
		Result:          domain.Loss,
		Reason:          domain.ReasonCaught,
		ContestantScore: 5,
		ChaserScore:     6,
	}
	if err := p.PublishOutcome(context.Background(), outcome); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fc.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(fc.msgs))
	}
	msg := fc.msgs[0]
	if msg.Subject != "duel.outcomes.catchup" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.Header.Get("Duel-ID") != "duel-1" {
		t.Fatalf("missing duel header: %v", msg.Header)
	}

	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.EventType != "duel.completed" || env.Payload.Winner != domain.Chaser || env.Payload.ChaserScore != 6 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.EventID == "" || env.EventID != msg.Header.Get("Event-ID") {
		t.Fatalf("event id mismatch: %q vs %q", env.EventID, msg.Header.Get("Event-ID"))
	}

	_ = p.Close()
	if !fc.closed {
		t.Fatalf("expected connection closed")
	}
}

func TestPublishOutcomeFlushError(t *testing.T) {
	boom := errors.New("no ack")
	p := newOutcomePublisher(&fakeConn{flushErr: boom}, DefaultSubject)
	if err := p.PublishOutcome(context.Background(), domain.Outcome{Mode: domain.Alternating}); !errors.Is(err, boom) {
		t.Fatalf("expected flush error, got %v", err)
	}
}
