package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventPublisher announces participation domain events for downstream
// consumers (notification fanout, analytics). Publishing is best-effort: a
// failed publish never fails the triggering transaction.
type EventPublisher interface {
	WaitlistPromoted(ctx context.Context, activityID, userID uuid.UUID)
	InvitationsSent(ctx context.Context, activityID uuid.UUID, userIDs []uuid.UUID)
}

type natsEventPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

type participationEvent struct {
	ActivityID uuid.UUID   `json:"activity_id"`
	UserID     uuid.UUID   `json:"user_id,omitempty"`
	UserIDs    []uuid.UUID `json:"user_ids,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEventPublisher builds a NATS-backed publisher. A nil connection yields a
// no-op publisher so the engine runs without an event broker.
func NewEventPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	return &natsEventPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) WaitlistPromoted(ctx context.Context, activityID, userID uuid.UUID) {
	p.publish("participation.waitlist.promoted", participationEvent{
		ActivityID: activityID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *natsEventPublisher) InvitationsSent(ctx context.Context, activityID uuid.UUID, userIDs []uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}

	p.publish("participation.invitations.sent", participationEvent{
		ActivityID: activityID,
		UserIDs:    userIDs,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *natsEventPublisher) publish(subject string, event participationEvent) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
