package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/models"
	"github.com/noah-isme/trainersamay-api/pkg/config"
)

// Kind names a session lifecycle event.
type Kind string

const (
	SessionCreated Kind = "session.created"
	SessionUpdated Kind = "session.updated"
	SessionDeleted Kind = "session.deleted"
	SessionAbsent  Kind = "session.absent"
)

// SessionEvent is the payload published for every session mutation.
type SessionEvent struct {
	EventID    string               `json:"event_id"`
	EventType  Kind                 `json:"event_type"`
	SessionID  string               `json:"session_id"`
	TrainerID  string               `json:"trainer_id"`
	Status     models.SessionStatus `json:"status"`
	StartAt    time.Time            `json:"start_at"`
	Duration   int                  `json:"duration"`
	ActorID    string               `json:"actor_id,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// NewSessionEvent snapshots s for publication.
func NewSessionEvent(kind Kind, s models.Session, actorID string) SessionEvent {
	return SessionEvent{
		EventID:    uuid.NewString(),
		EventType:  kind,
		SessionID:  s.ID,
		TrainerID:  s.TrainerID,
		Status:     s.Status,
		StartAt:    s.Date,
		Duration:   s.Duration,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher emits session lifecycle events.
type Publisher interface {
	PublishSession(ctx context.Context, kind Kind, s models.Session, actorID string) error
	Close()
}

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NatsPublisher publishes JSON events to NATS subjects of the form
// "<prefix>.session.<action>".
type NatsPublisher struct {
	conn   natsConn
	prefix string
	logger *zap.Logger
}

// NewNatsPublisher dials NATS and keeps reconnecting in the background.
func NewNatsPublisher(url, prefix string, logger *zap.Logger) (*NatsPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("trainersamay-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newNatsPublisher(nc, prefix, logger), nil
}

func newNatsPublisher(conn natsConn, prefix string, logger *zap.Logger) *NatsPublisher {
	return &NatsPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject an event kind is published on.
func (p *NatsPublisher) Subject(kind Kind) string {
	if p.prefix == "" {
		return string(kind)
	}
	return p.prefix + "." + string(kind)
}

// PublishSession marshals and publishes one event.
func (p *NatsPublisher) PublishSession(ctx context.Context, kind Kind, s models.Session, actorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(NewSessionEvent(kind, s, actorID))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	subject := p.Subject(kind)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", subject), zap.String("session_id", s.ID))
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
	}
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// PublishSession implements Publisher.
func (NoopPublisher) PublishSession(context.Context, Kind, models.Session, string) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() {}

// New returns a NATS publisher, or a no-op one when no URL is configured.
func New(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		return NoopPublisher{}, nil
	}
	return NewNatsPublisher(cfg.NATSURL, cfg.SubjectPrefix, logger)
}
