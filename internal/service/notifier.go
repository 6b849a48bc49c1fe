package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/merit-go-api/internal/models"
)

// WorkflowEvent describes a terminal transition for downstream consumers
// (mailers, dashboards). The workflow engine publishes it fire-and-forget.
type WorkflowEvent struct {
	ID           string                  `json:"id"`
	SubmissionID uint                    `json:"submission_id"`
	StudentID    uint                    `json:"student_id"`
	ActorID      uint                    `json:"actor_id"`
	FromStatus   models.SubmissionStatus `json:"from_status"`
	ToStatus     models.SubmissionStatus `json:"to_status"`
	Credits      *float64                `json:"credits,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

// Notifier is the notification dispatcher collaborator. Implementations must
// never block the workflow on delivery guarantees.
type Notifier interface {
	Notify(ctx context.Context, event WorkflowEvent) error
}

type natsNotifier struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSNotifier publishes workflow events as JSON onto a NATS subject derived
// from the configured channel base.
func NewNATSNotifier(conn *nats.Conn, channelBase string, logger zerolog.Logger) Notifier {
	subject := "merit.workflow"
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".workflow"
	}

	return &natsNotifier{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_notifier").Logger(),
	}
}

func (n *natsNotifier) Notify(_ context.Context, event WorkflowEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.conn.Publish(n.subject, payload); err != nil {
		n.logger.Warn().Err(err).Str("subject", n.subject).Msg("failed to publish workflow event")
		return err
	}

	return nil
}

type noopNotifier struct{}

// NewNoopNotifier returns a dispatcher that drops events. Used when no broker
// is configured (local development, tests).
func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Notify(context.Context, WorkflowEvent) error { return nil }
