package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/cache"
	mq "github.com/ohfdesk/ohfdesk/internal/infra/queue"
	"github.com/ohfdesk/ohfdesk/internal/infra/realtime"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	JobTicketCreated  = "ticket_created"
	JobTicketAssigned = "ticket_assigned"
	JobInvite         = "invite"
	JobDigest         = "digest"
)

// Job is the payload of a notification message on the notify exchange.
type Job struct {
	Type      string     `json:"type"`
	TicketID  *uuid.UUID `json:"ticket_id,omitempty"`
	InviteID  *uuid.UUID `json:"invite_id,omitempty"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
	// Token is the raw invite token, only present on invite jobs.
	Token string    `json:"token,omitempty"`
	At    time.Time `json:"at"`
}

// Notifier fans out side effects of writes: realtime events, analytics cache
// invalidation and queued email jobs.
type Notifier interface {
	TicketChanged(ctx context.Context, eventType string, t *model.Ticket)
	TicketsChanged(ctx context.Context, eventType string, ids []uuid.UUID, status string)
	Enqueue(ctx context.Context, job Job) error
}

type notifier struct {
	rt        realtime.Publisher
	publisher *mq.Publisher
	rdb       redis.Cmdable
	cfg       *config.Config
	log       *zap.Logger
}

func NewNotifier(rt realtime.Publisher, publisher *mq.Publisher, rdb redis.Cmdable, cfg *config.Config, log *zap.Logger) Notifier {
	return &notifier{rt: rt, publisher: publisher, rdb: rdb, cfg: cfg, log: log}
}

func (n *notifier) TicketChanged(ctx context.Context, eventType string, t *model.Ticket) {
	n.TicketsChanged(ctx, eventType, []uuid.UUID{t.ID}, t.Status)
}

// TicketsChanged is best effort; failures are logged, never returned.
func (n *notifier) TicketsChanged(ctx context.Context, eventType string, ids []uuid.UUID, status string) {
	telemetry.RecordTicketEvent(ctx, eventType, len(ids))
	if n.rdb != nil {
		if err := cache.DeletePrefix(ctx, n.rdb, analyticsCachePrefix); err != nil {
			n.log.Warn("invalidate analytics cache", zap.Error(err))
		}
	}
	if n.rt == nil {
		return
	}
	now := time.Now().UTC()
	for _, id := range ids {
		if err := n.rt.Publish(ctx, realtime.Event{Type: eventType, TicketID: id, Status: status, At: now}); err != nil {
			n.log.Warn("publish realtime event", zap.String("type", eventType), zap.String("ticket_id", id.String()), zap.Error(err))
		}
	}
}

func (n *notifier) Enqueue(ctx context.Context, job Job) error {
	if n.publisher == nil {
		n.log.Debug("no publisher, dropping job", zap.String("type", job.Type))
		return nil
	}
	if job.At.IsZero() {
		job.At = time.Now().UTC()
	}
	return n.publisher.PublishJSON(ctx, n.cfg.RabbitMQ.ExchangeName.Notify, n.cfg.RabbitMQ.RoutingKey.Notify, job)
}
