// Package realtime fans ticket changes out to connected portals through Redis pub/sub.
package realtime

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const Channel = "ohfdesk:tickets"

const (
	EventTicketCreated  = "ticket.created"
	EventTicketUpdated  = "ticket.updated"
	EventTicketStatus   = "ticket.status"
	EventTicketAssigned = "ticket.assigned"
	EventTicketArchived = "ticket.archived"
	EventActivityAdded  = "activity.created"
)

type Event struct {
	Type     string    `json:"type"`
	TicketID uuid.UUID `json:"ticket_id"`
	Status   string    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Hub struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{rdb: rdb, log: log}
}

func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return h.rdb.Publish(ctx, Channel, b).Err()
}

// Subscribe delivers events until ctx is done. The returned channel is closed
// when the subscription ends. Undecodable payloads are dropped.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := h.rdb.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := sonic.UnmarshalString(m.Payload, &ev); err != nil {
					h.log.Warn("drop realtime payload", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Nop discards events; used when Redis is not wired (tests, CLI commands).
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
