package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ohfdesk/ohfdesk/internal/infra/realtime"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

const keepAliveInterval = 25 * time.Second

// Subscriber streams ticket change events.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan realtime.Event, error)
}

type RealtimeHandler struct {
	hub     Subscriber
	tickets service.TicketService
}

func NewRealtimeHandler(hub Subscriber, tickets service.TicketService) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, tickets: tickets}
}

// StreamTickets godoc
//
//	@Summary		Stream ticket changes
//	@Description	Server-Sent Events of ticket changes. Event names are the change types (ticket.created, ticket.status, ...). Clients only receive events for tickets they can see.
//	@Tags			realtime
//	@Produce		text/event-stream
//	@Security		BearerAuth
//	@Success		200	{object}	realtime.Event
//	@Router			/realtime/tickets [get]
func (h *RealtimeHandler) StreamTickets(c *gin.Context) {
	p, ok := actor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	events, err := h.hub.Subscribe(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, serializer.Err(http.StatusServiceUnavailable, "realtime unavailable", err))
		return
	}

	sseHeaders(c)
	c.Writer.Flush()

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			// admins see every ticket; everyone else only what Get lets them read
			if p.Role != model.RoleAdmin {
				if _, err := h.tickets.Get(ctx, p, ev.TicketID); err != nil {
					continue
				}
			}
			if err := writeEvent(c, ev.Type, ev); err != nil {
				return
			}
		}
	}
}
