package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ohfdesk/ohfdesk/internal/infra/realtime"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

func TestRealtimeHandler_StreamTickets(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()
	events := []realtime.Event{
		{Type: realtime.EventTicketStatus, TicketID: mine, Status: model.StatusResolved, At: time.Now()},
		{Type: realtime.EventTicketCreated, TicketID: other, At: time.Now()},
	}

	t.Run("admins receive everything", func(t *testing.T) {
		tickets := &MockTicketService{}
		h := NewRealtimeHandler(&stubSubscriber{events: events}, tickets)

		w := serve(http.MethodGet, "/realtime/tickets", "/realtime/tickets", adminProfile(), h.StreamTickets, nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream"), w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, "event:"+realtime.EventTicketStatus)
		assert.Contains(t, body, "event:"+realtime.EventTicketCreated)
		tickets.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("clients only see their tickets", func(t *testing.T) {
		tickets := &MockTicketService{}
		tickets.On("Get", mock.Anything, mock.Anything, mine).Return(&model.Ticket{ID: mine}, nil)
		tickets.On("Get", mock.Anything, mock.Anything, other).Return(nil, service.ErrNotFound)
		h := NewRealtimeHandler(&stubSubscriber{events: events}, tickets)

		w := serve(http.MethodGet, "/realtime/tickets", "/realtime/tickets", clientProfile(), h.StreamTickets, nil, "")

		body := w.Body.String()
		assert.Contains(t, body, mine.String())
		assert.False(t, strings.Contains(body, other.String()))
		tickets.AssertExpectations(t)
	})

	t.Run("employees are scoped like ticket reads", func(t *testing.T) {
		tickets := &MockTicketService{}
		tickets.On("Get", mock.Anything, mock.Anything, mine).Return(&model.Ticket{ID: mine}, nil)
		tickets.On("Get", mock.Anything, mock.Anything, other).Return(nil, service.ErrNotFound)
		h := NewRealtimeHandler(&stubSubscriber{events: events}, tickets)

		w := serve(http.MethodGet, "/realtime/tickets", "/realtime/tickets", staffProfile(), h.StreamTickets, nil, "")

		body := w.Body.String()
		assert.Contains(t, body, mine.String())
		assert.NotContains(t, body, other.String())
		tickets.AssertExpectations(t)
	})

	t.Run("subscribe failure", func(t *testing.T) {
		h := NewRealtimeHandler(&stubSubscriber{err: errors.New("redis down")}, &MockTicketService{})

		w := serve(http.MethodGet, "/realtime/tickets", "/realtime/tickets", staffProfile(), h.StreamTickets, nil, "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
