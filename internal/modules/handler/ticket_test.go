package handler

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/service"
)

func TestTicketHandler_GetTickets(t *testing.T) {
	projectID := uuid.New()

	tests := []struct {
		name           string
		query          string
		setup          func(*MockTicketService)
		expectedStatus int
	}{
		{
			name:  "defaults",
			query: "",
			setup: func(svc *MockTicketService) {
				svc.On("List", mock.Anything, mock.Anything, service.ListTicketsInput{Limit: 20, TimeDesc: true}).
					Return(&service.ListTicketsOutput{Items: []model.Ticket{{ID: uuid.New(), Title: "Printer"}}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:  "filters are forwarded",
			query: fmt.Sprintf("?status=in_progress&priority=urgent&project_id=%s&q=vpn&limit=5&time_desc=false", projectID),
			setup: func(svc *MockTicketService) {
				svc.On("List", mock.Anything, mock.Anything, service.ListTicketsInput{
					Status:    model.StatusInProgress,
					Priority:  model.PriorityUrgent,
					ProjectID: &projectID,
					Query:     "vpn",
					Limit:     5,
				}).Return(&service.ListTicketsOutput{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown status",
			query:          "?status=closed",
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit too large",
			query:          "?limit=1000",
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad project id",
			query:          "?project_id=nope",
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "bad cursor",
			query: "?cursor=zzz",
			setup: func(svc *MockTicketService) {
				svc.On("List", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: bad cursor", service.ErrInvalidInput))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "service error",
			query: "",
			setup: func(svc *MockTicketService) {
				svc.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTicketService{}
			tt.setup(svc)
			h := NewTicketHandler(svc)

			w := serve(http.MethodGet, "/tickets", "/tickets"+tt.query, clientProfile(), h.GetTickets, nil, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketHandler_CreateTicket(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		setup          func(*MockTicketService)
		expectedStatus int
	}{
		{
			name: "created",
			body: map[string]any{"title": "VPN down", "description": "Cannot connect since 9am", "priority": "high"},
			setup: func(svc *MockTicketService) {
				svc.On("Create", mock.Anything, mock.Anything, service.CreateTicketInput{
					Title: "VPN down", Description: "Cannot connect since 9am", Priority: "high",
				}).Return(&model.Ticket{ID: uuid.New(), Title: "VPN down"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing title",
			body:           map[string]any{"description": "x"},
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad priority",
			body:           map[string]any{"title": "a", "description": "b", "priority": "critical"},
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "blank after trim",
			body: map[string]any{"title": "   ", "description": "b"},
			setup: func(svc *MockTicketService) {
				svc.On("Create", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: title is required", service.ErrInvalidInput))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "client cannot open for others",
			body: map[string]any{"title": "a", "description": "b", "client_id": uuid.New().String()},
			setup: func(svc *MockTicketService) {
				svc.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, service.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTicketService{}
			tt.setup(svc)
			h := NewTicketHandler(svc)

			w := serve(http.MethodPost, "/tickets", "/tickets", clientProfile(), h.CreateTicket, jsonBody(tt.body), jsonType)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketHandler_RequiresProfile(t *testing.T) {
	svc := &MockTicketService{}
	h := NewTicketHandler(svc)

	w := serve(http.MethodGet, "/tickets", "/tickets", nil, h.GetTickets, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestTicketHandler_GetTicket(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		path           string
		setup          func(*MockTicketService)
		expectedStatus int
	}{
		{
			name: "found",
			path: "/tickets/" + id.String(),
			setup: func(svc *MockTicketService) {
				svc.On("Get", mock.Anything, mock.Anything, id).Return(&model.Ticket{ID: id}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "hidden or missing",
			path: "/tickets/" + id.String(),
			setup: func(svc *MockTicketService) {
				svc.On("Get", mock.Anything, mock.Anything, id).Return(nil, service.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad id",
			path:           "/tickets/abc",
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTicketService{}
			tt.setup(svc)
			h := NewTicketHandler(svc)

			w := serve(http.MethodGet, "/tickets/:id", tt.path, clientProfile(), h.GetTicket, nil, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketHandler_UpdateTicketStatus(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		body           string
		setup          func(*MockTicketService)
		expectedStatus int
	}{
		{
			name: "resolved",
			body: `{"status":"resolved"}`,
			setup: func(svc *MockTicketService) {
				svc.On("UpdateStatus", mock.Anything, mock.Anything, id, model.StatusResolved).
					Return(&model.Ticket{ID: id, Status: model.StatusResolved}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "backwards move allowed",
			body: `{"status":"new"}`,
			setup: func(svc *MockTicketService) {
				svc.On("UpdateStatus", mock.Anything, mock.Anything, id, model.StatusNew).
					Return(&model.Ticket{ID: id, Status: model.StatusNew}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid status",
			body:           `{"status":"done"}`,
			setup:          func(*MockTicketService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing ticket",
			body: `{"status":"in_progress"}`,
			setup: func(svc *MockTicketService) {
				svc.On("UpdateStatus", mock.Anything, mock.Anything, id, model.StatusInProgress).Return(nil, service.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTicketService{}
			tt.setup(svc)
			h := NewTicketHandler(svc)

			w := serve(http.MethodPatch, "/tickets/:id/status", "/tickets/"+id.String()+"/status",
				staffProfile(), h.UpdateTicketStatus, strings.NewReader(tt.body), jsonType)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketHandler_MoveTicket(t *testing.T) {
	id := uuid.New()
	svc := &MockTicketService{}
	svc.On("Move", mock.Anything, mock.Anything, id, model.StatusResolved).Return(&model.Ticket{ID: id, Status: model.StatusResolved}, nil)
	h := NewTicketHandler(svc)

	w := serve(http.MethodPost, "/tickets/:id/move", "/tickets/"+id.String()+"/move",
		staffProfile(), h.MoveTicket, strings.NewReader(`{"to_status":"resolved"}`), jsonType)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestTicketHandler_ClaimTicket(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "claimed", err: nil, expectedStatus: http.StatusOK},
		{name: "already taken", err: service.ErrConflict, expectedStatus: http.StatusConflict},
		{name: "clients cannot claim", err: service.ErrForbidden, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTicketService{}
			if tt.err != nil {
				svc.On("Claim", mock.Anything, mock.Anything, id).Return(nil, tt.err)
			} else {
				svc.On("Claim", mock.Anything, mock.Anything, id).Return(&model.Ticket{ID: id, Status: model.StatusInProgress}, nil)
			}
			h := NewTicketHandler(svc)

			w := serve(http.MethodPost, "/tickets/:id/claim", "/tickets/"+id.String()+"/claim", staffProfile(), h.ClaimTicket, nil, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestTicketHandler_AssignTicket(t *testing.T) {
	id := uuid.New()
	assignee := uuid.New()

	t.Run("set", func(t *testing.T) {
		svc := &MockTicketService{}
		svc.On("Assign", mock.Anything, mock.Anything, id, &assignee).Return(&model.Ticket{ID: id, AssigneeID: &assignee}, nil)
		h := NewTicketHandler(svc)

		w := serve(http.MethodPatch, "/tickets/:id/assign", "/tickets/"+id.String()+"/assign",
			adminProfile(), h.AssignTicket, jsonBody(map[string]any{"assignee_id": assignee}), jsonType)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("clear", func(t *testing.T) {
		svc := &MockTicketService{}
		svc.On("Assign", mock.Anything, mock.Anything, id, (*uuid.UUID)(nil)).Return(&model.Ticket{ID: id}, nil)
		h := NewTicketHandler(svc)

		w := serve(http.MethodPatch, "/tickets/:id/assign", "/tickets/"+id.String()+"/assign",
			adminProfile(), h.AssignTicket, strings.NewReader(`{"assignee_id":null}`), jsonType)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestTicketHandler_Bulk(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	t.Run("status in one call", func(t *testing.T) {
		svc := &MockTicketService{}
		svc.On("BulkUpdateStatus", mock.Anything, mock.Anything, ids, model.StatusResolved).Return(ids, nil).Once()
		h := NewTicketHandler(svc)

		w := serve(http.MethodPost, "/tickets/bulk/status", "/tickets/bulk/status", staffProfile(), h.BulkUpdateStatus,
			jsonBody(map[string]any{"ids": ids, "status": "resolved"}), jsonType)

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data BulkResp `json:"data"`
		}
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ids, resp.Data.IDs)
		svc.AssertExpectations(t)
	})

	t.Run("failure is reported", func(t *testing.T) {
		svc := &MockTicketService{}
		svc.On("BulkArchive", mock.Anything, mock.Anything, ids).Return(nil, errors.New("tx aborted"))
		h := NewTicketHandler(svc)

		w := serve(http.MethodPost, "/tickets/bulk/archive", "/tickets/bulk/archive", staffProfile(), h.BulkArchive,
			jsonBody(map[string]any{"ids": ids}), jsonType)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unarchive", func(t *testing.T) {
		svc := &MockTicketService{}
		svc.On("BulkUnarchive", mock.Anything, mock.Anything, ids[:1]).Return(ids[:1], nil)
		h := NewTicketHandler(svc)

		w := serve(http.MethodPost, "/tickets/bulk/unarchive", "/tickets/bulk/unarchive", staffProfile(), h.BulkUnarchive,
			jsonBody(map[string]any{"ids": ids[:1]}), jsonType)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("empty selection", func(t *testing.T) {
		svc := &MockTicketService{}
		h := NewTicketHandler(svc)

		w := serve(http.MethodPost, "/tickets/bulk/archive", "/tickets/bulk/archive", staffProfile(), h.BulkArchive,
			strings.NewReader(`{"ids":[]}`), jsonType)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "BulkArchive", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTicketHandler_CreateVoiceTicket(t *testing.T) {
	projectID := uuid.New()
	audio := []byte("RIFF....WAVEfmt ")

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("audio", "note.wav")
	require.NoError(t, err)
	_, _ = fw.Write(audio)
	require.NoError(t, mw.WriteField("project_id", projectID.String()))
	require.NoError(t, mw.Close())

	svc := &MockTicketService{}
	svc.On("CreateFromVoice", mock.Anything, mock.Anything, service.VoiceTicketInput{
		Filename:  "note.wav",
		Data:      audio,
		ProjectID: &projectID,
	}).Return(&model.Ticket{ID: uuid.New(), Source: model.SourceVoice}, nil)
	h := NewTicketHandler(svc)

	w := serve(http.MethodPost, "/tickets/voice", "/tickets/voice", clientProfile(), h.CreateVoiceTicket, body, mw.FormDataContentType())

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestTicketHandler_CreateVoiceTicketWithoutFile(t *testing.T) {
	svc := &MockTicketService{}
	h := NewTicketHandler(svc)

	w := serve(http.MethodPost, "/tickets/voice", "/tickets/voice", clientProfile(), h.CreateVoiceTicket, strings.NewReader(""), jsonType)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketHandler_CreateChatTicket(t *testing.T) {
	svc := &MockTicketService{}
	svc.On("CreateFromChat", mock.Anything, mock.Anything, mock.MatchedBy(func(in service.ChatTicketInput) bool {
		return len(in.Messages) == 2 && in.Messages[0].Content == "my laptop will not boot"
	})).Return(&model.Ticket{ID: uuid.New(), Source: model.SourceAIChat}, nil)
	h := NewTicketHandler(svc)

	body := `{"messages":[{"role":"user","content":"my laptop will not boot"},{"role":"assistant","content":"Is the charger connected?"}]}`
	w := serve(http.MethodPost, "/tickets/chat", "/tickets/chat", clientProfile(), h.CreateChatTicket, strings.NewReader(body), jsonType)

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestTicketHandler_GetBoard(t *testing.T) {
	svc := &MockTicketService{}
	svc.On("Board", mock.Anything, mock.Anything, mock.Anything).Return(&service.BoardOutput{
		Columns: map[string][]model.Ticket{model.StatusNew: {}, model.StatusInProgress: {}, model.StatusResolved: {}},
		Order:   model.Statuses,
	}, nil)
	h := NewTicketHandler(svc)

	w := serve(http.MethodGet, "/tickets/board", "/tickets/board", staffProfile(), h.GetBoard, nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data service.BoardOutput `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Columns, 3)
	svc.AssertExpectations(t)
}

func TestTicketHandler_UpdateTicket(t *testing.T) {
	id := uuid.New()
	title := "Renamed"
	svc := &MockTicketService{}
	svc.On("Update", mock.Anything, mock.Anything, id, service.UpdateTicketInput{Title: &title, ClearProject: true}).
		Return(&model.Ticket{ID: id, Title: title}, nil)
	h := NewTicketHandler(svc)

	w := serve(http.MethodPatch, "/tickets/:id", "/tickets/"+id.String(), staffProfile(), h.UpdateTicket,
		strings.NewReader(`{"title":"Renamed","clear_project":true}`), jsonType)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}
