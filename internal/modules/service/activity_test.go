package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/ai"
	"github.com/ohfdesk/ohfdesk/internal/infra/blob"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type activityDeps struct {
	*ticketDeps
	activities *MockActivityRepo
}

func newActivityDeps(ticket *model.Ticket) *activityDeps {
	d := &activityDeps{ticketDeps: newTicketDeps(), activities: &MockActivityRepo{}}
	if ticket != nil {
		d.tickets.On("Get", mock.Anything, ticket.ID).Return(ticket, nil)
	}
	return d
}

func (d *activityDeps) service() ActivityService {
	cfg := &config.Config{AI: config.AICfg{SummaryTokenLimit: 1000}}
	return NewActivityService(d.activities, d.ticketDeps.service(), d.ai, d.store, d.notifier, cfg, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestActivityService_Create(t *testing.T) {
	ctx := context.Background()
	ticket := &model.Ticket{ID: uuid.New(), Title: "Printer", Status: model.StatusNew}

	tests := []struct {
		name    string
		in      CreateActivityInput
		setup   func(*activityDeps)
		wantErr error
	}{
		{
			name:    "unknown type",
			in:      CreateActivityInput{Type: "note", Content: strPtr("x")},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "no content or media",
			in:      CreateActivityInput{Type: model.ActivityComment, Content: strPtr("  ")},
			wantErr: ErrInvalidInput,
		},
		{
			name: "comment",
			in:   CreateActivityInput{Type: model.ActivityComment, Content: strPtr("Replaced toner"), Metadata: map[string]any{"k": "v"}},
			setup: func(d *activityDeps) {
				d.quiet()
				d.activities.On("Create", mock.Anything, mock.MatchedBy(func(a *model.Activity) bool {
					return a.TicketID == ticket.ID && a.Metadata["k"] == "v"
				})).Return(nil).Once()
			},
		},
		{
			name: "hidden ticket",
			in:   CreateActivityInput{Type: model.ActivityComment, Content: strPtr("hi")},
			setup: func(d *activityDeps) {
				d.tickets.ExpectedCalls = nil
				d.tickets.On("Get", mock.Anything, ticket.ID).Return(nil, gorm.ErrRecordNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newActivityDeps(ticket)
			if tt.setup != nil {
				tt.setup(d)
			}
			got, err := d.service().Create(ctx, admin(), ticket.ID, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				d.activities.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in.Type, got.Type)
			d.activities.AssertExpectations(t)
		})
	}
}

func TestActivityService_Delete(t *testing.T) {
	ctx := context.Background()
	owner := client()
	id := uuid.New()

	t.Run("client cannot delete others", func(t *testing.T) {
		d := newActivityDeps(nil)
		d.activities.On("Get", mock.Anything, id).Return(&model.Activity{ID: id, CreatedBy: uuid.New()}, nil)
		err := d.service().Delete(ctx, owner, id)
		assert.ErrorIs(t, err, ErrForbidden)
		d.activities.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("media object removed", func(t *testing.T) {
		d := newActivityDeps(nil)
		d.activities.On("Get", mock.Anything, id).Return(&model.Activity{
			ID:        id,
			CreatedBy: owner.ID,
			Metadata:  datatypes.JSONMap{model.MetaObjectKey: "tickets/x/audio/a.wav"},
		}, nil)
		d.activities.On("Delete", mock.Anything, id).Return(nil).Once()
		d.store.On("Delete", mock.Anything, "tickets/x/audio/a.wav").Return(nil).Once()

		require.NoError(t, d.service().Delete(ctx, owner, id))
		d.activities.AssertExpectations(t)
		d.store.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		d := newActivityDeps(nil)
		d.activities.On("Get", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)
		assert.ErrorIs(t, d.service().Delete(ctx, owner, id), ErrNotFound)
	})
}

func TestActivityService_UploadMedia(t *testing.T) {
	ctx := context.Background()
	ticket := &model.Ticket{ID: uuid.New()}
	data := []byte("\x1aE\xdf\xa3webm")

	t.Run("rejects non media type", func(t *testing.T) {
		d := newActivityDeps(ticket)
		_, err := d.service().UploadMedia(ctx, admin(), ticket.ID, UploadMediaInput{Type: model.ActivityComment, Data: data})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	tests := []struct {
		name  string
		draft bool
	}{
		{name: "saved", draft: false},
		{name: "draft not saved", draft: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newActivityDeps(ticket)
			d.quiet()
			d.store.On("UploadBytes", mock.Anything, mock.MatchedBy(func(k string) bool {
				return len(k) > 0 && k[:8] == "tickets/"
			}), data, "").Return(&blob.UploadedMeta{Key: "tickets/k.webm", MIME: "video/webm", SizeB: 8}, nil)
			// the link is signed for the key the store reports, not the requested one
			d.store.On("PresignGet", mock.Anything, "tickets/k.webm", mock.Anything).Return("https://signed", nil).Once()
			d.activities.On("Create", mock.Anything, mock.Anything).Return(nil)

			got, err := d.service().UploadMedia(ctx, admin(), ticket.ID, UploadMediaInput{
				Type: model.ActivityScreen, Filename: "screen.webm", Data: data, Draft: tt.draft,
			})
			require.NoError(t, err)
			assert.Equal(t, "https://signed", *got.MediaURL)
			assert.Equal(t, "video/webm", got.Metadata[model.MetaMIME])
			if tt.draft {
				d.activities.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			} else {
				d.activities.AssertNumberOfCalls(t, "Create", 1)
			}
		})
	}
}

func TestActivityService_ListRefreshesMediaURLs(t *testing.T) {
	ctx := context.Background()
	ticket := &model.Ticket{ID: uuid.New()}
	stale := "https://signed/expired"
	comment := "Rebooted router"

	d := newActivityDeps(ticket)
	d.activities.On("List", mock.Anything, ticket.ID).Return([]model.Activity{
		{Type: model.ActivityAudio, MediaURL: &stale, Metadata: datatypes.JSONMap{model.MetaObjectKey: "tickets/a.webm"}},
		{Type: model.ActivityVideo, MediaURL: &stale, Metadata: datatypes.JSONMap{model.MetaObjectKey: "tickets/b.webm"}},
		{Type: model.ActivityComment, Content: &comment},
	}, nil)
	d.store.On("PresignGet", mock.Anything, "tickets/a.webm", mock.Anything).Return("https://signed/fresh", nil)
	d.store.On("PresignGet", mock.Anything, "tickets/b.webm", mock.Anything).Return("", errors.New("s3 down"))

	got, err := d.service().List(ctx, admin(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "https://signed/fresh", *got[0].MediaURL)
	assert.Equal(t, stale, *got[1].MediaURL)
	assert.Nil(t, got[2].MediaURL)
	d.store.AssertNumberOfCalls(t, "PresignGet", 2)
}

func TestActivityService_SaveWorkSession(t *testing.T) {
	ctx := context.Background()
	ticket := &model.Ticket{ID: uuid.New(), Title: "VPN", Description: "drops", Status: model.StatusInProgress}
	acts := []CreateActivityInput{
		{Type: model.ActivityComment, Content: strPtr("Checked logs")},
		{Type: model.ActivityAudio, MediaURL: strPtr("https://signed/a.webm"), Metadata: map[string]any{model.MetaObjectKey: "a.webm"}},
	}

	t.Run("activities and summary in one save", func(t *testing.T) {
		d := newActivityDeps(ticket)
		d.quiet()
		emp := employee()
		d.ai.On("Complete", mock.Anything, mock.MatchedBy(func(r ai.Request) bool {
			return r.System == ai.SummarySystemPrompt
		})).Return("Investigated VPN logs.", nil).Once()

		var saved []model.Activity
		var savedSummary *model.Summary
		d.activities.On("SaveWorkSession", mock.Anything, ticket.ID, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				saved = args.Get(2).([]model.Activity)
				savedSummary = args.Get(3).(*model.Summary)
			}).Return(nil).Once()

		out, err := d.service().SaveWorkSession(ctx, emp, ticket.ID, WorkSessionInput{
			Activities: acts, GenerateSummary: true, Notes: "Follow up tomorrow",
		})
		require.NoError(t, err)
		d.activities.AssertNumberOfCalls(t, "SaveWorkSession", 1)

		require.Len(t, saved, 3)
		for _, a := range saved {
			assert.Equal(t, out.SessionID.String(), a.Metadata[model.MetaSessionID])
		}
		require.NotNil(t, savedSummary)
		assert.Equal(t, "Investigated VPN logs.", savedSummary.Content)
		assert.Equal(t, model.RoleEmployee, savedSummary.CreatorRole)
		assert.Equal(t, out.SessionID, *savedSummary.SessionID)
	})

	t.Run("summary failure persists nothing", func(t *testing.T) {
		d := newActivityDeps(ticket)
		d.ai.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model overloaded"))

		_, err := d.service().SaveWorkSession(ctx, admin(), ticket.ID, WorkSessionInput{Activities: acts, GenerateSummary: true})
		require.Error(t, err)
		d.activities.AssertNotCalled(t, "SaveWorkSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("save failure is returned", func(t *testing.T) {
		d := newActivityDeps(ticket)
		d.activities.On("SaveWorkSession", mock.Anything, ticket.ID, mock.Anything, (*model.Summary)(nil)).
			Return(errors.New("tx aborted")).Once()

		_, err := d.service().SaveWorkSession(ctx, admin(), ticket.ID, WorkSessionInput{Activities: acts})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tx aborted")
		d.notifier.AssertNotCalled(t, "TicketChanged", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid activity rejected before any call", func(t *testing.T) {
		d := newActivityDeps(ticket)
		_, err := d.service().SaveWorkSession(ctx, admin(), ticket.ID, WorkSessionInput{
			Activities: []CreateActivityInput{{Type: model.ActivityComment}},
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
		d.ai.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
		d.activities.AssertNotCalled(t, "SaveWorkSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty session", func(t *testing.T) {
		d := newActivityDeps(ticket)
		_, err := d.service().SaveWorkSession(ctx, admin(), ticket.ID, WorkSessionInput{Notes: "  "})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestActivityService_CreateSummary(t *testing.T) {
	ctx := context.Background()
	ticket := &model.Ticket{ID: uuid.New()}

	d := newActivityDeps(ticket)
	_, err := d.service().CreateSummary(ctx, admin(), ticket.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	d.activities.On("CreateSummary", mock.Anything, mock.MatchedBy(func(s *model.Summary) bool {
		return s.Content == "Done" && s.CreatorRole == model.RoleAdmin && s.SessionID == nil
	})).Return(nil).Once()
	got, err := d.service().CreateSummary(ctx, admin(), ticket.ID, " Done ")
	require.NoError(t, err)
	assert.Equal(t, "Done", got.Content)
	d.activities.AssertExpectations(t)
}
