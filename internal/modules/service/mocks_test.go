package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/infra/ai"
	"github.com/ohfdesk/ohfdesk/internal/infra/blob"
	"github.com/ohfdesk/ohfdesk/internal/infra/mailer"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/stretchr/testify/mock"
)

// MockTicketRepo is a mock implementation of TicketRepo
type MockTicketRepo struct {
	mock.Mock
}

func (m *MockTicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTicketRepo) CreateWithActivity(ctx context.Context, t *model.Ticket, a *model.Activity) error {
	args := m.Called(ctx, t, a)
	return args.Error(0)
}

func (m *MockTicketRepo) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) ListWithCursor(ctx context.Context, f repo.TicketFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]model.Ticket, error) {
	args := m.Called(ctx, f, afterCreatedAt, afterID, limit, timeDesc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) List(ctx context.Context, f repo.TicketFilter, limit int) ([]model.Ticket, error) {
	args := m.Called(ctx, f, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Ticket, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Ticket, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) Claim(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) Assign(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (*model.Ticket, error) {
	args := m.Called(ctx, id, assigneeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ticket), args.Error(1)
}

func (m *MockTicketRepo) BulkUpdateStatus(ctx context.Context, scope repo.TicketScope, ids []uuid.UUID, status string) ([]uuid.UUID, error) {
	args := m.Called(ctx, scope, ids, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTicketRepo) BulkSetArchived(ctx context.Context, scope repo.TicketScope, ids []uuid.UUID, archived bool) ([]uuid.UUID, error) {
	args := m.Called(ctx, scope, ids, archived)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockActivityRepo is a mock implementation of ActivityRepo
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) List(ctx context.Context, ticketID uuid.UUID) ([]model.Activity, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Activity), args.Error(1)
}

func (m *MockActivityRepo) Get(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *MockActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockActivityRepo) SaveWorkSession(ctx context.Context, ticketID uuid.UUID, activities []model.Activity, summary *model.Summary) error {
	args := m.Called(ctx, ticketID, activities, summary)
	return args.Error(0)
}

func (m *MockActivityRepo) ListSummaries(ctx context.Context, ticketID uuid.UUID) ([]model.Summary, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Summary), args.Error(1)
}

func (m *MockActivityRepo) CreateSummary(ctx context.Context, s *model.Summary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockProjectRepo is a mock implementation of ProjectRepo
type MockProjectRepo struct {
	mock.Mock
}

func (m *MockProjectRepo) Create(ctx context.Context, p *model.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProjectRepo) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) List(ctx context.Context) ([]model.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

func (m *MockProjectRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Project, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectRepo) ListMembers(ctx context.Context, projectID uuid.UUID) ([]model.ProjectMember, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProjectMember), args.Error(1)
}

func (m *MockProjectRepo) GetMember(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error) {
	args := m.Called(ctx, projectID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectMember), args.Error(1)
}

func (m *MockProjectRepo) GetMemberByEmail(ctx context.Context, projectID uuid.UUID, email string) (*model.ProjectMember, error) {
	args := m.Called(ctx, projectID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectMember), args.Error(1)
}

func (m *MockProjectRepo) AddMember(ctx context.Context, pm *model.ProjectMember) error {
	args := m.Called(ctx, pm)
	return args.Error(0)
}

func (m *MockProjectRepo) UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role string) error {
	args := m.Called(ctx, projectID, userID, role)
	return args.Error(0)
}

func (m *MockProjectRepo) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *MockProjectRepo) CreateInvite(ctx context.Context, inv *model.PendingInvite) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockProjectRepo) ListInvites(ctx context.Context, projectID uuid.UUID) ([]model.PendingInvite, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PendingInvite), args.Error(1)
}

func (m *MockProjectRepo) ListPendingInvitesForEmail(ctx context.Context, email string) ([]model.PendingInvite, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PendingInvite), args.Error(1)
}

func (m *MockProjectRepo) GetInvite(ctx context.Context, id uuid.UUID) (*model.PendingInvite, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingInvite), args.Error(1)
}

func (m *MockProjectRepo) GetInviteByTokenHMAC(ctx context.Context, lookup string) (*model.PendingInvite, error) {
	args := m.Called(ctx, lookup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingInvite), args.Error(1)
}

func (m *MockProjectRepo) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) (*model.ProjectMember, error) {
	args := m.Called(ctx, inviteID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectMember), args.Error(1)
}

func (m *MockProjectRepo) RejectInvite(ctx context.Context, inviteID uuid.UUID) error {
	args := m.Called(ctx, inviteID)
	return args.Error(0)
}

// MockProfileRepo is a mock implementation of ProfileRepo
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepo) GetOrCreate(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Profile, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepo) ListWithCursor(ctx context.Context, role string, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.Profile, error) {
	args := m.Called(ctx, role, afterCreatedAt, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Profile), args.Error(1)
}

func (m *MockProfileRepo) ListDigestSubscribers(ctx context.Context) ([]model.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Profile), args.Error(1)
}

func (m *MockProfileRepo) StampDigest(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockTemplateRepo is a mock implementation of TemplateRepo
type MockTemplateRepo struct {
	mock.Mock
}

func (m *MockTemplateRepo) Create(ctx context.Context, t *model.ResponseTemplate) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTemplateRepo) CreateBatch(ctx context.Context, ts []model.ResponseTemplate) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

func (m *MockTemplateRepo) Get(ctx context.Context, id uuid.UUID) (*model.ResponseTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResponseTemplate), args.Error(1)
}

func (m *MockTemplateRepo) List(ctx context.Context, category, query string) ([]model.ResponseTemplate, error) {
	args := m.Called(ctx, category, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ResponseTemplate), args.Error(1)
}

func (m *MockTemplateRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.ResponseTemplate, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ResponseTemplate), args.Error(1)
}

func (m *MockTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAnalyticsRepo is a mock implementation of AnalyticsRepo
type MockAnalyticsRepo struct {
	mock.Mock
}

func (m *MockAnalyticsRepo) CountByStatus(ctx context.Context, projectID *uuid.UUID) ([]repo.CountRow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repo.CountRow), args.Error(1)
}

func (m *MockAnalyticsRepo) CountByPriority(ctx context.Context, projectID *uuid.UUID) ([]repo.CountRow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repo.CountRow), args.Error(1)
}

func (m *MockAnalyticsRepo) CountOpenUrgent(ctx context.Context, projectID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsRepo) CountResolvedSince(ctx context.Context, projectID *uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, projectID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsRepo) AvgResolutionHours(ctx context.Context, projectID *uuid.UUID) (float64, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockAnalyticsRepo) Workload(ctx context.Context, projectID *uuid.UUID) ([]repo.WorkloadRow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repo.WorkloadRow), args.Error(1)
}

func (m *MockAnalyticsRepo) CreatedPerDay(ctx context.Context, projectID *uuid.UUID, since time.Time) ([]repo.DailyRow, error) {
	args := m.Called(ctx, projectID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repo.DailyRow), args.Error(1)
}

// MockNotifier records side effects without publishing anything.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) TicketChanged(ctx context.Context, eventType string, t *model.Ticket) {
	m.Called(ctx, eventType, t)
}

func (m *MockNotifier) TicketsChanged(ctx context.Context, eventType string, ids []uuid.UUID, status string) {
	m.Called(ctx, eventType, ids, status)
}

func (m *MockNotifier) Enqueue(ctx context.Context, job Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockCompleter is a mock implementation of ai.Completer and ai.Transcriber
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Stream feeds the chunks given as the first return value to onChunk.
func (m *MockCompleter) Stream(ctx context.Context, req ai.Request, onChunk func(string) error) error {
	args := m.Called(ctx, req)
	if chunks, ok := args.Get(0).([]string); ok {
		for _, c := range chunks {
			if err := onChunk(c); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

func (m *MockCompleter) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	args := m.Called(ctx, filename)
	return args.String(0), args.Error(1)
}

// MockStore is a mock implementation of ObjectStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UploadBytes(ctx context.Context, key string, data []byte, mimeType string) (*blob.UploadedMeta, error) {
	args := m.Called(ctx, key, data, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blob.UploadedMeta), args.Error(1)
}

func (m *MockStore) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockMailer is a mock implementation of mailer.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
