package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/ai"
	"github.com/ohfdesk/ohfdesk/internal/infra/blob"
	"github.com/ohfdesk/ohfdesk/internal/infra/realtime"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
	"github.com/ohfdesk/ohfdesk/internal/pkg/paging"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// boardLimit caps how many tickets a single board view loads.
const boardLimit = 500

type TicketService interface {
	Create(ctx context.Context, actor *model.Profile, in CreateTicketInput) (*model.Ticket, error)
	Get(ctx context.Context, actor *model.Profile, id uuid.UUID) (*model.Ticket, error)
	List(ctx context.Context, actor *model.Profile, in ListTicketsInput) (*ListTicketsOutput, error)
	Board(ctx context.Context, actor *model.Profile, in ListTicketsInput) (*BoardOutput, error)
	Update(ctx context.Context, actor *model.Profile, id uuid.UUID, in UpdateTicketInput) (*model.Ticket, error)
	UpdateStatus(ctx context.Context, actor *model.Profile, id uuid.UUID, status string) (*model.Ticket, error)
	Move(ctx context.Context, actor *model.Profile, id uuid.UUID, toStatus string) (*model.Ticket, error)
	Claim(ctx context.Context, actor *model.Profile, id uuid.UUID) (*model.Ticket, error)
	Assign(ctx context.Context, actor *model.Profile, id uuid.UUID, assigneeID *uuid.UUID) (*model.Ticket, error)
	BulkUpdateStatus(ctx context.Context, actor *model.Profile, ids []uuid.UUID, status string) ([]uuid.UUID, error)
	BulkArchive(ctx context.Context, actor *model.Profile, ids []uuid.UUID) ([]uuid.UUID, error)
	BulkUnarchive(ctx context.Context, actor *model.Profile, ids []uuid.UUID) ([]uuid.UUID, error)
	CreateFromVoice(ctx context.Context, actor *model.Profile, in VoiceTicketInput) (*model.Ticket, error)
	CreateFromChat(ctx context.Context, actor *model.Profile, in ChatTicketInput) (*model.Ticket, error)
}

type ticketService struct {
	r           repo.TicketRepo
	projects    repo.ProjectRepo
	completer   ai.Completer
	transcriber ai.Transcriber
	store       ObjectStore
	notifier    Notifier
	cfg         *config.Config
	log         *zap.Logger
}

func NewTicketService(
	r repo.TicketRepo,
	projects repo.ProjectRepo,
	completer ai.Completer,
	transcriber ai.Transcriber,
	store ObjectStore,
	notifier Notifier,
	cfg *config.Config,
	log *zap.Logger,
) TicketService {
	return &ticketService{
		r:           r,
		projects:    projects,
		completer:   completer,
		transcriber: transcriber,
		store:       store,
		notifier:    notifier,
		cfg:         cfg,
		log:         log,
	}
}

type CreateTicketInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	ProjectID   *uuid.UUID `json:"project_id"`
	// ClientID lets staff open a ticket on behalf of a client.
	ClientID *uuid.UUID `json:"client_id"`
}

func (s *ticketService) Create(ctx context.Context, actor *model.Profile, in CreateTicketInput) (*model.Ticket, error) {
	t, err := s.newTicket(actor, in, model.SourceForm)
	if err != nil {
		return nil, err
	}
	if err := s.r.Create(ctx, t); err != nil {
		return nil, err
	}
	s.afterCreate(ctx, t)
	return t, nil
}

// newTicket validates input and applies defaults without touching storage.
func (s *ticketService) newTicket(actor *model.Profile, in CreateTicketInput, source string) (*model.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	if title == "" || desc == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}

	priority := strings.TrimSpace(in.Priority)
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}

	clientID := actor.ID
	if in.ClientID != nil && *in.ClientID != uuid.Nil {
		if !actor.IsStaff() && *in.ClientID != actor.ID {
			return nil, ErrForbidden
		}
		clientID = *in.ClientID
	}

	return &model.Ticket{
		Title:       title,
		Description: desc,
		Status:      model.StatusNew,
		Priority:    priority,
		ProjectID:   in.ProjectID,
		ClientID:    clientID,
		Source:      source,
	}, nil
}

func (s *ticketService) afterCreate(ctx context.Context, t *model.Ticket) {
	s.notifier.TicketChanged(ctx, realtime.EventTicketCreated, t)
	id := t.ID
	if err := s.notifier.Enqueue(ctx, Job{Type: JobTicketCreated, TicketID: &id}); err != nil {
		s.log.Warn("enqueue ticket_created", zap.String("ticket_id", id.String()), zap.Error(err))
	}
}

// canSee applies the portal visibility rules to a loaded ticket.
func (s *ticketService) canSee(ctx context.Context, actor *model.Profile, t *model.Ticket) (bool, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return true, nil
	case model.RoleEmployee:
		if t.AssigneeID == nil || *t.AssigneeID == actor.ID || t.ClientID == actor.ID {
			return true, nil
		}
		if t.ProjectID == nil {
			return false, nil
		}
		_, err := s.projects.GetMember(ctx, *t.ProjectID, actor.ID)
		if err != nil {
			if errors.Is(notFound(err), ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	default:
		return t.ClientID == actor.ID, nil
	}
}

func (s *ticketService) Get(ctx context.Context, actor *model.Profile, id uuid.UUID) (*model.Ticket, error) {
	t, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	ok, err := s.canSee(ctx, actor, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

type ListTicketsInput struct {
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	ProjectID  *uuid.UUID `json:"project_id"`
	AssigneeID *uuid.UUID `json:"assignee_id"`
	ClientID   *uuid.UUID `json:"client_id"`
	Unassigned bool       `json:"unassigned"`
	Query      string     `json:"q"`
	Archived   bool       `json:"archived"`
	Limit      int        `json:"limit"`
	Cursor     string     `json:"cursor"`
	TimeDesc   bool       `json:"time_desc"`
}

type ListTicketsOutput struct {
	Items      []model.Ticket `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

func (in ListTicketsInput) filter(actor *model.Profile) (repo.TicketFilter, error) {
	if in.Status != "" && !model.ValidStatus(in.Status) {
		return repo.TicketFilter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.Priority != "" && !model.ValidPriority(in.Priority) {
		return repo.TicketFilter{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}
	return repo.TicketFilter{
		Scope:      scopeOf(actor),
		Status:     in.Status,
		Priority:   in.Priority,
		ProjectID:  in.ProjectID,
		AssigneeID: in.AssigneeID,
		ClientID:   in.ClientID,
		Unassigned: in.Unassigned,
		Query:      strings.TrimSpace(in.Query),
		Archived:   in.Archived,
	}, nil
}

func (s *ticketService) List(ctx context.Context, actor *model.Profile, in ListTicketsInput) (*ListTicketsOutput, error) {
	f, err := in.filter(actor)
	if err != nil {
		return nil, err
	}

	// Parse cursor (createdAt, id); an empty cursor starts from the first page
	var afterT time.Time
	var afterID uuid.UUID
	if in.Cursor != "" {
		afterT, afterID, err = paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	// Query limit+1 is used to determine has_more
	tickets, err := s.r.ListWithCursor(ctx, f, afterT, afterID, in.Limit+1, in.TimeDesc)
	if err != nil {
		return nil, err
	}

	out := &ListTicketsOutput{Items: tickets}
	if len(tickets) > in.Limit {
		out.HasMore = true
		out.Items = tickets[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

// BoardOutput always carries the three status columns, possibly empty.
type BoardOutput struct {
	Columns map[string][]model.Ticket `json:"columns"`
	Order   []string                  `json:"order"`
}

func (s *ticketService) Board(ctx context.Context, actor *model.Profile, in ListTicketsInput) (*BoardOutput, error) {
	in.Status = ""
	f, err := in.filter(actor)
	if err != nil {
		return nil, err
	}
	tickets, err := s.r.List(ctx, f, boardLimit)
	if err != nil {
		return nil, err
	}
	return groupBoard(tickets), nil
}

func groupBoard(tickets []model.Ticket) *BoardOutput {
	out := &BoardOutput{Columns: make(map[string][]model.Ticket, len(model.Statuses)), Order: model.Statuses}
	for _, st := range model.Statuses {
		out.Columns[st] = []model.Ticket{}
	}
	for _, t := range tickets {
		if _, ok := out.Columns[t.Status]; ok {
			out.Columns[t.Status] = append(out.Columns[t.Status], t)
		}
	}
	return out
}

type UpdateTicketInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	ProjectID   *uuid.UUID `json:"project_id"`
	// ClearProject detaches the ticket from its project.
	ClearProject bool `json:"clear_project"`
}

func (in UpdateTicketInput) fields() (map[string]any, error) {
	fields := map[string]any{}
	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		fields["title"] = v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		if v == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", ErrInvalidInput)
		}
		fields["description"] = v
	}
	if in.Priority != nil {
		if !model.ValidPriority(*in.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *in.Priority)
		}
		fields["priority"] = *in.Priority
	}
	if in.ClearProject {
		fields["project_id"] = nil
	} else if in.ProjectID != nil {
		fields["project_id"] = *in.ProjectID
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return fields, nil
}

func (s *ticketService) Update(ctx context.Context, actor *model.Profile, id uuid.UUID, in UpdateTicketInput) (*model.Ticket, error) {
	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	t, err := s.r.Update(ctx, id, fields)
	if err != nil {
		return nil, notFound(err)
	}
	s.notifier.TicketChanged(ctx, realtime.EventTicketUpdated, t)
	return t, nil
}

// UpdateStatus sets any status from any status; only the value is validated.
func (s *ticketService) UpdateStatus(ctx context.Context, actor *model.Profile, id uuid.UUID, status string) (*model.Ticket, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	t, err := s.r.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, notFound(err)
	}
	s.notifier.TicketChanged(ctx, realtime.EventTicketStatus, t)
	return t, nil
}

// Move is the board drag-and-drop: the ticket takes the destination column's status.
func (s *ticketService) Move(ctx context.Context, actor *model.Profile, id uuid.UUID, toStatus string) (*model.Ticket, error) {
	return s.UpdateStatus(ctx, actor, id, toStatus)
}

func (s *ticketService) Claim(ctx context.Context, actor *model.Profile, id uuid.UUID) (*model.Ticket, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	t, err := s.r.Claim(ctx, id, actor.ID)
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyAssigned) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, notFound(err)
	}
	s.notifier.TicketChanged(ctx, realtime.EventTicketAssigned, t)
	return t, nil
}

func (s *ticketService) Assign(ctx context.Context, actor *model.Profile, id uuid.UUID, assigneeID *uuid.UUID) (*model.Ticket, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	t, err := s.r.Assign(ctx, id, assigneeID)
	if err != nil {
		return nil, notFound(err)
	}
	s.notifier.TicketChanged(ctx, realtime.EventTicketAssigned, t)
	if assigneeID != nil {
		tid := t.ID
		if err := s.notifier.Enqueue(ctx, Job{Type: JobTicketAssigned, TicketID: &tid, ProfileID: assigneeID}); err != nil {
			s.log.Warn("enqueue ticket_assigned", zap.String("ticket_id", tid.String()), zap.Error(err))
		}
	}
	return t, nil
}

func scopeOf(actor *model.Profile) repo.TicketScope {
	return repo.TicketScope{UserID: actor.ID, Role: actor.Role}
}

func validateIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no tickets selected", ErrInvalidInput)
	}
	return nil
}

// BulkUpdateStatus changes every selected ticket in one statement; on error
// nothing changed and the caller keeps its selection.
func (s *ticketService) BulkUpdateStatus(ctx context.Context, actor *model.Profile, ids []uuid.UUID, status string) ([]uuid.UUID, error) {
	if err := validateIDs(ids); err != nil {
		return nil, err
	}
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	updated, err := s.r.BulkUpdateStatus(ctx, scopeOf(actor), ids, status)
	if err != nil {
		return nil, fmt.Errorf("bulk update status: %w", err)
	}
	s.notifier.TicketsChanged(ctx, realtime.EventTicketStatus, updated, status)
	return updated, nil
}

func (s *ticketService) BulkArchive(ctx context.Context, actor *model.Profile, ids []uuid.UUID) ([]uuid.UUID, error) {
	return s.bulkArchive(ctx, actor, ids, true)
}

func (s *ticketService) BulkUnarchive(ctx context.Context, actor *model.Profile, ids []uuid.UUID) ([]uuid.UUID, error) {
	return s.bulkArchive(ctx, actor, ids, false)
}

func (s *ticketService) bulkArchive(ctx context.Context, actor *model.Profile, ids []uuid.UUID, archived bool) ([]uuid.UUID, error) {
	if err := validateIDs(ids); err != nil {
		return nil, err
	}
	updated, err := s.r.BulkSetArchived(ctx, scopeOf(actor), ids, archived)
	if err != nil {
		return nil, fmt.Errorf("bulk archive: %w", err)
	}
	s.notifier.TicketsChanged(ctx, realtime.EventTicketArchived, updated, "")
	return updated, nil
}

type VoiceTicketInput struct {
	Filename  string
	Data      []byte
	ProjectID *uuid.UUID
}

// CreateFromVoice stores the recording, transcribes it, lets the model draft
// the ticket and saves it with an audio activity.
func (s *ticketService) CreateFromVoice(ctx context.Context, actor *model.Profile, in VoiceTicketInput) (*model.Ticket, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty recording", ErrInvalidInput)
	}

	ticketID := uuid.New()
	key := blob.ObjectKey(fmt.Sprintf("tickets/%s/%s", ticketID, model.ActivityAudio), in.Filename)
	meta, err := s.store.UploadBytes(ctx, key, in.Data, "")
	if err != nil {
		return nil, fmt.Errorf("upload recording: %w", err)
	}

	start := time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, in.Filename, bytes.NewReader(in.Data))
	telemetry.RecordAIRequest(ctx, "transcribe", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("transcribe recording: %w", err)
	}
	if strings.TrimSpace(transcript) == "" {
		s.discard(ctx, key)
		return nil, fmt.Errorf("%w: no speech detected", ErrInvalidInput)
	}

	draft := s.draft(ctx, []chat.Message{{Role: chat.RoleUser, Content: transcript}}, transcript)
	t, err := s.newTicket(actor, CreateTicketInput{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		ProjectID:   in.ProjectID,
	}, model.SourceVoice)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	t.ID = ticketID

	url, err := s.store.PresignGet(ctx, meta.Key, s.cfg.PresignExpire())
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	act := &model.Activity{
		TicketID:  ticketID,
		Type:      model.ActivityAudio,
		Content:   &transcript,
		MediaURL:  &url,
		CreatedBy: actor.ID,
		Metadata: datatypes.JSONMap{
			model.MetaObjectKey:  meta.Key,
			model.MetaMIME:       meta.MIME,
			model.MetaSize:       meta.SizeB,
			model.MetaTranscript: transcript,
		},
	}
	if err := s.r.CreateWithActivity(ctx, t, act); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	s.afterCreate(ctx, t)
	return t, nil
}

type ChatTicketInput struct {
	Messages  []chat.Message
	ProjectID *uuid.UUID
}

func (s *ticketService) CreateFromChat(ctx context.Context, actor *model.Profile, in ChatTicketInput) (*model.Ticket, error) {
	var userText []string
	for _, m := range in.Messages {
		if m.Role == chat.RoleUser && strings.TrimSpace(m.Content) != "" {
			userText = append(userText, strings.TrimSpace(m.Content))
		}
	}
	if len(userText) == 0 {
		return nil, fmt.Errorf("%w: conversation has no customer messages", ErrInvalidInput)
	}

	transcript := chat.Transcript(in.Messages)
	draft := s.draft(ctx, []chat.Message{{Role: chat.RoleUser, Content: transcript}}, strings.Join(userText, "\n"))
	t, err := s.newTicket(actor, CreateTicketInput{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		ProjectID:   in.ProjectID,
	}, model.SourceAIChat)
	if err != nil {
		return nil, err
	}
	t.ID = uuid.New()

	msgs := make([]map[string]any, 0, len(in.Messages))
	for _, m := range in.Messages {
		msgs = append(msgs, map[string]any{"role": m.Role, "content": m.Content})
	}
	act := &model.Activity{
		TicketID:  t.ID,
		Type:      model.ActivityAIChat,
		Content:   &transcript,
		CreatedBy: actor.ID,
		Metadata:  datatypes.JSONMap{model.MetaMessages: msgs},
	}
	if err := s.r.CreateWithActivity(ctx, t, act); err != nil {
		return nil, err
	}
	s.afterCreate(ctx, t)
	return t, nil
}

// draft asks the model for a ticket draft and falls back to the raw source
// text when the call fails or the reply cannot be parsed.
func (s *ticketService) draft(ctx context.Context, msgs []chat.Message, source string) ai.TicketDraft {
	start := time.Now()
	reply, err := s.completer.Complete(ctx, ai.Request{System: ai.DraftSystemPrompt, Messages: msgs})
	telemetry.RecordAIRequest(ctx, "draft", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		s.log.Warn("ai draft failed, using fallback", zap.Error(err))
		return ai.FallbackDraft(source)
	}
	d, err := ai.ParseTicketDraft(reply)
	if err != nil {
		s.log.Warn("ai draft unparsable, using fallback", zap.Error(err))
		return ai.FallbackDraft(source)
	}
	if d.Title == "" || d.Description == "" {
		fb := ai.FallbackDraft(source)
		if d.Title == "" {
			d.Title = fb.Title
		}
		if d.Description == "" {
			d.Description = fb.Description
		}
	}
	return d
}

func (s *ticketService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("delete orphaned object", zap.String("key", key), zap.Error(err))
	}
}
