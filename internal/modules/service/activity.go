package service

import (
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
	"github.com/ohfdesk/ohfdesk/internal/pkg/tokenizer"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ActivityService interface {
	List(ctx context.Context, actor *model.Profile, ticketID uuid.UUID) ([]model.Activity, error)
	Create(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, in CreateActivityInput) (*model.Activity, error)
	Delete(ctx context.Context, actor *model.Profile, id uuid.UUID) error
	UploadMedia(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, in UploadMediaInput) (*model.Activity, error)
	SaveWorkSession(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, in WorkSessionInput) (*WorkSessionOutput, error)
	ListSummaries(ctx context.Context, actor *model.Profile, ticketID uuid.UUID) ([]model.Summary, error)
	CreateSummary(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, content string) (*model.Summary, error)
}

type activityService struct {
	r         repo.ActivityRepo
	tickets   TicketService
	completer ai.Completer
	store     ObjectStore
	notifier  Notifier
	cfg       *config.Config
	log       *zap.Logger
}

func NewActivityService(
	r repo.ActivityRepo,
	tickets TicketService,
	completer ai.Completer,
	store ObjectStore,
	notifier Notifier,
	cfg *config.Config,
	log *zap.Logger,
) ActivityService {
	return &activityService{
		r:         r,
		tickets:   tickets,
		completer: completer,
		store:     store,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

type CreateActivityInput struct {
	Type     string         `json:"type"`
	Content  *string        `json:"content"`
	MediaURL *string        `json:"media_url"`
	Metadata map[string]any `json:"metadata"`
}

func (in CreateActivityInput) validate() error {
	if !model.ValidActivityType(in.Type) {
		return fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, in.Type)
	}
	hasContent := in.Content != nil && strings.TrimSpace(*in.Content) != ""
	hasMedia := in.MediaURL != nil && strings.TrimSpace(*in.MediaURL) != ""
	if !hasContent && !hasMedia {
		return fmt.Errorf("%w: activity needs content or media", ErrInvalidInput)
	}
	return nil
}

func (in CreateActivityInput) build(ticketID, createdBy uuid.UUID) model.Activity {
	meta := datatypes.JSONMap{}
	for k, v := range in.Metadata {
		meta[k] = v
	}
	return model.Activity{
		TicketID:  ticketID,
		Type:      in.Type,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		Metadata:  meta,
		CreatedBy: createdBy,
	}
}

func (s *activityService) List(ctx context.Context, actor *model.Profile, ticketID uuid.UUID) ([]model.Activity, error) {
	if _, err := s.tickets.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	acts, err := s.r.List(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	s.refreshMediaURLs(ctx, acts)
	return acts, nil
}

// refreshMediaURLs replaces stored media links with freshly presigned ones.
// Stored links expire after s3.presignExpireSec; the object key does not.
func (s *activityService) refreshMediaURLs(ctx context.Context, acts []model.Activity) {
	if s.store == nil {
		return
	}
	for i := range acts {
		key, ok := acts[i].Metadata[model.MetaObjectKey].(string)
		if !ok || key == "" {
			continue
		}
		url, err := s.store.PresignGet(ctx, key, s.cfg.PresignExpire())
		if err != nil {
			s.log.Warn("presign activity media", zap.String("key", key), zap.Error(err))
			continue
		}
		acts[i].MediaURL = &url
	}
}

func (s *activityService) Create(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, in CreateActivityInput) (*model.Activity, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t, err := s.tickets.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	a := in.build(ticketID, actor.ID)
	if err := s.r.Create(ctx, &a); err != nil {
		return nil, err
	}
	s.notifier.TicketChanged(ctx, realtime.EventActivityAdded, t)
	return &a, nil
}

// Delete lets staff remove any activity and others only their own.
func (s *activityService) Delete(ctx context.Context, actor *model.Profile, id uuid.UUID) error {
	a, err := s.r.Get(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if !actor.IsStaff() && a.CreatedBy != actor.ID {
		return ErrForbidden
	}
	if err := s.r.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	if key, ok := a.Metadata[model.MetaObjectKey].(string); ok && key != "" && s.store != nil {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("delete activity media", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

type UploadMediaInput struct {
	Type     string
	Filename string
	Data     []byte
	// Draft uploads the file and returns the unsaved activity so it can be
	// submitted as part of a work session.
	Draft bool
}

func (s *activityService) UploadMedia(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, in UploadMediaInput) (*model.Activity, error) {
	if !model.IsMedia(in.Type) {
		return nil, fmt.Errorf("%w: %q is not a media activity", ErrInvalidInput, in.Type)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	t, err := s.tickets.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	key := blob.ObjectKey(fmt.Sprintf("tickets/%s/%s", ticketID, in.Type), in.Filename)
	meta, err := s.store.UploadBytes(ctx, key, in.Data, "")
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	url, err := s.store.PresignGet(ctx, meta.Key, s.cfg.PresignExpire())
	if err != nil {
		return nil, err
	}

	a := model.Activity{
		TicketID:  ticketID,
		Type:      in.Type,
		MediaURL:  &url,
		CreatedBy: actor.ID,
		Metadata: datatypes.JSONMap{
			model.MetaObjectKey: meta.Key,
			model.MetaMIME:      meta.MIME,
			model.MetaSize:      meta.SizeB,
		},
	}
	if in.Draft {
		return &a, nil
	}
	if err := s.r.Create(ctx, &a); err != nil {
		return nil, err
	}
	s.notifier.TicketChanged(ctx, realtime.EventActivityAdded, t)
	return &a, nil
}

type WorkSessionInput struct {
	Activities      []CreateActivityInput `json:"activities"`
	GenerateSummary bool                  `json:"generate_summary"`
	Notes           string                `json:"notes"`
}

type WorkSessionOutput struct {
	SessionID  uuid.UUID        `json:"session_id"`
	Activities []model.Activity `json:"activities"`
	Summary    *model.Summary   `json:"summary,omitempty"`
}

// SaveWorkSession stamps a fresh session id on every activity, generates the
// summary first when asked, then persists everything in one transaction.
// Any failure leaves nothing behind.
func (s *activityService) SaveWorkSession(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, in WorkSessionInput) (*WorkSessionOutput, error) {
	notes := strings.TrimSpace(in.Notes)
	if len(in.Activities) == 0 && notes == "" {
		return nil, fmt.Errorf("%w: work session is empty", ErrInvalidInput)
	}
	for _, a := range in.Activities {
		if err := a.validate(); err != nil {
			return nil, err
		}
	}
	t, err := s.tickets.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	acts := make([]model.Activity, 0, len(in.Activities)+1)
	for _, item := range in.Activities {
		a := item.build(ticketID, actor.ID)
		a.Metadata[model.MetaSessionID] = sessionID.String()
		acts = append(acts, a)
	}
	if notes != "" {
		acts = append(acts, model.Activity{
			TicketID:  ticketID,
			Type:      model.ActivityComment,
			Content:   &notes,
			CreatedBy: actor.ID,
			Metadata:  datatypes.JSONMap{model.MetaSessionID: sessionID.String()},
		})
	}

	var summary *model.Summary
	if in.GenerateSummary {
		content, err := s.summarize(ctx, t, acts)
		if err != nil {
			return nil, fmt.Errorf("generate summary: %w", err)
		}
		summary = &model.Summary{
			TicketID:    ticketID,
			Content:     content,
			CreatedBy:   actor.ID,
			CreatorRole: actor.Role,
			SessionID:   &sessionID,
		}
	}

	if err := s.r.SaveWorkSession(ctx, ticketID, acts, summary); err != nil {
		return nil, fmt.Errorf("save work session: %w", err)
	}
	s.notifier.TicketChanged(ctx, realtime.EventActivityAdded, t)
	return &WorkSessionOutput{SessionID: sessionID, Activities: acts, Summary: summary}, nil
}

func (s *activityService) summarize(ctx context.Context, t *model.Ticket, acts []model.Activity) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s\nStatus: %s\nPriority: %s\n\n%s\n\nSession activities:\n", t.Title, t.Status, t.Priority, t.Description)
	for _, a := range acts {
		line := ""
		if a.Content != nil {
			line = strings.TrimSpace(*a.Content)
		}
		if line == "" && a.MediaURL != nil {
			line = "(" + a.Type + " recording attached)"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", a.Type, line)
	}

	text := b.String()
	if truncated, err := tokenizer.Truncate(text, s.cfg.AI.SummaryTokenLimit); err == nil {
		text = truncated
	} else if !errors.Is(err, tokenizer.ErrNotInitialized) {
		return "", err
	}

	start := time.Now()
	reply, err := s.completer.Complete(ctx, ai.Request{
		System:   ai.SummarySystemPrompt,
		Messages: []chat.Message{{Role: chat.RoleUser, Content: text}},
	})
	telemetry.RecordAIRequest(ctx, "summary", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("empty summary from model")
	}
	return reply, nil
}

func (s *activityService) ListSummaries(ctx context.Context, actor *model.Profile, ticketID uuid.UUID) ([]model.Summary, error) {
	if _, err := s.tickets.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.r.ListSummaries(ctx, ticketID)
}

func (s *activityService) CreateSummary(ctx context.Context, actor *model.Profile, ticketID uuid.UUID, content string) (*model.Summary, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: summary content is required", ErrInvalidInput)
	}
	if _, err := s.tickets.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	sum := &model.Summary{
		TicketID:    ticketID,
		Content:     content,
		CreatedBy:   actor.ID,
		CreatorRole: actor.Role,
	}
	if err := s.r.CreateSummary(ctx, sum); err != nil {
		return nil, err
	}
	return sum, nil
}
