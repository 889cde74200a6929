package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/ohfdesk/ohfdesk/internal/pkg/utils/secrets"
	"github.com/ohfdesk/ohfdesk/internal/pkg/utils/tokens"
	"go.uber.org/zap"
)

type ProjectService interface {
	Create(ctx context.Context, actor *model.Profile, in ProjectInput) (*model.Project, error)
	Get(ctx context.Context, actor *model.Profile, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context, actor *model.Profile) ([]model.Project, error)
	Update(ctx context.Context, actor *model.Profile, id uuid.UUID, in UpdateProjectInput) (*model.Project, error)
	Delete(ctx context.Context, actor *model.Profile, id uuid.UUID) error

	ListMembers(ctx context.Context, actor *model.Profile, projectID uuid.UUID) ([]model.ProjectMember, error)
	AddMember(ctx context.Context, actor *model.Profile, projectID, userID uuid.UUID, role string) (*model.ProjectMember, error)
	UpdateMemberRole(ctx context.Context, actor *model.Profile, projectID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, actor *model.Profile, projectID, userID uuid.UUID) error

	Invite(ctx context.Context, actor *model.Profile, projectID uuid.UUID, email, role string) (*model.PendingInvite, error)
	ListInvites(ctx context.Context, actor *model.Profile, projectID uuid.UUID) ([]model.PendingInvite, error)
	ListMyInvites(ctx context.Context, actor *model.Profile) ([]model.PendingInvite, error)
	AcceptInvite(ctx context.Context, actor *model.Profile, inviteID uuid.UUID) (*model.ProjectMember, error)
	RejectInvite(ctx context.Context, actor *model.Profile, inviteID uuid.UUID) error
	AcceptInviteByToken(ctx context.Context, actor *model.Profile, token string) (*model.ProjectMember, error)
}

type projectService struct {
	r        repo.ProjectRepo
	notifier Notifier
	cfg      *config.Config
	log      *zap.Logger
}

func NewProjectService(r repo.ProjectRepo, notifier Notifier, cfg *config.Config, log *zap.Logger) ProjectService {
	return &projectService{r: r, notifier: notifier, cfg: cfg, log: log}
}

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *projectService) Create(ctx context.Context, actor *model.Profile, in ProjectInput) (*model.Project, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	p := &model.Project{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   actor.ID,
	}
	if err := s.r.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// memberRole returns the actor's role in the project, or "" when not a member.
func (s *projectService) memberRole(ctx context.Context, actor *model.Profile, projectID uuid.UUID) (string, error) {
	m, err := s.r.GetMember(ctx, projectID, actor.ID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return m.Role, nil
}

func (s *projectService) canView(ctx context.Context, actor *model.Profile, projectID uuid.UUID) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	role, err := s.memberRole(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if role == "" {
		return ErrNotFound
	}
	return nil
}

// canManage allows global admins and project admins.
func (s *projectService) canManage(ctx context.Context, actor *model.Profile, projectID uuid.UUID) error {
	if actor.Role == model.RoleAdmin {
		return nil
	}
	role, err := s.memberRole(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if role != model.MemberRoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *projectService) Get(ctx context.Context, actor *model.Profile, id uuid.UUID) (*model.Project, error) {
	if err := s.canView(ctx, actor, id); err != nil {
		return nil, err
	}
	p, err := s.r.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *projectService) List(ctx context.Context, actor *model.Profile) ([]model.Project, error) {
	if actor.Role == model.RoleAdmin {
		return s.r.List(ctx)
	}
	return s.r.ListForUser(ctx, actor.ID)
}

func (s *projectService) Update(ctx context.Context, actor *model.Profile, id uuid.UUID, in UpdateProjectInput) (*model.Project, error) {
	fields := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name cannot be empty", ErrInvalidInput)
		}
		fields["name"] = name
	}
	if in.Description != nil {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if err := s.canManage(ctx, actor, id); err != nil {
		return nil, err
	}
	p, err := s.r.Update(ctx, id, fields)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *projectService) Delete(ctx context.Context, actor *model.Profile, id uuid.UUID) error {
	if actor.Role != model.RoleAdmin {
		return ErrForbidden
	}
	return notFound(s.r.Delete(ctx, id))
}

func (s *projectService) ListMembers(ctx context.Context, actor *model.Profile, projectID uuid.UUID) ([]model.ProjectMember, error) {
	if err := s.canView(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.r.ListMembers(ctx, projectID)
}

func (s *projectService) AddMember(ctx context.Context, actor *model.Profile, projectID, userID uuid.UUID, role string) (*model.ProjectMember, error) {
	if !model.ValidMemberRole(role) {
		return nil, fmt.Errorf("%w: unknown member role %q", ErrInvalidInput, role)
	}
	if err := s.canManage(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if _, err := s.r.GetMember(ctx, projectID, userID); err == nil {
		return nil, fmt.Errorf("%w: user is already a member", ErrConflict)
	} else if !errors.Is(notFound(err), ErrNotFound) {
		return nil, err
	}
	m := &model.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := s.r.AddMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *projectService) UpdateMemberRole(ctx context.Context, actor *model.Profile, projectID, userID uuid.UUID, role string) error {
	if !model.ValidMemberRole(role) {
		return fmt.Errorf("%w: unknown member role %q", ErrInvalidInput, role)
	}
	if err := s.canManage(ctx, actor, projectID); err != nil {
		return err
	}
	return notFound(s.r.UpdateMemberRole(ctx, projectID, userID, role))
}

func (s *projectService) RemoveMember(ctx context.Context, actor *model.Profile, projectID, userID uuid.UUID) error {
	if err := s.canManage(ctx, actor, projectID); err != nil {
		return err
	}
	return notFound(s.r.RemoveMember(ctx, projectID, userID))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Invite creates a pending invite with a fresh token and queues the invite email.
func (s *projectService) Invite(ctx context.Context, actor *model.Profile, projectID uuid.UUID, email, role string) (*model.PendingInvite, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if !model.ValidMemberRole(role) {
		return nil, fmt.Errorf("%w: unknown member role %q", ErrInvalidInput, role)
	}
	if err := s.canManage(ctx, actor, projectID); err != nil {
		return nil, err
	}
	switch _, err := s.r.GetMemberByEmail(ctx, projectID, email); {
	case err == nil:
		return nil, fmt.Errorf("%w: %s is already a member", ErrConflict, email)
	case !errors.Is(notFound(err), ErrNotFound):
		return nil, err
	}

	raw, secret, err := tokens.New(tokens.InvitePrefix)
	if err != nil {
		return nil, err
	}
	phc, err := secrets.HashSecret(secret, s.cfg.Root.SecretPepper)
	if err != nil {
		return nil, err
	}

	inv := &model.PendingInvite{
		ProjectID:    projectID,
		Email:        email,
		Role:         role,
		Status:       model.InviteStatusPending,
		InvitedBy:    actor.ID,
		TokenHMAC:    tokens.HMAC256Hex(s.cfg.Root.SecretPepper, secret),
		TokenHashPHC: phc,
	}
	if err := s.r.CreateInvite(ctx, inv); err != nil {
		if errors.Is(err, repo.ErrDuplicateInvite) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	id := inv.ID
	if err := s.notifier.Enqueue(ctx, Job{Type: JobInvite, InviteID: &id, Token: raw}); err != nil {
		s.log.Warn("enqueue invite email", zap.String("invite_id", id.String()), zap.Error(err))
	}
	return inv, nil
}

func (s *projectService) ListInvites(ctx context.Context, actor *model.Profile, projectID uuid.UUID) ([]model.PendingInvite, error) {
	if err := s.canManage(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.r.ListInvites(ctx, projectID)
}

func (s *projectService) ListMyInvites(ctx context.Context, actor *model.Profile) ([]model.PendingInvite, error) {
	return s.r.ListPendingInvitesForEmail(ctx, actor.Email)
}

// checkInvite verifies the invite is still open and addressed to the actor.
func checkInvite(actor *model.Profile, inv *model.PendingInvite) error {
	if inv.Status != model.InviteStatusPending {
		return fmt.Errorf("%w: invite already %s", ErrConflict, inv.Status)
	}
	if normalizeEmail(inv.Email) != normalizeEmail(actor.Email) {
		return ErrForbidden
	}
	return nil
}

func (s *projectService) AcceptInvite(ctx context.Context, actor *model.Profile, inviteID uuid.UUID) (*model.ProjectMember, error) {
	inv, err := s.r.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, notFound(err)
	}
	return s.accept(ctx, actor, inv)
}

func (s *projectService) accept(ctx context.Context, actor *model.Profile, inv *model.PendingInvite) (*model.ProjectMember, error) {
	if err := checkInvite(actor, inv); err != nil {
		return nil, err
	}
	m, err := s.r.AcceptInvite(ctx, inv.ID, actor.ID)
	if err != nil {
		if errors.Is(err, repo.ErrInviteNotPending) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, notFound(err)
	}
	return m, nil
}

func (s *projectService) RejectInvite(ctx context.Context, actor *model.Profile, inviteID uuid.UUID) error {
	inv, err := s.r.GetInvite(ctx, inviteID)
	if err != nil {
		return notFound(err)
	}
	if err := checkInvite(actor, inv); err != nil {
		return err
	}
	if err := s.r.RejectInvite(ctx, inviteID); err != nil {
		if errors.Is(err, repo.ErrInviteNotPending) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return notFound(err)
	}
	return nil
}

// AcceptInviteByToken resolves the emailed token to its invite and accepts it.
func (s *projectService) AcceptInviteByToken(ctx context.Context, actor *model.Profile, token string) (*model.ProjectMember, error) {
	secret, ok := tokens.ParseToken(strings.TrimSpace(token), tokens.InvitePrefix)
	if !ok {
		return nil, fmt.Errorf("%w: malformed invite token", ErrInvalidInput)
	}
	inv, err := s.r.GetInviteByTokenHMAC(ctx, tokens.HMAC256Hex(s.cfg.Root.SecretPepper, secret))
	if err != nil {
		return nil, notFound(err)
	}
	if s.cfg.Root.EnableArgon2Verification {
		pass, err := secrets.VerifySecret(secret, s.cfg.Root.SecretPepper, inv.TokenHashPHC)
		if err != nil || !pass {
			return nil, ErrNotFound
		}
	}
	return s.accept(ctx, actor, inv)
}
