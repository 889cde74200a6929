package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
	List(ctx context.Context) ([]model.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ListMembers(ctx context.Context, projectID uuid.UUID) ([]model.ProjectMember, error)
	GetMember(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error)
	GetMemberByEmail(ctx context.Context, projectID uuid.UUID, email string) (*model.ProjectMember, error)
	AddMember(ctx context.Context, m *model.ProjectMember) error
	UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error

	CreateInvite(ctx context.Context, inv *model.PendingInvite) error
	ListInvites(ctx context.Context, projectID uuid.UUID) ([]model.PendingInvite, error)
	ListPendingInvitesForEmail(ctx context.Context, email string) ([]model.PendingInvite, error)
	GetInvite(ctx context.Context, id uuid.UUID) (*model.PendingInvite, error)
	GetInviteByTokenHMAC(ctx context.Context, lookup string) (*model.PendingInvite, error)
	AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) (*model.ProjectMember, error)
	RejectInvite(ctx context.Context, inviteID uuid.UUID) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

// Create stores the project and makes its creator an admin member.
func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(&model.ProjectMember{
			ProjectID: p.ID,
			UserID:    p.CreatedBy,
			Role:      model.MemberRoleAdmin,
		}).Error
	})
}

func (r *projectRepo) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context) ([]model.Project, error) {
	var ps []model.Project
	return ps, r.db.WithContext(ctx).Order("created_at DESC").Find(&ps).Error
}

func (r *projectRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	var ps []model.Project
	return ps, r.db.WithContext(ctx).
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&ps).Error
}

func (r *projectRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Project, error) {
	fields["updated_at"] = time.Now()
	var p model.Project
	res := r.db.WithContext(ctx).Model(&p).Clauses(clause.Returning{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// Delete removes the project; members, invites and tickets go with it via ON DELETE CASCADE.
func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *projectRepo) ListMembers(ctx context.Context, projectID uuid.UUID) ([]model.ProjectMember, error) {
	var ms []model.ProjectMember
	return ms, r.db.WithContext(ctx).
		Preload("Profile").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&ms).Error
}

func (r *projectRepo) GetMember(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error) {
	var m model.ProjectMember
	err := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *projectRepo) GetMemberByEmail(ctx context.Context, projectID uuid.UUID, email string) (*model.ProjectMember, error) {
	var m model.ProjectMember
	err := r.db.WithContext(ctx).
		Joins("JOIN profiles ON profiles.id = project_members.user_id").
		Where("project_members.project_id = ? AND lower(profiles.email) = lower(?)", projectID, email).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *projectRepo) AddMember(ctx context.Context, m *model.ProjectMember) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *projectRepo) UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role string) error {
	res := r.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *projectRepo) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateInvite relies on the open-invite unique index, so concurrent invites
// for the same address cannot both land.
func (r *projectRepo) CreateInvite(ctx context.Context, inv *model.PendingInvite) error {
	err := r.db.WithContext(ctx).Create(inv).Error
	if isUniqueViolation(err, model.OpenInviteIndex) {
		return ErrDuplicateInvite
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func (r *projectRepo) ListInvites(ctx context.Context, projectID uuid.UUID) ([]model.PendingInvite, error) {
	var out []model.PendingInvite
	return out, r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&out).Error
}

func (r *projectRepo) ListPendingInvitesForEmail(ctx context.Context, email string) ([]model.PendingInvite, error) {
	var out []model.PendingInvite
	return out, r.db.WithContext(ctx).
		Preload("Project").
		Where("lower(email) = lower(?) AND status = ?", email, model.InviteStatusPending).
		Order("created_at DESC").
		Find(&out).Error
}

func (r *projectRepo) GetInvite(ctx context.Context, id uuid.UUID) (*model.PendingInvite, error) {
	var inv model.PendingInvite
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *projectRepo) GetInviteByTokenHMAC(ctx context.Context, lookup string) (*model.PendingInvite, error) {
	var inv model.PendingInvite
	if err := r.db.WithContext(ctx).Where(&model.PendingInvite{TokenHMAC: lookup}).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// AcceptInvite locks the invite, upserts the membership and marks the invite
// accepted in one transaction.
func (r *projectRepo) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID) (*model.ProjectMember, error) {
	var member model.ProjectMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv model.PendingInvite
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", inviteID).First(&inv).Error; err != nil {
			return err
		}
		if inv.Status != model.InviteStatusPending {
			return ErrInviteNotPending
		}

		// an existing membership keeps its role
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.ProjectMember{ProjectID: inv.ProjectID, UserID: userID, Role: inv.Role}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ? AND user_id = ?", inv.ProjectID, userID).First(&member).Error; err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&model.PendingInvite{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"status":       model.InviteStatusAccepted,
			"responded_at": now,
			"updated_at":   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *projectRepo) RejectInvite(ctx context.Context, inviteID uuid.UUID) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.PendingInvite{}).
		Where("id = ? AND status = ?", inviteID, model.InviteStatusPending).
		Updates(map[string]any{
			"status":       model.InviteStatusRejected,
			"responded_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetInvite(ctx, inviteID); err != nil {
			return err
		}
		return ErrInviteNotPending
	}
	return nil
}
