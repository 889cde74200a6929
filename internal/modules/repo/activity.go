package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/gorm"
)

type ActivityRepo interface {
	List(ctx context.Context, ticketID uuid.UUID) ([]model.Activity, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	Create(ctx context.Context, a *model.Activity) error
	Delete(ctx context.Context, id uuid.UUID) error
	SaveWorkSession(ctx context.Context, ticketID uuid.UUID, activities []model.Activity, summary *model.Summary) error
	ListSummaries(ctx context.Context, ticketID uuid.UUID) ([]model.Summary, error)
	CreateSummary(ctx context.Context, s *model.Summary) error
}

type activityRepo struct{ db *gorm.DB }

func NewActivityRepo(db *gorm.DB) ActivityRepo {
	return &activityRepo{db: db}
}

func (r *activityRepo) List(ctx context.Context, ticketID uuid.UUID) ([]model.Activity, error) {
	var acts []model.Activity
	return acts, r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC").
		Find(&acts).Error
}

func (r *activityRepo) Get(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var a model.Activity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *activityRepo) Create(ctx context.Context, a *model.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *activityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Activity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveWorkSession inserts the session's activities in one batch together with
// the optional summary. Either everything is stored or nothing is.
func (r *activityRepo) SaveWorkSession(ctx context.Context, ticketID uuid.UUID, activities []model.Activity, summary *model.Summary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(activities) > 0 {
			if err := tx.Create(&activities).Error; err != nil {
				return err
			}
		}
		if summary != nil {
			if err := tx.Create(summary).Error; err != nil {
				return err
			}
		}
		// touch the ticket so digests and boards pick up the session
		return tx.Model(&model.Ticket{}).Where("id = ?", ticketID).Update("updated_at", gorm.Expr("NOW()")).Error
	})
}

func (r *activityRepo) ListSummaries(ctx context.Context, ticketID uuid.UUID) ([]model.Summary, error) {
	var out []model.Summary
	return out, r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
}

func (r *activityRepo) CreateSummary(ctx context.Context, s *model.Summary) error {
	return r.db.WithContext(ctx).Create(s).Error
}
