package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TemplateRepo interface {
	Create(ctx context.Context, t *model.ResponseTemplate) error
	CreateBatch(ctx context.Context, ts []model.ResponseTemplate) error
	Get(ctx context.Context, id uuid.UUID) (*model.ResponseTemplate, error)
	List(ctx context.Context, category, query string) ([]model.ResponseTemplate, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.ResponseTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateRepo struct{ db *gorm.DB }

func NewTemplateRepo(db *gorm.DB) TemplateRepo {
	return &templateRepo{db: db}
}

func (r *templateRepo) Create(ctx context.Context, t *model.ResponseTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *templateRepo) CreateBatch(ctx context.Context, ts []model.ResponseTemplate) error {
	if len(ts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&ts, 100).Error
}

func (r *templateRepo) Get(ctx context.Context, id uuid.UUID) (*model.ResponseTemplate, error) {
	var t model.ResponseTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) List(ctx context.Context, category, query string) ([]model.ResponseTemplate, error) {
	q := r.db.WithContext(ctx).Model(&model.ResponseTemplate{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if query != "" {
		like := "%" + query + "%"
		q = q.Where("(title ILIKE ? OR content ILIKE ?)", like, like)
	}
	var ts []model.ResponseTemplate
	return ts, q.Order("category ASC, title ASC").Find(&ts).Error
}

func (r *templateRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.ResponseTemplate, error) {
	fields["updated_at"] = time.Now()
	var t model.ResponseTemplate
	res := r.db.WithContext(ctx).Model(&t).Clauses(clause.Returning{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *templateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ResponseTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
