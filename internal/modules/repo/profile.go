package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	GetOrCreate(ctx context.Context, p *model.Profile) (*model.Profile, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Profile, error)
	ListWithCursor(ctx context.Context, role string, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.Profile, error)
	ListDigestSubscribers(ctx context.Context) ([]model.Profile, error)
	StampDigest(ctx context.Context, id uuid.UUID, at time.Time) error
}

type profileRepo struct{ db *gorm.DB }

func NewProfileRepo(db *gorm.DB) ProfileRepo {
	return &profileRepo{db: db}
}

func (r *profileRepo) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreate inserts p on first sight of an auth user and returns the stored
// row otherwise; an existing role is never overwritten.
func (r *profileRepo) GetOrCreate(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, p.ID)
}

func (r *profileRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Profile, error) {
	fields["updated_at"] = time.Now()
	var p model.Profile
	res := r.db.WithContext(ctx).Model(&p).Clauses(clause.Returning{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *profileRepo) ListWithCursor(ctx context.Context, role string, afterCreatedAt time.Time, afterID uuid.UUID, limit int) ([]model.Profile, error) {
	q := r.db.WithContext(ctx).Model(&model.Profile{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if !afterCreatedAt.IsZero() && afterID != uuid.Nil {
		q = q.Where("(created_at > ?) OR (created_at = ? AND id > ?)", afterCreatedAt, afterCreatedAt, afterID)
	}
	var ps []model.Profile
	return ps, q.Order("created_at ASC, id ASC").Limit(limit).Find(&ps).Error
}

func (r *profileRepo) ListDigestSubscribers(ctx context.Context) ([]model.Profile, error) {
	var ps []model.Profile
	return ps, r.db.WithContext(ctx).Where("digest_enabled = ?", true).Order("id").Find(&ps).Error
}

func (r *profileRepo) StampDigest(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Update("last_digest_at", at).Error
}
