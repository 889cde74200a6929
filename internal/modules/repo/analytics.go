package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/gorm"
)

type CountRow struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type WorkloadRow struct {
	AssigneeID uuid.UUID `json:"assignee_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Open       int64     `json:"open"`
}

type DailyRow struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// AnalyticsRepo runs read-only aggregates over non-archived tickets,
// optionally narrowed to one project.
type AnalyticsRepo interface {
	CountByStatus(ctx context.Context, projectID *uuid.UUID) ([]CountRow, error)
	CountByPriority(ctx context.Context, projectID *uuid.UUID) ([]CountRow, error)
	CountOpenUrgent(ctx context.Context, projectID *uuid.UUID) (int64, error)
	CountResolvedSince(ctx context.Context, projectID *uuid.UUID, since time.Time) (int64, error)
	AvgResolutionHours(ctx context.Context, projectID *uuid.UUID) (float64, error)
	Workload(ctx context.Context, projectID *uuid.UUID) ([]WorkloadRow, error)
	CreatedPerDay(ctx context.Context, projectID *uuid.UUID, since time.Time) ([]DailyRow, error)
}

type analyticsRepo struct{ db *gorm.DB }

func NewAnalyticsRepo(db *gorm.DB) AnalyticsRepo {
	return &analyticsRepo{db: db}
}

func (r *analyticsRepo) base(ctx context.Context, projectID *uuid.UUID) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Ticket{}).Where("tickets.archived_at IS NULL")
	if projectID != nil {
		q = q.Where("tickets.project_id = ?", *projectID)
	}
	return q
}

func (r *analyticsRepo) CountByStatus(ctx context.Context, projectID *uuid.UUID) ([]CountRow, error) {
	var rows []CountRow
	return rows, r.base(ctx, projectID).
		Select("status AS key, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
}

func (r *analyticsRepo) CountByPriority(ctx context.Context, projectID *uuid.UUID) ([]CountRow, error) {
	var rows []CountRow
	return rows, r.base(ctx, projectID).
		Select("priority AS key, COUNT(*) AS count").
		Group("priority").
		Scan(&rows).Error
}

func (r *analyticsRepo) CountOpenUrgent(ctx context.Context, projectID *uuid.UUID) (int64, error) {
	var n int64
	return n, r.base(ctx, projectID).
		Where("priority = ? AND status <> ?", model.PriorityUrgent, model.StatusResolved).
		Count(&n).Error
}

func (r *analyticsRepo) CountResolvedSince(ctx context.Context, projectID *uuid.UUID, since time.Time) (int64, error) {
	var n int64
	return n, r.base(ctx, projectID).
		Where("status = ? AND resolved_at >= ?", model.StatusResolved, since).
		Count(&n).Error
}

func (r *analyticsRepo) AvgResolutionHours(ctx context.Context, projectID *uuid.UUID) (float64, error) {
	var avg *float64
	err := r.base(ctx, projectID).
		Where("status = ? AND resolved_at IS NOT NULL", model.StatusResolved).
		Select("AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 3600.0)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}

func (r *analyticsRepo) Workload(ctx context.Context, projectID *uuid.UUID) ([]WorkloadRow, error) {
	var rows []WorkloadRow
	return rows, r.base(ctx, projectID).
		Select("tickets.assignee_id, profiles.full_name, profiles.email, COUNT(*) AS open").
		Joins("JOIN profiles ON profiles.id = tickets.assignee_id").
		Where("tickets.status <> ?", model.StatusResolved).
		Group("tickets.assignee_id, profiles.full_name, profiles.email").
		Order("open DESC").
		Scan(&rows).Error
}

func (r *analyticsRepo) CreatedPerDay(ctx context.Context, projectID *uuid.UUID, since time.Time) ([]DailyRow, error) {
	var rows []DailyRow
	return rows, r.base(ctx, projectID).
		Select("date_trunc('day', created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
}
