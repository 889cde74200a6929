package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketScope restricts queries to what a profile may see.
// Clients see their own tickets; employees see unassigned tickets, tickets
// assigned to them and tickets of projects they belong to; admins see all.
type TicketScope struct {
	UserID uuid.UUID
	Role   string
}

type TicketFilter struct {
	Scope        TicketScope
	Status       string
	Priority     string
	ProjectID    *uuid.UUID
	AssigneeID   *uuid.UUID
	ClientID     *uuid.UUID
	Unassigned   bool
	Query        string
	Archived     bool
	UpdatedSince *time.Time
}

type TicketRepo interface {
	Create(ctx context.Context, t *model.Ticket) error
	CreateWithActivity(ctx context.Context, t *model.Ticket, a *model.Activity) error
	Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	ListWithCursor(ctx context.Context, f TicketFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]model.Ticket, error)
	List(ctx context.Context, f TicketFilter, limit int) ([]model.Ticket, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Ticket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Ticket, error)
	Claim(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*model.Ticket, error)
	Assign(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (*model.Ticket, error)
	// Bulk writes only touch the selected tickets the scope can see.
	BulkUpdateStatus(ctx context.Context, scope TicketScope, ids []uuid.UUID, status string) ([]uuid.UUID, error)
	BulkSetArchived(ctx context.Context, scope TicketScope, ids []uuid.UUID, archived bool) ([]uuid.UUID, error)
}

type ticketRepo struct{ db *gorm.DB }

func NewTicketRepo(db *gorm.DB) TicketRepo {
	return &ticketRepo{db: db}
}

// resolvedAtExpr stamps resolved_at when moving into resolved (keeping an
// existing stamp) and clears it for any other status.
func resolvedAtExpr(status string) clause.Expr {
	return gorm.Expr("CASE WHEN ? = ? THEN COALESCE(resolved_at, NOW()) ELSE NULL END", status, model.StatusResolved)
}

func applyScope(q *gorm.DB, s TicketScope) *gorm.DB {
	switch s.Role {
	case model.RoleAdmin:
		return q
	case model.RoleEmployee:
		return q.Where(
			"(tickets.assignee_id IS NULL OR tickets.assignee_id = ? OR tickets.client_id = ? OR tickets.project_id IN (SELECT project_id FROM project_members WHERE user_id = ?))",
			s.UserID, s.UserID, s.UserID,
		)
	default:
		return q.Where("tickets.client_id = ?", s.UserID)
	}
}

func applyTicketFilter(q *gorm.DB, f TicketFilter) *gorm.DB {
	q = applyScope(q, f.Scope)
	if f.Archived {
		q = q.Where("tickets.archived_at IS NOT NULL")
	} else {
		q = q.Where("tickets.archived_at IS NULL")
	}
	if f.Status != "" {
		q = q.Where("tickets.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("tickets.priority = ?", f.Priority)
	}
	if f.ProjectID != nil {
		q = q.Where("tickets.project_id = ?", *f.ProjectID)
	}
	if f.Unassigned {
		q = q.Where("tickets.assignee_id IS NULL")
	} else if f.AssigneeID != nil {
		q = q.Where("tickets.assignee_id = ?", *f.AssigneeID)
	}
	if f.ClientID != nil {
		q = q.Where("tickets.client_id = ?", *f.ClientID)
	}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("(tickets.title ILIKE ? OR tickets.description ILIKE ?)", like, like)
	}
	if f.UpdatedSince != nil {
		q = q.Where("tickets.updated_at > ?", *f.UpdatedSince)
	}
	return q
}

func (r *ticketRepo) Create(ctx context.Context, t *model.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// CreateWithActivity stores a ticket and its first activity atomically.
func (r *ticketRepo) CreateWithActivity(ctx context.Context, t *model.Ticket, a *model.Activity) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		a.TicketID = t.ID
		return tx.Create(a).Error
	})
}

func (r *ticketRepo) Get(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Assignee").
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepo) ListWithCursor(ctx context.Context, f TicketFilter, afterCreatedAt time.Time, afterID uuid.UUID, limit int, timeDesc bool) ([]model.Ticket, error) {
	q := applyTicketFilter(r.db.WithContext(ctx).Model(&model.Ticket{}), f)

	if !afterCreatedAt.IsZero() && afterID != uuid.Nil {
		comparisonOp := ">"
		if timeDesc {
			comparisonOp = "<"
		}
		q = q.Where(
			"(tickets.created_at "+comparisonOp+" ?) OR (tickets.created_at = ? AND tickets.id "+comparisonOp+" ?)",
			afterCreatedAt, afterCreatedAt, afterID,
		)
	}

	orderBy := "tickets.created_at ASC, tickets.id ASC"
	if timeDesc {
		orderBy = "tickets.created_at DESC, tickets.id DESC"
	}

	var tickets []model.Ticket
	return tickets, q.Preload("Assignee").Order(orderBy).Limit(limit).Find(&tickets).Error
}

func (r *ticketRepo) List(ctx context.Context, f TicketFilter, limit int) ([]model.Ticket, error) {
	q := applyTicketFilter(r.db.WithContext(ctx).Model(&model.Ticket{}), f)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var tickets []model.Ticket
	return tickets, q.Preload("Assignee").Order("tickets.updated_at DESC, tickets.id DESC").Find(&tickets).Error
}

// updateReturning runs a single UPDATE ... RETURNING * on one ticket.
func (r *ticketRepo) updateReturning(ctx context.Context, q *gorm.DB, fields map[string]any) (*model.Ticket, error) {
	var t model.Ticket
	res := q.WithContext(ctx).Model(&t).Clauses(clause.Returning{}).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *ticketRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Ticket, error) {
	fields["updated_at"] = time.Now()
	return r.updateReturning(ctx, r.db.Where("id = ?", id), fields)
}

func (r *ticketRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Ticket, error) {
	return r.updateReturning(ctx, r.db.Where("id = ?", id), map[string]any{
		"status":      status,
		"resolved_at": resolvedAtExpr(status),
		"updated_at":  time.Now(),
	})
}

// Claim assigns the ticket to userID unless someone else already holds it,
// moving it from new to in_progress.
func (r *ticketRepo) Claim(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*model.Ticket, error) {
	t, err := r.updateReturning(ctx,
		r.db.Where("id = ? AND (assignee_id IS NULL OR assignee_id = ?)", id, userID),
		map[string]any{
			"assignee_id": userID,
			"status":      gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", model.StatusNew, model.StatusInProgress),
			"updated_at":  time.Now(),
		})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var n int64
		if cerr := r.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", id).Count(&n).Error; cerr != nil {
			return nil, cerr
		}
		if n > 0 {
			return nil, ErrAlreadyAssigned
		}
	}
	return t, err
}

func (r *ticketRepo) Assign(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) (*model.Ticket, error) {
	return r.updateReturning(ctx, r.db.Where("id = ?", id), map[string]any{
		"assignee_id": assigneeID,
		"updated_at":  time.Now(),
	})
}

func (r *ticketRepo) bulkUpdate(ctx context.Context, scope TicketScope, ids []uuid.UUID, fields map[string]any) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	var rows []model.Ticket
	q := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("tickets.id IN ?", ids)
	err := applyScope(q, scope).Updates(fields).Error
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, t := range rows {
		out = append(out, t.ID)
	}
	return out, nil
}

func (r *ticketRepo) BulkUpdateStatus(ctx context.Context, scope TicketScope, ids []uuid.UUID, status string) ([]uuid.UUID, error) {
	return r.bulkUpdate(ctx, scope, ids, map[string]any{
		"status":      status,
		"resolved_at": resolvedAtExpr(status),
		"updated_at":  time.Now(),
	})
}

func (r *ticketRepo) BulkSetArchived(ctx context.Context, scope TicketScope, ids []uuid.UUID, archived bool) ([]uuid.UUID, error) {
	var archivedAt any
	if archived {
		archivedAt = time.Now()
	}
	return r.bulkUpdate(ctx, scope, ids, map[string]any{
		"archived_at": archivedAt,
		"updated_at":  time.Now(),
	})
}
