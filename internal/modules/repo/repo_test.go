package repo

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	migrate "github.com/ohfdesk/ohfdesk/internal/infra/db"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB connects to the integration database, skipping when it is not reachable.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("OHFDESK_TEST_DSN")
	if dsn == "" {
		dsn = "host=localhost user=ohfdesk password=helloworld dbname=ohfdesk port=15432 sslmode=disable"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skip("Test database not available, skipping integration tests")
		return nil
	}
	if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		t.Skip("Test database not available, skipping integration tests")
		return nil
	}

	require.NoError(t, migrate.Migrate(db))
	return db
}

func createProfile(t *testing.T, db *gorm.DB, role string) *model.Profile {
	t.Helper()
	p := &model.Profile{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, db.Create(p).Error)
	t.Cleanup(func() { db.Exec("DELETE FROM profiles WHERE id = ?", p.ID) })
	return p
}

func createTicket(t *testing.T, db *gorm.DB, client uuid.UUID, mutate func(*model.Ticket)) *model.Ticket {
	t.Helper()
	tk := &model.Ticket{
		Title:       "Printer offline",
		Description: "Third floor printer does not respond",
		Status:      model.StatusNew,
		Priority:    model.PriorityMedium,
		Source:      model.SourceForm,
		ClientID:    client,
	}
	if mutate != nil {
		mutate(tk)
	}
	require.NoError(t, db.Create(tk).Error)
	t.Cleanup(func() { db.Exec("DELETE FROM tickets WHERE id = ?", tk.ID) })
	return tk
}

func TestTicketRepo_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewTicketRepo(db)
	client := createProfile(t, db, model.RoleClient)
	tk := createTicket(t, db, client.ID, nil)

	got, err := r.UpdateStatus(ctx, tk.ID, model.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)

	got, err = r.UpdateStatus(ctx, tk.ID, model.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, got.Status)
	assert.Nil(t, got.ResolvedAt)

	_, err = r.UpdateStatus(ctx, uuid.New(), model.StatusNew)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTicketRepo_Claim(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewTicketRepo(db)
	client := createProfile(t, db, model.RoleClient)
	alice := createProfile(t, db, model.RoleEmployee)
	bob := createProfile(t, db, model.RoleEmployee)
	tk := createTicket(t, db, client.ID, nil)

	got, err := r.Claim(ctx, tk.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, alice.ID, *got.AssigneeID)

	_, err = r.Claim(ctx, tk.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	_, err = r.Claim(ctx, uuid.New(), bob.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTicketRepo_BulkAndScope(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewTicketRepo(db)
	client := createProfile(t, db, model.RoleClient)
	other := createProfile(t, db, model.RoleClient)
	a := createTicket(t, db, client.ID, nil)
	b := createTicket(t, db, client.ID, nil)
	c := createTicket(t, db, other.ID, nil)

	adminScope := TicketScope{Role: model.RoleAdmin}

	ids, err := r.BulkUpdateStatus(ctx, adminScope, []uuid.UUID{a.ID, b.ID}, model.StatusInProgress)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)

	// a client's batch skips tickets it does not own
	ids, err = r.BulkUpdateStatus(ctx, TicketScope{UserID: other.ID, Role: model.RoleClient}, []uuid.UUID{a.ID, c.ID}, model.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids)
	var untouched model.Ticket
	require.NoError(t, db.First(&untouched, "id = ?", a.ID).Error)
	assert.Equal(t, model.StatusInProgress, untouched.Status)

	ids, err = r.BulkSetArchived(ctx, adminScope, []uuid.UUID{b.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, ids)

	mine, err := r.List(ctx, TicketFilter{Scope: TicketScope{UserID: client.ID, Role: model.RoleClient}}, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	archived, err := r.List(ctx, TicketFilter{Scope: TicketScope{UserID: client.ID, Role: model.RoleClient}, Archived: true}, 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, b.ID, archived[0].ID)

	theirs, err := r.List(ctx, TicketFilter{Scope: TicketScope{UserID: other.ID, Role: model.RoleClient}}, 0)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, c.ID, theirs[0].ID)
}

func TestActivityRepo_SaveWorkSession(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewActivityRepo(db)
	emp := createProfile(t, db, model.RoleEmployee)
	client := createProfile(t, db, model.RoleClient)
	tk := createTicket(t, db, client.ID, nil)
	session := uuid.New()

	note := "checked cables"
	acts := []model.Activity{
		{TicketID: tk.ID, Type: model.ActivityComment, Content: &note, CreatedBy: emp.ID, Metadata: datatypes.JSONMap{model.MetaSessionID: session.String()}},
		{TicketID: tk.ID, Type: model.ActivityComment, Content: &note, CreatedBy: emp.ID, Metadata: datatypes.JSONMap{model.MetaSessionID: session.String()}},
	}
	summary := &model.Summary{TicketID: tk.ID, Content: "Cables replaced", CreatedBy: emp.ID, CreatorRole: model.RoleEmployee, SessionID: &session}
	require.NoError(t, r.SaveWorkSession(ctx, tk.ID, acts, summary))

	listed, err := r.List(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	sums, err := r.ListSummaries(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, sums, 1)

	// a failing summary insert rolls back the activities
	bad := &model.Summary{TicketID: uuid.New(), Content: "orphan", CreatedBy: emp.ID, CreatorRole: model.RoleEmployee}
	err = r.SaveWorkSession(ctx, tk.ID, []model.Activity{{TicketID: tk.ID, Type: model.ActivityComment, CreatedBy: emp.ID}}, bad)
	require.Error(t, err)
	listed, err = r.List(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestProjectRepo_Invites(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewProjectRepo(db)
	admin := createProfile(t, db, model.RoleAdmin)
	invitee := createProfile(t, db, model.RoleEmployee)

	p := &model.Project{Name: "Onboarding", CreatedBy: admin.ID}
	require.NoError(t, r.Create(ctx, p))
	t.Cleanup(func() { db.Exec("DELETE FROM projects WHERE id = ?", p.ID) })

	inv := &model.PendingInvite{ProjectID: p.ID, Email: invitee.Email, Role: model.MemberRoleEmployee, Status: model.InviteStatusPending, InvitedBy: admin.ID, TokenHMAC: uuid.NewString()[:32] + uuid.NewString()[:32]}
	require.NoError(t, r.CreateInvite(ctx, inv))

	dup := &model.PendingInvite{ProjectID: p.ID, Email: invitee.Email, Role: model.MemberRoleViewer, Status: model.InviteStatusPending, InvitedBy: admin.ID, TokenHMAC: uuid.NewString()[:32] + uuid.NewString()[:32]}
	assert.ErrorIs(t, r.CreateInvite(ctx, dup), ErrDuplicateInvite)

	m, err := r.AcceptInvite(ctx, inv.ID, invitee.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberRoleEmployee, m.Role)

	var n int64
	require.NoError(t, db.Model(&model.ProjectMember{}).Where("project_id = ? AND user_id = ?", p.ID, invitee.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = r.AcceptInvite(ctx, inv.ID, invitee.ID)
	assert.ErrorIs(t, err, ErrInviteNotPending)
	assert.ErrorIs(t, r.RejectInvite(ctx, inv.ID), ErrInviteNotPending)

	stored, err := r.GetInvite(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InviteStatusAccepted, stored.Status)
	assert.WithinDuration(t, time.Now(), *stored.RespondedAt, time.Minute)
}

func TestProjectRepo_ConcurrentInvitesSameEmail(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewProjectRepo(db)
	admin := createProfile(t, db, model.RoleAdmin)

	p := &model.Project{Name: "Racing", CreatedBy: admin.ID}
	require.NoError(t, r.Create(ctx, p))
	t.Cleanup(func() { db.Exec("DELETE FROM projects WHERE id = ?", p.ID) })

	email := uuid.NewString() + "@example.com"
	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// case differences still collide
			addr := email
			if i%2 == 1 {
				addr = strings.ToUpper(email)
			}
			errs[i] = r.CreateInvite(ctx, &model.PendingInvite{
				ProjectID: p.ID, Email: addr, Role: model.MemberRoleEmployee, Status: model.InviteStatusPending,
				InvitedBy: admin.ID, TokenHMAC: uuid.NewString()[:32] + uuid.NewString()[:32],
			})
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateInvite)
	}
	assert.Equal(t, 1, created)
}

func TestProjectRepo_AcceptInviteKeepsExistingRole(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		return
	}
	ctx := context.Background()
	r := NewProjectRepo(db)
	admin := createProfile(t, db, model.RoleAdmin)
	lead := createProfile(t, db, model.RoleEmployee)

	p := &model.Project{Name: "Support", CreatedBy: admin.ID}
	require.NoError(t, r.Create(ctx, p))
	t.Cleanup(func() { db.Exec("DELETE FROM projects WHERE id = ?", p.ID) })
	require.NoError(t, r.AddMember(ctx, &model.ProjectMember{ProjectID: p.ID, UserID: lead.ID, Role: model.MemberRoleAdmin}))

	byEmail, err := r.GetMemberByEmail(ctx, p.ID, strings.ToUpper(lead.Email))
	require.NoError(t, err)
	assert.Equal(t, lead.ID, byEmail.UserID)
	_, err = r.GetMemberByEmail(ctx, p.ID, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	inv := &model.PendingInvite{ProjectID: p.ID, Email: lead.Email, Role: model.MemberRoleViewer, Status: model.InviteStatusPending, InvitedBy: admin.ID, TokenHMAC: uuid.NewString()[:32] + uuid.NewString()[:32]}
	require.NoError(t, r.CreateInvite(ctx, inv))

	m, err := r.AcceptInvite(ctx, inv.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberRoleAdmin, m.Role)

	stored, err := r.GetMember(ctx, p.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberRoleAdmin, stored.Role)
}
