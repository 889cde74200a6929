package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/mailer"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/repo"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NotifyService turns queued jobs into emails. It runs in the worker.
type NotifyService interface {
	HandleJob(ctx context.Context, job Job) error
	SendDigests(ctx context.Context, now time.Time) (*DigestReport, error)
}

type DigestReport struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type notifyService struct {
	tickets  repo.TicketRepo
	projects repo.ProjectRepo
	profiles repo.ProfileRepo
	mail     mailer.Mailer
	cfg      *config.Config
	log      *zap.Logger
}

func NewNotifyService(
	tickets repo.TicketRepo,
	projects repo.ProjectRepo,
	profiles repo.ProfileRepo,
	mail mailer.Mailer,
	cfg *config.Config,
	log *zap.Logger,
) NotifyService {
	return &notifyService{tickets: tickets, projects: projects, profiles: profiles, mail: mail, cfg: cfg, log: log}
}

func (s *notifyService) HandleJob(ctx context.Context, job Job) (err error) {
	defer func() { telemetry.RecordNotifyJob(ctx, job.Type, err) }()

	switch job.Type {
	case JobTicketCreated:
		return s.ticketCreated(ctx, job)
	case JobTicketAssigned:
		return s.ticketAssigned(ctx, job)
	case JobInvite:
		return s.invite(ctx, job)
	case JobDigest:
		_, err = s.SendDigests(ctx, time.Now().UTC())
		return err
	default:
		s.log.Warn("unknown notify job, dropping", zap.String("type", job.Type))
		return nil
	}
}

func (s *notifyService) ticketLink(t *model.Ticket) string {
	return strings.TrimRight(s.cfg.App.PublicURL, "/") + "/tickets/" + t.ID.String()
}

func (s *notifyService) ticketCreated(ctx context.Context, job Job) error {
	if job.TicketID == nil {
		return fmt.Errorf("%s job without ticket_id", job.Type)
	}
	t, err := s.tickets.Get(ctx, *job.TicketID)
	if err != nil {
		return notFound(err)
	}
	if t.Client == nil || t.Client.Email == "" {
		return nil
	}
	return s.mail.Send(ctx, mailer.Message{
		To:      t.Client.Email,
		Subject: fmt.Sprintf("[OHFdesk] Ticket received: %s", t.Title),
		Body: fmt.Sprintf("We received your ticket %q (priority %s).\n\nFollow its progress at %s\n",
			t.Title, t.Priority, s.ticketLink(t)),
	})
}

func (s *notifyService) ticketAssigned(ctx context.Context, job Job) error {
	if job.TicketID == nil {
		return fmt.Errorf("%s job without ticket_id", job.Type)
	}
	t, err := s.tickets.Get(ctx, *job.TicketID)
	if err != nil {
		return notFound(err)
	}
	// unassigned in the meantime
	if t.Assignee == nil || t.Assignee.Email == "" {
		return nil
	}
	return s.mail.Send(ctx, mailer.Message{
		To:      t.Assignee.Email,
		Subject: fmt.Sprintf("[OHFdesk] Assigned to you: %s", t.Title),
		Body: fmt.Sprintf("Ticket %q (%s, priority %s) is now assigned to you.\n\n%s\n",
			t.Title, t.Status, t.Priority, s.ticketLink(t)),
	})
}

func (s *notifyService) invite(ctx context.Context, job Job) error {
	if job.InviteID == nil || job.Token == "" {
		return fmt.Errorf("%s job without invite_id or token", job.Type)
	}
	inv, err := s.projects.GetInvite(ctx, *job.InviteID)
	if err != nil {
		return notFound(err)
	}
	if inv.Status != model.InviteStatusPending {
		return nil
	}
	p, err := s.projects.Get(ctx, inv.ProjectID)
	if err != nil {
		return notFound(err)
	}
	link := strings.TrimRight(s.cfg.App.PublicURL, "/") + "/invites/accept?token=" + url.QueryEscape(job.Token)
	return s.mail.Send(ctx, mailer.Message{
		To:      inv.Email,
		Subject: fmt.Sprintf("[OHFdesk] You are invited to %s", p.Name),
		Body: fmt.Sprintf("You have been invited to join the project %q as %s.\n\nAccept the invite: %s\n",
			p.Name, inv.Role, link),
	})
}

// digestFilter narrows the digest to what the profile cares about: assigned
// tickets for employees, own tickets for clients, everything for admins.
func digestFilter(p *model.Profile, since time.Time) repo.TicketFilter {
	f := repo.TicketFilter{
		Scope:        repo.TicketScope{UserID: p.ID, Role: p.Role},
		UpdatedSince: &since,
	}
	if p.Role == model.RoleEmployee {
		id := p.ID
		f.AssigneeID = &id
	}
	return f
}

func digestSince(p *model.Profile, now time.Time) time.Time {
	if p.LastDigestAt != nil {
		return *p.LastDigestAt
	}
	if p.DigestFrequency == model.DigestWeekly {
		return now.AddDate(0, 0, -7)
	}
	return now.AddDate(0, 0, -1)
}

func renderDigest(p *model.Profile, tickets []model.Ticket, publicURL string) mailer.Message {
	var b strings.Builder
	name := p.FullName
	if name == "" {
		name = p.Email
	}
	fmt.Fprintf(&b, "Hi %s,\n\n%d ticket(s) changed since your last digest:\n\n", name, len(tickets))
	for _, t := range tickets {
		fmt.Fprintf(&b, "- [%s] %s (%s)\n  %s/tickets/%s\n", t.Priority, t.Title, t.Status, strings.TrimRight(publicURL, "/"), t.ID)
	}
	return mailer.Message{
		To:      p.Email,
		Subject: fmt.Sprintf("[OHFdesk] Your %s digest", p.DigestFrequency),
		Body:    b.String(),
	}
}

// SendDigests mails every due subscriber the tickets updated since their last
// digest. Empty digests are not sent but still stamped. A failing subscriber
// is left unstamped and does not stop the others.
func (s *notifyService) SendDigests(ctx context.Context, now time.Time) (*DigestReport, error) {
	subs, err := s.profiles.ListDigestSubscribers(ctx)
	if err != nil {
		return nil, err
	}

	report := &DigestReport{}
	var sent, skipped atomic.Int64
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	if s.cfg.Digest.Concurrency > 0 {
		g.SetLimit(s.cfg.Digest.Concurrency)
	}
	for i := range subs {
		p := &subs[i]
		if !p.DigestDue(now) {
			continue
		}
		report.Due++
		g.Go(func() error {
			err := s.sendDigest(ctx, p, now, &sent, &skipped)
			if err != nil {
				s.log.Warn("digest failed", zap.String("profile_id", p.ID.String()), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = int(sent.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = len(errs)
	err = errors.Join(errs...)
	s.log.Info("digests processed",
		zap.Int("due", report.Due), zap.Int("sent", report.Sent), zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed), zap.Error(err))
	if err != nil {
		return report, err
	}
	return report, nil
}

func (s *notifyService) sendDigest(ctx context.Context, p *model.Profile, now time.Time, sent, skipped *atomic.Int64) error {
	tickets, err := s.tickets.List(ctx, digestFilter(p, digestSince(p, now)), s.cfg.Digest.MaxTickets)
	if err != nil {
		return fmt.Errorf("digest tickets for %s: %w", p.ID, err)
	}
	if len(tickets) == 0 {
		skipped.Add(1)
	} else {
		if err := s.mail.Send(ctx, renderDigest(p, tickets, s.cfg.App.PublicURL)); err != nil {
			return fmt.Errorf("send digest to %s: %w", p.ID, err)
		}
		sent.Add(1)
	}
	if err := s.profiles.StampDigest(ctx, p.ID, now); err != nil {
		return fmt.Errorf("stamp digest for %s: %w", p.ID, err)
	}
	return nil
}
