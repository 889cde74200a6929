// Package mailer sends the plain-text notification and digest emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/httpclient"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("mail has no recipient")

// New picks the HTTP relay when mail.relayURL is set, SMTP when a host is
// configured, and otherwise a mailer that only logs.
func New(cfg *config.Config, log *zap.Logger) (Mailer, error) {
	switch {
	case cfg.Mail.RelayURL != "":
		return &Relay{from: cfg.Mail.From, client: httpclient.NewRelayClient(cfg.Mail.RelayURL, cfg.Mail.RelayToken, log)}, nil
	case cfg.Mail.SMTPHost != "":
		opts := []mail.Option{
			mail.WithTLSPortPolicy(mail.TLSOpportunistic),
			mail.WithPort(cfg.Mail.SMTPPort),
			mail.WithTimeout(30 * time.Second),
		}
		if cfg.Mail.SMTPUser != "" {
			opts = append(opts,
				mail.WithSMTPAuth(mail.SMTPAuthPlain),
				mail.WithUsername(cfg.Mail.SMTPUser),
				mail.WithPassword(cfg.Mail.SMTPPass),
			)
		}
		c, err := mail.NewClient(cfg.Mail.SMTPHost, opts...)
		if err != nil {
			return nil, fmt.Errorf("smtp client: %w", err)
		}
		return &SMTP{from: cfg.Mail.From, client: c}, nil
	default:
		log.Warn("no mail transport configured, emails are only logged")
		return &Log{log: log}, nil
	}
}

type Relay struct {
	from   string
	client *httpclient.RelayClient
}

func (r *Relay) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	_, err := r.client.Send(ctx, httpclient.RelayMessage{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	return err
}

// smtpClient is the part of *mail.Client the SMTP mailer uses.
type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTP struct {
	from   string
	client smtpClient
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	m, err := buildMessage(s.from, msg, time.Now())
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMessage renders a plain-text UTF-8 mail. Non-ASCII subjects are
// encoded as MIME words by go-mail.
func buildMessage(from string, msg Message, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("mail from %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail to %q: %w", msg.To, err)
	}
	m.Subject(strings.Join(strings.Fields(msg.Subject), " "))
	m.SetDateWithValue(now)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

type Log struct {
	log *zap.Logger
}

func (l *Log) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	l.log.Info("mail (not sent)", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
