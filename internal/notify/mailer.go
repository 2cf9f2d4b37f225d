// Package notify renders and delivers ticket emails.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Message is one rendered email.
type Message struct {
	Kind    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer when a host is configured and a log
// mailer otherwise.
func NewMailer(cfg config.NotificationConfig, logger *zap.Logger) (Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set; emails are logged only")
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(cfg)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info("email (not sent)",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// SMTPMailer delivers through an SMTP relay with go-mail. A go-mail client
// holds one connection, so every Send dials its own client.
type SMTPMailer struct {
	host string
	opts []mail.Option
	from string
}

// NewSMTPMailer configures the client. Port 465 uses implicit TLS, other
// ports upgrade with STARTTLS when offered.
func NewSMTPMailer(cfg config.NotificationConfig) (*SMTPMailer, error) {
	if cfg.EmailFrom == "" {
		return nil, errors.New("SMTP_FROM is required when SMTP_HOST is set")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	if _, err := mail.NewClient(cfg.SMTPHost, opts...); err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{host: cfg.SMTPHost, opts: opts, from: cfg.EmailFrom}, nil
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	client, err := mail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send %s mail: %w", msg.Kind, err)
	}
	return nil
}
