// Package mail sends notification email through an SMTP relay.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"
	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/logger"
)

// Mailer sends a single HTML message
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// sender is the part of the go-mail client used here
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPMailer delivers through the configured relay with bounded retries
type SMTPMailer struct {
	client  sender
	from    string
	retries uint64
	backoff time.Duration
}

// NewSMTPMailer creates a mailer for the relay in cfg
func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.User),
		gomail.WithPassword(cfg.Pass),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.User, retries: 3, backoff: time.Second}, nil
}

// Send delivers one message, retrying transient failures
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	backoff := retry.WithMaxRetries(m.retries, retry.NewExponential(m.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// NopMailer is used when no relay is configured
type NopMailer struct {
	logger *slog.Logger
}

func NewNopMailer(l *slog.Logger) *NopMailer {
	return &NopMailer{logger: logger.OrDefault(l).With("component", "mail")}
}

// Send drops the message
func (m *NopMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Debug("mail disabled, message dropped", "to", to, "subject", subject)
	return nil
}

// New returns an SMTP mailer when credentials are configured and a no-op
// mailer otherwise
func New(cfg config.EmailConfig, l *slog.Logger) Mailer {
	if !cfg.Enabled() {
		return NewNopMailer(l)
	}

	m, err := NewSMTPMailer(cfg)
	if err != nil {
		logger.OrDefault(l).Warn("mail relay misconfigured, sending disabled", "error", err)
		return NewNopMailer(l)
	}
	return m
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Welcome, {{.Username}}!</h2>
  <p>Thank you for registering with our Task Management System.</p>
  <p>You can now start creating and managing your tasks efficiently.</p>
  {{if .FrontendURL}}<p><a href="{{.FrontendURL}}">Open the app</a></p>{{end}}
  <p>Best regards,<br>The Task Management Team</p>
</div>`))

// WelcomeEmail renders the registration message
func WelcomeEmail(username, frontendURL string) (subject, html string, err error) {
	var buf bytes.Buffer
	err = welcomeTemplate.Execute(&buf, struct {
		Username    string
		FrontendURL string
	}{username, frontendURL})
	if err != nil {
		return "", "", err
	}
	return "Welcome to Task Management System", buf.String(), nil
}
