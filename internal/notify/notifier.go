// Package notify delivers best-effort notifications about session
// lifecycle events. Delivery failures are logged and never propagated to
// the operations that trigger them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/livemanager/livemanager/internal/config"
	"github.com/livemanager/livemanager/internal/models"
)

// Notifier is the collaborator interface the live session service uses.
// Implementations must be safe for concurrent use.
type Notifier interface {
	// SessionStarted notifies the administrators that a session started.
	SessionStarted(ctx context.Context, session *models.LiveSession, owner *models.User)

	// SessionFailed notifies the owner that their session failed to start.
	SessionFailed(ctx context.Context, session *models.LiveSession, owner *models.User, reason string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// SessionStarted implements Notifier.
func (NopNotifier) SessionStarted(context.Context, *models.LiveSession, *models.User) {}

// SessionFailed implements Notifier.
func (NopNotifier) SessionFailed(context.Context, *models.LiveSession, *models.User, string) {}

// sendMailFunc matches smtp.SendMail, overridable in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends notifications over SMTP.
type Mailer struct {
	cfg      config.NotifyConfig
	logger   *slog.Logger
	sendMail sendMailFunc
}

// NewMailer creates an SMTP-backed Notifier.
func NewMailer(cfg config.NotifyConfig) *Mailer {
	return &Mailer{
		cfg:      cfg,
		logger:   slog.Default(),
		sendMail: smtp.SendMail,
	}
}

// WithLogger sets a custom logger.
func (m *Mailer) WithLogger(logger *slog.Logger) *Mailer {
	m.logger = logger
	return m
}

// SessionStarted emails the configured admin address.
func (m *Mailer) SessionStarted(ctx context.Context, session *models.LiveSession, owner *models.User) {
	if m.cfg.AdminEmail == "" {
		return
	}
	subject := fmt.Sprintf("Live session started: %s", session.Title)
	body := fmt.Sprintf("A live session has started.\n\nTitle: %s\nUser: %s\nTime: %s\n",
		session.Title, owner.Email, time.Now().Format(time.RFC3339))
	m.send(session, []string{m.cfg.AdminEmail}, subject, body)
}

// SessionFailed emails the session owner with the failure reason.
func (m *Mailer) SessionFailed(ctx context.Context, session *models.LiveSession, owner *models.User, reason string) {
	subject := fmt.Sprintf("Live session failed to start: %s", session.Title)
	body := fmt.Sprintf("Your live session could not be started.\n\nTitle: %s\nReason: %s\nTime: %s\n",
		session.Title, reason, time.Now().Format(time.RFC3339))
	m.send(session, []string{owner.Email}, subject, body)
}

// send delivers one message; failures are logged, never returned.
func (m *Mailer) send(session *models.LiveSession, to []string, subject, body string) {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.cfg.From, to[0], subject, body))

	if err := m.sendMail(addr, nil, m.cfg.From, to, msg); err != nil {
		m.logger.Warn("notification delivery failed",
			slog.String("session_id", session.ID.String()),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
		return
	}

	m.logger.Debug("notification sent",
		slog.String("session_id", session.ID.String()),
		slog.String("subject", subject),
	)
}
