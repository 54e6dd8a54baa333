package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemanager/livemanager/internal/config"
	"github.com/livemanager/livemanager/internal/models"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func testMailer(cfg config.NotifyConfig) (*Mailer, *[]sentMail) {
	var sent []sentMail
	m := NewMailer(cfg)
	m.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m, &sent
}

func fixtures() (*models.LiveSession, *models.User) {
	session := &models.LiveSession{Title: "Morning Show"}
	session.ID = models.NewULID()
	owner := &models.User{Email: "owner@example.com"}
	return session, owner
}

func TestMailerSessionStarted(t *testing.T) {
	m, sent := testMailer(config.NotifyConfig{
		SMTPHost:   "mail.example.com",
		SMTPPort:   25,
		From:       "noreply@example.com",
		AdminEmail: "admin@example.com",
	})
	session, owner := fixtures()

	m.SessionStarted(context.Background(), session, owner)

	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Equal(t, "mail.example.com:25", got.addr)
	assert.Equal(t, []string{"admin@example.com"}, got.to)
	assert.Contains(t, got.msg, "Live session started: Morning Show")
	assert.Contains(t, got.msg, "owner@example.com")
}

func TestMailerSessionStartedWithoutAdminEmail(t *testing.T) {
	m, sent := testMailer(config.NotifyConfig{SMTPHost: "mail.example.com", SMTPPort: 25, From: "n@e.com"})
	session, owner := fixtures()

	m.SessionStarted(context.Background(), session, owner)

	assert.Empty(t, *sent)
}

func TestMailerSessionFailed(t *testing.T) {
	m, sent := testMailer(config.NotifyConfig{
		SMTPHost: "mail.example.com",
		SMTPPort: 25,
		From:     "noreply@example.com",
	})
	session, owner := fixtures()

	m.SessionFailed(context.Background(), session, owner, "media file not found")

	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Equal(t, []string{"owner@example.com"}, got.to)
	assert.Contains(t, got.msg, "failed to start")
	assert.Contains(t, got.msg, "media file not found")
}

func TestMailerSwallowsDeliveryErrors(t *testing.T) {
	m := NewMailer(config.NotifyConfig{SMTPHost: "mail.example.com", SMTPPort: 25, From: "n@e.com"})
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	session, owner := fixtures()

	// Must not panic or propagate.
	m.SessionFailed(context.Background(), session, owner, "reason")
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = NopNotifier{}
	session, owner := fixtures()
	n.SessionStarted(context.Background(), session, owner)
	n.SessionFailed(context.Background(), session, owner, "x")
}
