// Package notify sends guest emails.  Delivery is best-effort: failures
// are logged and reported as false, never returned as errors.
package notify

import (
	"io"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/resort-reservation/internal/config"
)

// Attachment is a file attached to an email.
type Attachment struct {
	Name string
	Data []byte
}

// Notifier is the email collaborator contract.
type Notifier interface {
	SendEmail(to, subject, htmlBody string, attachments ...Attachment) bool
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
	logger *slog.Logger
}

// NewSMTPMailer builds a mailer from cfg.  When cfg is incomplete the
// mailer is still returned but every send reports false.
func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.UseSSL
	return &SMTPMailer{cfg: cfg, dialer: d, logger: logger.With("component", "mailer")}
}

// SendEmail delivers one HTML message.
func (m *SMTPMailer) SendEmail(to, subject, htmlBody string, attachments ...Attachment) bool {
	if !m.cfg.Configured() {
		m.logger.Warn("smtp not configured, email skipped", "to", to, "subject", subject)
		return false
	}
	if to == "" {
		m.logger.Warn("email without recipient skipped", "subject", subject)
		return false
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.SenderAddress())
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	for _, a := range attachments {
		data := a.Data
		msg.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("send email failed", "to", to, "subject", subject, "err", err)
		return false
	}
	m.logger.Info("email sent", "to", to, "subject", subject)
	return true
}

// Discard is a Notifier that drops every message.
type Discard struct{}

func (Discard) SendEmail(string, string, string, ...Attachment) bool { return false }
