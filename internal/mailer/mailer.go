// Package mailer sends invitation emails. Sends are fire-and-forget:
// handlers dispatch them on a goroutine after the membership transaction
// has committed, and a failed send is only logged.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"collab-service/pkg/config"
	"collab-service/pkg/logger"

	"go.uber.org/zap"
)

// Mailer delivers invitation mail over SMTP.
type Mailer struct {
	host    string
	port    int
	user    string
	pass    string
	baseURL string
}

// New builds a Mailer from config. Without credentials the mailer is
// disabled and SendInvite only logs.
func New(cfg *config.SMTPConfig) *Mailer {
	return &Mailer{
		host:    cfg.Host,
		port:    cfg.Port,
		user:    cfg.User,
		pass:    cfg.Pass,
		baseURL: cfg.BaseURL,
	}
}

func (m *Mailer) enabled() bool {
	return m.user != "" && m.pass != ""
}

// SendInvite mails an accept-invite link carrying the invitation token to
// the recipient. contextName is the project or team the user was invited
// to. The context carries the originating request's logger.
func (m *Mailer) SendInvite(ctx context.Context, recipient, contextName, token string) {
	log := logger.FromContext(ctx)

	if !m.enabled() {
		log.Info("Mailer disabled, skipping invitation email",
			zap.String("recipient", recipient),
			zap.String("context", contextName))
		return
	}

	link := fmt.Sprintf("%s/accept-invite?token=%s", m.baseURL, token)
	subject := fmt.Sprintf("Invitation to join %s", contextName)
	body := fmt.Sprintf("You have been invited to join %s.\r\nClick to accept: %s\r\n", contextName, link)

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.user, recipient, subject, body))

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	if err := smtp.SendMail(addr, auth, m.user, []string{recipient}, msg); err != nil {
		log.Error("Failed to send invitation email",
			zap.String("recipient", recipient),
			zap.String("context", contextName),
			zap.Error(err))
		return
	}

	log.Info("Invitation email sent",
		zap.String("recipient", recipient),
		zap.String("context", contextName))
}
