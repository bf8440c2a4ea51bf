package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"telegram-bot-platform/internal/config"
	"telegram-bot-platform/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends the welcome email over plain SMTP with AUTH PLAIN.
type SMTPMailer struct {
	cfg *config.MailConfig
	log *zerolog.Logger
}

func NewSMTPMailer(cfg *config.MailConfig, logger *zerolog.Logger) *SMTPMailer {
	compLog := logger.With().Str("component", "SMTPMailer").Logger()
	return &SMTPMailer{cfg: cfg, log: &compLog}
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, displayName, username string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	body := strings.Join([]string{
		fmt.Sprintf("Hello %s,", displayName),
		"",
		"Welcome to our bot platform!",
		"",
		"Your account has been successfully created.",
		fmt.Sprintf("Username: %s", username),
		"",
		"You can now access the protected API endpoints using JWT authentication.",
	}, "\r\n")

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.cfg.From),
		fmt.Sprintf("To: %s", to),
		"Subject: Welcome to the Bot Platform!",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send welcome mail: %w", err)
	}
	m.log.Info().Str("to", to).Msg("welcome email sent")
	return nil
}
